package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/spf13/cobra"
)

var (
	runAction string
	runYes    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workflow once",
	Long: `Run the HCN workflow against the workbook.

Actions:
  full_process    send initial requests, check the inbox, send reminders
  send_emails     only send initial requests
  check_inbox     only classify new replies
  send_reminders  only send reminders

Ctrl-C stops the run after the current email; progress so far is saved.`,
	Run: func(cmd *cobra.Command, args []string) {
		action, err := services.ParseRunAction(runAction)
		if err != nil {
			fail("%v", err)
		}

		for _, problem := range cfg.Validate() {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", problem)
		}

		if action != services.ActionCheckInbox && !runYes {
			if !confirm(fmt.Sprintf("Run %s and email hotels from %s?", action, cfg.GmailAddress)) {
				fmt.Println("Cancelled.")
				return
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		process, _ := services.BuildProcessService(db, cfg)
		summary, err := process.Run(ctx, services.RunOptions{Action: action, Trigger: models.TriggerCLI})
		if summary != nil {
			printSummary(summary)
		}
		if err != nil {
			if errors.Is(err, booking.ErrStoreUnavailable) {
				fail("cannot open workbook %s: %v", cfg.ExcelFilePath, err)
			}
			fail("run failed: %v", err)
		}
	},
}

func printSummary(s *services.RunSummary) {
	fmt.Println()
	fmt.Printf("Run %s (%s): %s\n", s.RunID, s.Action, s.Status)
	fmt.Printf("  Initial emails sent: %d\n", s.InitialSent)
	fmt.Printf("  Replies processed:   %d (received %d, critical %d, non critical %d)\n",
		s.RepliesProcessed.Total(), s.RepliesProcessed.Received, s.RepliesProcessed.Critical, s.RepliesProcessed.NonCritical)
	if s.AmbiguousReplies > 0 {
		fmt.Printf("  Ambiguous replies:   %d\n", s.AmbiguousReplies)
	}
	fmt.Printf("  Reminders sent:      %d\n", s.RemindersSent)
	if s.SendFailures > 0 {
		fmt.Printf("  Send failures:       %d\n", s.SendFailures)
	}
	if s.FetchError != "" {
		fmt.Printf("  Inbox check failed:  %s\n", s.FetchError)
	}
	fmt.Println()
	printOverview(s.Overview)
	printCritical(s.Critical)
}

func init() {
	runCmd.Flags().StringVarP(&runAction, "action", "a", string(services.ActionFullProcess), "full_process, send_emails, check_inbox or send_reminders")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip the confirmation prompt")
}
