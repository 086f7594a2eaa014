package cli

import (
	"fmt"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/spf13/cobra"
)

var (
	logsModule string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the newest audit log entries",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			logs []models.Log
			err  error
		)
		if logsModule != "" {
			logs, err = logService.GetLogsByModule(models.LogModule(logsModule), logsLimit)
		} else {
			logs, err = logService.GetRecentLogs(logsLimit)
		}
		if err != nil {
			fail("failed to read logs: %v", err)
		}

		fmt.Printf("Audit level: %s\n", logService.GetLogLevel())
		for _, l := range logs {
			fmt.Printf("%s %-5s %-9s %-20s %s\n", l.CreatedAt.Format("2006-01-02 15:04:05"), l.Level, l.Module, l.Action, l.Message)
		}
	},
}

func init() {
	logsCmd.Flags().StringVarP(&logsModule, "module", "m", "", "only this module (auth, mail, process, ...)")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "entries to show")
}
