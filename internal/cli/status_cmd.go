package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/amarjeet4296/hcn-email-management/internal/sheet"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the workbook",
	Long:  `Print counts per outcome, the bookings with critical replies and the first pending bookings.`,
	Run: func(cmd *cobra.Command, args []string) {
		store := sheet.NewWorkbook(cfg.ExcelFilePath, cfg.SheetName, cfg.HeaderRow)
		records, err := store.ReadAll(context.Background())
		if err != nil {
			fail("cannot read workbook %s: %v", cfg.ExcelFilePath, err)
		}

		printOverview(booking.Summarize(records))
		printCritical(booking.Critical(records))

		pending := booking.Pending(records, services.PendingPreviewLimit)
		if len(pending) == 0 {
			return
		}
		now := time.Now()
		fmt.Println("Pending:")
		for _, rec := range pending {
			state := "not emailed"
			switch {
			case rec.WasReminded():
				state = "reminded " + rec.ReminderSentAt
			case booking.IsReminderDue(rec, now, cfg.ReminderThreshold()):
				state = "reminder due"
			case rec.WasEmailed():
				state = "emailed " + rec.EmailSentAt
			}
			fmt.Printf("  #%-5d %-28s %-28s %s\n", rec.Serial, rec.GuestName, rec.HotelName, state)
		}
	},
}

func printOverview(o booking.Overview) {
	fmt.Printf("Bookings: %d  received %d  critical %d  non critical %d  pending %d\n",
		o.Total, o.Received, o.Critical, o.NonCritical, o.Pending)
	fmt.Printf("Emailed: %d  reminded: %d\n", o.Emailed, o.Reminded)
}

func printCritical(records []booking.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Critical:")
	for _, rec := range records {
		fmt.Printf("  #%-5d %-28s %-28s %s to %s\n", rec.Serial, rec.GuestName, rec.HotelName, rec.FromDate, rec.ToDate)
	}
	fmt.Println()
}
