package cli

import (
	"fmt"
	"strconv"

	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Booking activity trail",
}

var actionsListCmd = &cobra.Command{
	Use:   "list [booking_id]",
	Short: "List action items of a booking, or the most recent ones",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			items []models.ActionItem
			err   error
		)
		if len(args) == 1 {
			items, err = actionService.ByBooking(args[0])
		} else {
			items, err = actionService.Recent(services.DefaultRecentActionItems)
		}
		if err != nil {
			fail("failed to list action items: %v", err)
		}
		if len(items) == 0 {
			fmt.Println("No action items.")
			return
		}

		for _, item := range items {
			fmt.Printf("%s  #%-5s %-20s %-10s %s\n",
				item.Timestamp.Format("2006-01-02 15:04"), item.BookingID, item.ActionType, item.PerformedBy, item.Description)
		}
	},
}

var (
	actionType        string
	actionDescription string
	actionResolution  string
)

var actionsAddCmd = &cobra.Command{
	Use:   "add <booking_id>",
	Short: "Record a manual action on a booking",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := strconv.Atoi(args[0]); err != nil {
			fail("booking id must be numeric")
		}

		known := false
		for _, t := range validation.ActionTypes {
			if string(t) == actionType {
				known = true
				break
			}
		}
		if !known {
			fail("unknown action type %q", actionType)
		}
		if actionDescription == "" {
			fail("--description is required")
		}

		metadata := map[string]interface{}{}
		if models.ActionType(actionType) == models.ActionManualResolution {
			if actionResolution == "" {
				fail("--resolution is required for %s", models.ActionManualResolution)
			}
			metadata["resolution"] = actionResolution
		}

		item, err := actionService.Add(args[0], models.ActionType(actionType), actionDescription, "cli", metadata)
		if err != nil {
			fail("failed to add action item: %v", err)
		}
		logService.LogInfo(0, models.LogModuleAction, "add_action_item", "Action item added from the command line", map[string]interface{}{
			"action_id":  item.ID,
			"booking_id": item.BookingID,
		})

		fmt.Printf("Added %s\n", item.ID)
	},
}

func init() {
	actionsAddCmd.Flags().StringVarP(&actionType, "type", "t", string(models.ActionNoteAdded), "action type")
	actionsAddCmd.Flags().StringVarP(&actionDescription, "description", "d", "", "what was done")
	actionsAddCmd.Flags().StringVar(&actionResolution, "resolution", "", "resolution text for manually_resolved")

	actionsCmd.AddCommand(actionsListCmd)
	actionsCmd.AddCommand(actionsAddCmd)
}
