package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// keyCmd represents the key command group
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Machine trigger API key",
	Long:  `Show or rotate the API key accepted by POST /api/trigger/process.`,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current API key",
	Run: func(cmd *cobra.Command, args []string) {
		currentKey := apiKeyManager.GetCurrentKey()
		if currentKey == "" {
			fail("no API key available")
		}

		fmt.Println("Current API key:")
		fmt.Println(currentKey)
	},
}

var keyResetYes bool

var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Generate a new API key",
	Long:  `Generate a new API key. The old key stops working immediately.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Current API key:")
		fmt.Println(apiKeyManager.GetCurrentKey())
		fmt.Println()

		if !keyResetYes {
			fmt.Println("Warning: scripts and cron jobs using the old key will be rejected.")
			if !confirm("Reset the API key?") {
				fmt.Println("Cancelled.")
				return
			}
		}

		newKey, err := apiKeyManager.ResetKey()
		if err != nil {
			fail("failed to reset key: %v", err)
		}
		logService.LogAPIKeyReset(0)

		fmt.Println()
		fmt.Println("API key reset.")
		fmt.Println("New API key:")
		fmt.Println(newKey)
	},
}

func init() {
	keyResetCmd.Flags().BoolVarP(&keyResetYes, "yes", "y", false, "skip the confirmation prompt")

	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyResetCmd)
}
