package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/api/handlers"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration without credentials",
	Run: func(cmd *cobra.Command, args []string) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(handlers.ToPublicConfig(cfg)); err != nil {
			fail("%v", err)
		}
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and probe the mail servers",
	Run: func(cmd *cobra.Command, args []string) {
		problems := cfg.Validate()
		for _, p := range problems {
			fmt.Printf("[!] %s\n", p)
		}
		if len(problems) == 0 {
			fmt.Println("[ok] settings")
		}

		if _, err := os.Stat(cfg.ExcelFilePath); err != nil {
			fmt.Printf("[!] workbook: %v\n", err)
		} else {
			fmt.Printf("[ok] workbook %s\n", cfg.ExcelFilePath)
		}

		mail := services.NewMailService(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		failed := false
		for name, result := range map[string]services.ConnectionTestResult{
			"imap": mail.TestIMAP(),
			"smtp": mail.TestSMTP(ctx),
		} {
			mark := "ok"
			if !result.Success {
				mark, failed = "!", true
			}
			fmt.Printf("[%s] %s: %s\n", mark, name, result.Message)
		}

		if failed || len(problems) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
}
