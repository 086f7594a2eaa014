package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	userService   *services.UserService
	actionService *services.ActionItemService
	logService    *services.LogService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hcn",
	Short: "Hotel confirmation number email workflow",
	Long: `Requests hotel confirmation numbers (HCNs) from hotels by email,
reads their replies and records the outcome in the booking workbook.

Running without a command starts the API server. Commands:
  hcn run                     # send requests, check the inbox, send reminders
  hcn run --action check_inbox
  hcn status                  # overview of the workbook
  hcn config check            # validate settings and probe IMAP/SMTP
  hcn key show                # show the machine trigger API key
  hcn key reset               # rotate the API key
  hcn user create             # create a dashboard operator
  hcn actions list 42         # activity trail of booking 42`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	userService = services.NewUserService(db)
	actionService = services.NewActionItemService(db)
	logService = services.NewLogServiceWithLevel(db, cfg.LogLevel)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// confirm asks a yes/no question on stdin
func confirm(prompt string) bool {
	input := strings.ToLower(readLine(prompt + " (yes/no): "))
	return input == "yes" || input == "y"
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(logsCmd)
}
