package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Mailbox credentials (Gmail app password)
	GmailAddress     string `json:"gmail_address"`
	GmailAppPassword string `json:"gmail_app_password"`
	SMTPHost         string `json:"smtp_host"`
	SMTPPort         int    `json:"smtp_port"`
	IMAPHost         string `json:"imap_host"`
	IMAPPort         int    `json:"imap_port"`
	Mailbox          string `json:"mailbox"`

	// Classification oracle
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIModel    string `json:"openai_model"`
	OpenAIBaseURL  string `json:"openai_base_url"`
	ClassifierMode string `json:"classifier_mode"` // ai or local

	// Booking workbook
	ExcelFilePath string `json:"excel_file_path"`
	SheetName     string `json:"sheet_name"`
	HeaderRow     int    `json:"header_row"`

	// Workflow
	ReminderAfterHours int    `json:"reminder_after_hours"`
	DaysToCheck        int    `json:"days_to_check"`
	DelayBetweenEmails int    `json:"delay_between_emails"` // seconds
	MatchStrategy      string `json:"match_strategy"`       // scored or first
	Schedule           string `json:"schedule"`             // cron spec, empty disables scheduled runs

	// Signature
	CompanyName string `json:"company_name"`
	SenderName  string `json:"sender_name"`

	// API server and auth
	SecretKey                string `json:"secret_key"`
	Algorithm                string `json:"algorithm"`
	AccessTokenExpireMinutes int    `json:"access_token_expire_minutes"`
	BackendHost              string `json:"backend_host"`
	BackendPort              int    `json:"backend_port"`
	CORSOrigins              string `json:"cors_origins"` // comma separated, * for all
	AdminPassword            string `json:"admin_password"`

	// Service internals
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
	LogLevel     string `json:"log_level"`
	Environment  string `json:"environment"`
}

// Default configuration values
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
	DefaultIMAPHost = "imap.gmail.com"
	DefaultIMAPPort = 993
	DefaultMailbox  = "INBOX"

	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultClassifierMode = "ai"

	DefaultExcelFilePath = "HCN1.xlsx"
	DefaultSheetName     = "HotelReport (1)"
	DefaultHeaderRow     = 2

	DefaultReminderAfterHours = 2
	DefaultDaysToCheck        = 7
	DefaultDelayBetweenEmails = 2
	DefaultMatchStrategy      = "scored"

	DefaultCompanyName = "Within Earth Travel Pvt. Ltd."
	DefaultSenderName  = "Reservations Team"

	DefaultSecretKey                = "your-secret-key-change-this-in-production"
	DefaultAlgorithm                = "HS256"
	DefaultAccessTokenExpireMinutes = 1440
	DefaultBackendHost              = "0.0.0.0"
	DefaultBackendPort              = 8000
	DefaultCORSOrigins              = "http://localhost:3000,http://localhost:5173"
	DefaultAdminPassword            = "admin123"

	DefaultDataDir      = "data"
	DefaultDatabasePath = "data/hcn.db"
	DefaultLogLevel     = "INFO"
	DefaultEnvironment  = "development"
)

// Placeholder values shipped in .env.example
const (
	placeholderGmailAddress  = "your_email@gmail.com"
	placeholderGmailPassword = "xxxx xxxx xxxx xxxx"
	placeholderOpenAIPrefix  = "sk-your-"
	placeholderSecretKey     = "your-secret-key-change-this-in-production-use-random-string"
)

// Default returns a configuration populated with default values only
func Default() *Config {
	return &Config{
		SMTPHost:                 DefaultSMTPHost,
		SMTPPort:                 DefaultSMTPPort,
		IMAPHost:                 DefaultIMAPHost,
		IMAPPort:                 DefaultIMAPPort,
		Mailbox:                  DefaultMailbox,
		OpenAIModel:              DefaultOpenAIModel,
		ClassifierMode:           DefaultClassifierMode,
		ExcelFilePath:            DefaultExcelFilePath,
		SheetName:                DefaultSheetName,
		HeaderRow:                DefaultHeaderRow,
		ReminderAfterHours:       DefaultReminderAfterHours,
		DaysToCheck:              DefaultDaysToCheck,
		DelayBetweenEmails:       DefaultDelayBetweenEmails,
		MatchStrategy:            DefaultMatchStrategy,
		CompanyName:              DefaultCompanyName,
		SenderName:               DefaultSenderName,
		SecretKey:                DefaultSecretKey,
		Algorithm:                DefaultAlgorithm,
		AccessTokenExpireMinutes: DefaultAccessTokenExpireMinutes,
		BackendHost:              DefaultBackendHost,
		BackendPort:              DefaultBackendPort,
		CORSOrigins:              DefaultCORSOrigins,
		AdminPassword:            DefaultAdminPassword,
		DataDir:                  DefaultDataDir,
		DatabasePath:             DefaultDatabasePath,
		LogLevel:                 DefaultLogLevel,
		Environment:              DefaultEnvironment,
	}
}

// Load loads configuration from config file, .env file and environment variables
// Priority: Environment variables > .env file > Config file > Default values
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	// .env is optional; godotenv never overrides variables already set
	_ = godotenv.Load()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"GMAIL_ADDRESS":       &c.GmailAddress,
		"GMAIL_APP_PASSWORD":  &c.GmailAppPassword,
		"OPENAI_API_KEY":      &c.OpenAIAPIKey,
		"EXCEL_FILE_PATH":     &c.ExcelFilePath,
		"SHEET_NAME":          &c.SheetName,
		"COMPANY_NAME":        &c.CompanyName,
		"SENDER_NAME":         &c.SenderName,
		"SECRET_KEY":          &c.SecretKey,
		"ALGORITHM":           &c.Algorithm,
		"BACKEND_HOST":        &c.BackendHost,
		"OPENAI_MODEL":        &c.OpenAIModel,
		"OPENAI_BASE_URL":     &c.OpenAIBaseURL,
		"HCN_SMTP_HOST":       &c.SMTPHost,
		"HCN_IMAP_HOST":       &c.IMAPHost,
		"HCN_MAILBOX":         &c.Mailbox,
		"HCN_CLASSIFIER_MODE": &c.ClassifierMode,
		"HCN_MATCH_STRATEGY":  &c.MatchStrategy,
		"HCN_SCHEDULE":        &c.Schedule,
		"HCN_CORS_ORIGINS":    &c.CORSOrigins,
		"HCN_ADMIN_PASSWORD":  &c.AdminPassword,
		"HCN_DATA_DIR":        &c.DataDir,
		"HCN_DATABASE_PATH":   &c.DatabasePath,
		"HCN_LOG_LEVEL":       &c.LogLevel,
		"HCN_ENVIRONMENT":     &c.Environment,
	}
	for key, dst := range strs {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	ints := map[string]*int{
		"REMINDER_AFTER_HOURS":        &c.ReminderAfterHours,
		"DAYS_TO_CHECK":               &c.DaysToCheck,
		"DELAY_BETWEEN_EMAILS":        &c.DelayBetweenEmails,
		"ACCESS_TOKEN_EXPIRE_MINUTES": &c.AccessTokenExpireMinutes,
		"BACKEND_PORT":                &c.BackendPort,
		"HCN_SMTP_PORT":               &c.SMTPPort,
		"HCN_IMAP_PORT":               &c.IMAPPort,
		"HCN_HEADER_ROW":              &c.HeaderRow,
	}
	for key, dst := range ints {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, val, err)
		}
		*dst = n
	}

	return nil
}

// Validate reports configuration problems that prevent a real run.
// An empty slice means the configuration is usable.
func (c *Config) Validate() []string {
	var errs []string

	if c.GmailAddress == "" || c.GmailAddress == placeholderGmailAddress {
		errs = append(errs, "GMAIL_ADDRESS is not configured in .env file")
	}
	if c.GmailAppPassword == "" || c.GmailAppPassword == placeholderGmailPassword {
		errs = append(errs, "GMAIL_APP_PASSWORD is not configured in .env file")
	}
	if c.UsesAI() && (c.OpenAIAPIKey == "" || strings.HasPrefix(c.OpenAIAPIKey, placeholderOpenAIPrefix)) {
		errs = append(errs, "OPENAI_API_KEY is not configured in .env file")
	}
	if _, err := os.Stat(c.ExcelFilePath); err != nil {
		errs = append(errs, fmt.Sprintf("Excel file not found: %s", c.ExcelFilePath))
	}
	if c.SecretKey == DefaultSecretKey || c.SecretKey == placeholderSecretKey {
		errs = append(errs, "SECRET_KEY should be changed to a secure random string for production")
	}
	if !strings.EqualFold(c.Algorithm, DefaultAlgorithm) {
		errs = append(errs, fmt.Sprintf("ALGORITHM %q is not supported, use HS256", c.Algorithm))
	}
	if c.ClassifierMode != "ai" && c.ClassifierMode != "local" {
		errs = append(errs, fmt.Sprintf("HCN_CLASSIFIER_MODE %q must be ai or local", c.ClassifierMode))
	}
	if c.MatchStrategy != "scored" && c.MatchStrategy != "first" {
		errs = append(errs, fmt.Sprintf("HCN_MATCH_STRATEGY %q must be scored or first", c.MatchStrategy))
	}
	if c.HeaderRow < 1 {
		errs = append(errs, "HCN_HEADER_ROW must be at least 1")
	}

	return errs
}

// UsesAI reports whether replies are classified by the remote model
func (c *Config) UsesAI() bool {
	return c.ClassifierMode != "local"
}

// ReminderThreshold returns the reminder delay as a duration
func (c *Config) ReminderThreshold() time.Duration {
	return time.Duration(c.ReminderAfterHours) * time.Hour
}

// SendDelay returns the pacing interval between outgoing emails
func (c *Config) SendDelay() time.Duration {
	return time.Duration(c.DelayBetweenEmails) * time.Second
}

// TokenExpiry returns the JWT lifetime
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// ListenAddr returns host:port for the API server
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BackendHost, c.BackendPort)
}

// AllowedOrigins splits CORSOrigins into a list
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
