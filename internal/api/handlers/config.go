package handlers

import (
	"context"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
)

// PublicConfig is the non-secret part of the configuration
type PublicConfig struct {
	GmailAddress       string `json:"gmail_address"`
	ReminderAfterHours int    `json:"reminder_after_hours"`
	DaysToCheck        int    `json:"days_to_check"`
	DelayBetweenEmails int    `json:"delay_between_emails"`
	CompanyName        string `json:"company_name"`
	SenderName         string `json:"sender_name"`
	ExcelFilePath      string `json:"excel_file_path"`
	SheetName          string `json:"sheet_name"`
	ClassifierMode     string `json:"classifier_mode"`
	OpenAIModel        string `json:"openai_model,omitempty"`
	MatchStrategy      string `json:"match_strategy"`
	Schedule           string `json:"schedule,omitempty"`
	Environment        string `json:"environment"`
}

// ToPublicConfig strips credentials from cfg
func ToPublicConfig(cfg *config.Config) PublicConfig {
	pc := PublicConfig{
		GmailAddress:       cfg.GmailAddress,
		ReminderAfterHours: cfg.ReminderAfterHours,
		DaysToCheck:        cfg.DaysToCheck,
		DelayBetweenEmails: cfg.DelayBetweenEmails,
		CompanyName:        cfg.CompanyName,
		SenderName:         cfg.SenderName,
		ExcelFilePath:      cfg.ExcelFilePath,
		SheetName:          cfg.SheetName,
		ClassifierMode:     cfg.ClassifierMode,
		MatchStrategy:      cfg.MatchStrategy,
		Schedule:           cfg.Schedule,
		Environment:        cfg.Environment,
	}
	if cfg.UsesAI() {
		pc.OpenAIModel = cfg.OpenAIModel
	}
	return pc
}

// ConfigHandler exposes the running configuration
type ConfigHandler struct {
	cfg  *config.Config
	mail *services.MailService
}

// NewConfigHandler creates a new ConfigHandler instance. mail may be nil, in
// which case connection probes are not offered.
func NewConfigHandler(cfg *config.Config, mail *services.MailService) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, mail: mail}
}

// GetConfig returns the public configuration and any problems found in it
// GET /api/config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	problems := h.cfg.Validate()
	if problems == nil {
		problems = []string{}
	}

	respondOK(c, gin.H{
		"config":   ToPublicConfig(h.cfg),
		"problems": problems,
	})
}

// TestConnection probes the IMAP and SMTP servers with the configured
// mailbox credentials
// GET /api/config/connection
func (h *ConfigHandler) TestConnection(c *gin.Context) {
	if h.mail == nil {
		respondOK(c, gin.H{
			"imap": services.ConnectionTestResult{Message: services.ErrNotConfigured.Error()},
			"smtp": services.ConnectionTestResult{Message: services.ErrNotConfigured.Error()},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	respondOK(c, gin.H{
		"imap": h.mail.TestIMAP(),
		"smtp": h.mail.TestSMTP(ctx),
	})
}
