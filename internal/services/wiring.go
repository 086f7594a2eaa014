package services

import (
	"github.com/amarjeet4296/hcn-email-management/internal/archive"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/functions"
	"github.com/amarjeet4296/hcn-email-management/internal/functions/ai"
	"github.com/amarjeet4296/hcn-email-management/internal/sheet"
	"gorm.io/gorm"
)

// NewClassifierFromConfig selects the reply classifier for cfg
func NewClassifierFromConfig(cfg *config.Config) *functions.Classifier {
	if !cfg.UsesAI() {
		return functions.NewClassifier(functions.ClassifierModeLocal, nil)
	}
	return functions.NewClassifier(functions.ClassifierModeAI, ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL))
}

// BuildProcessService wires the workbook store, mailbox, classifier and reply
// archive from cfg. The returned MailService is shared with connection probes.
func BuildProcessService(db *gorm.DB, cfg *config.Config) (*ProcessService, *MailService) {
	mail := NewMailService(cfg)
	store := sheet.NewWorkbook(cfg.ExcelFilePath, cfg.SheetName, cfg.HeaderRow)
	process := NewProcessService(db, cfg, store, mail, NewClassifierFromConfig(cfg), archive.NewStore(cfg.DataDir))
	return process, mail
}
