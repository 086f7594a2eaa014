package database

import (
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath, logLevel string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(logger.Log, gormlogger.Config{
			LogLevel:                  gormLevel(logLevel),
			IgnoreRecordNotFoundError: true,
		}),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Log{},
		&models.ActionItem{},
		&models.ReplyResult{},
		&models.ProcessRun{},
	); err != nil {
		return err
	}

	// Runs left "running" by a crashed process are closed out
	return db.Model(&models.ProcessRun{}).
		Where("status = ?", models.RunStatusRunning).
		Updates(map[string]interface{}{"status": models.RunStatusFailed, "error": "interrupted"}).Error
}

// gormLevel maps the application log level onto gorm's SQL logging level
func gormLevel(level string) gormlogger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		return gormlogger.Info
	case "WARN", "WARNING":
		return gormlogger.Warn
	case "ERROR", "FATAL", "PANIC":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
