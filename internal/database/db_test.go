package database

import (
	"path/filepath"
	"testing"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
)

func TestInitialize_MigratesAndClosesStaleRuns(t *testing.T) {
	logger.Silence()
	path := filepath.Join(t.TempDir(), "nested", "hcn.db")

	db, err := Initialize(path, "ERROR")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for _, model := range []interface{}{&models.User{}, &models.Log{}, &models.ActionItem{}, &models.ReplyResult{}, &models.ProcessRun{}} {
		if !db.Migrator().HasTable(model) {
			t.Errorf("table for %T not created", model)
		}
	}

	if err := db.Create(&models.ProcessRun{RunID: "r-1", Status: models.RunStatusRunning}).Error; err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	db, err = Initialize(path, "ERROR")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var run models.ProcessRun
	if err := db.Where("run_id = ?", "r-1").First(&run).Error; err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusFailed {
		t.Errorf("stale run status = %s, want failed", run.Status)
	}
}
