package models

import (
	"time"
)

// ProcessRun records one workflow invocation
type ProcessRun struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RunID            string    `gorm:"uniqueIndex;size:36;not null" json:"run_id"`
	Trigger          string    `gorm:"size:20" json:"trigger"` // api, cli, schedule, api_key
	Action           string    `gorm:"size:30" json:"action"`
	Status           string    `gorm:"size:20;index" json:"status"`
	InitialSent      int       `json:"initial_sent"`
	RepliesProcessed int       `json:"replies_processed"`
	Ambiguous        int       `json:"ambiguous_replies"`
	RemindersSent    int       `json:"reminders_sent"`
	SendFailures     int       `json:"send_failures"`
	Error            string    `gorm:"type:text" json:"error,omitempty"`
	StartedAt        time.Time `gorm:"index" json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// Run triggers
const (
	TriggerAPI      = "api"
	TriggerAPIKey   = "api_key"
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
)
