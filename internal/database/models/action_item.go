package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActionItem is one entry in a booking's activity trail
type ActionItem struct {
	ID          string            `gorm:"primaryKey;size:100" json:"id"`
	BookingID   string            `gorm:"index;size:50;not null" json:"booking_id"`
	ActionType  string            `gorm:"size:50;index" json:"action_type"`
	Description string            `gorm:"type:text" json:"description"`
	PerformedBy string            `gorm:"size:50" json:"performed_by"`
	Timestamp   time.Time         `gorm:"index" json:"timestamp"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

// ActionType names the kind of activity
type ActionType string

const (
	ActionEmailSent        ActionType = "email_sent"
	ActionReminderSent     ActionType = "reminder_sent"
	ActionHCNReceived      ActionType = "hcn_received"
	ActionIssueMarked      ActionType = "issue_marked"
	ActionNoteAdded        ActionType = "note_added"
	ActionStatusUpdated    ActionType = "status_updated"
	ActionSupplierContact  ActionType = "supplier_contacted"
	ActionManualResolution ActionType = "manually_resolved"
)

// PerformedBySystem marks items recorded by the automated workflow
const PerformedBySystem = "system"
