package models

import (
	"time"
)

// ReplyResult stores the outcome of processing one inbound message
type ReplyResult struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RunID         string    `gorm:"index;size:36" json:"run_id"`
	MessageID     string    `gorm:"uniqueIndex;size:255;not null" json:"message_id"`
	BookingSerial int       `gorm:"index" json:"booking_serial"`
	Subject       string    `gorm:"size:500" json:"subject"`
	FromAddr      string    `gorm:"size:255" json:"from"`
	Category      string    `gorm:"size:20;index" json:"category"` // Received, Critical, Non Critical, Ambiguous
	HCN           string    `gorm:"size:100" json:"hcn,omitempty"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Candidates    string    `gorm:"size:255" json:"candidates,omitempty"` // comma separated serials for ambiguous matches
	RawFilePath   string    `gorm:"size:500" json:"raw_file_path,omitempty"`
	ProcessedBy   string    `gorm:"size:20" json:"processed_by"` // ai, local
	ProcessedAt   time.Time `gorm:"index" json:"processed_at"`
}

// CategoryAmbiguous marks messages matching several bookings equally well
const CategoryAmbiguous = "Ambiguous"
