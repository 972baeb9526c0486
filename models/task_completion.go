package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskCompletion records one accepted completion; its ID is the idempotency key of the EARN entry.
type TaskCompletion struct {
	ID          string         `json:"id" gorm:"primaryKey;size:64"`
	ChildID     string         `json:"child_id" gorm:"size:26;not null;index"`
	TaskID      string         `json:"task_id" gorm:"not null"`
	DeviceID    string         `json:"device_id" gorm:"not null"`
	SessionID   string         `json:"session_id" gorm:"size:26;not null"`
	Proof       datatypes.JSON `json:"proof,omitempty"`
	XP          int64          `json:"xp"`
	EarnEntryID string         `json:"earn_entry_id" gorm:"size:26"`
	CreatedAt   time.Time      `json:"created_at"`
}
