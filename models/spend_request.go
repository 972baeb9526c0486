package models

import (
	"time"

	"gorm.io/gorm"
)

type SpendStatus string

const (
	SpendPending  SpendStatus = "PENDING"
	SpendApproved SpendStatus = "APPROVED"
	SpendDenied   SpendStatus = "DENIED"
	SpendExpired  SpendStatus = "EXPIRED"
)

// SpendRequest is a redemption attempt. PENDING moves to exactly one terminal status.
type SpendRequest struct {
	ID             string      `json:"id" gorm:"primaryKey;size:26"`
	ChildID        string      `json:"child_id" gorm:"size:26;not null;index:idx_spend_requests_child_reward_status,priority:1"`
	WalletID       string      `json:"wallet_id" gorm:"size:26;not null"`
	RewardID       string      `json:"reward_id" gorm:"size:26;not null;index:idx_spend_requests_child_reward_status,priority:2"`
	XPCost         int64       `json:"xp_cost" gorm:"not null"`
	Status         SpendStatus `json:"status" gorm:"size:16;not null;index:idx_spend_requests_child_reward_status,priority:3"`
	ReserveEntryID string      `json:"reserve_entry_id" gorm:"size:26;not null"`
	DecidedBy      *string     `json:"decided_by,omitempty" gorm:"size:26"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`
	ExpiresAt      time.Time   `json:"expires_at"`
	DecidedAt      *time.Time  `json:"decided_at,omitempty"`
}

func (r SpendRequest) IsPending() bool {
	return r.Status == SpendPending
}

// Reward is a catalog item owned by a parent. Read-only for the redemption workflow.
type Reward struct {
	ID          string         `json:"id" gorm:"primaryKey;size:26"`
	ParentID    string         `json:"parent_id" gorm:"size:26;not null;index"`
	XPCost      int64          `json:"xp_cost" gorm:"not null"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
