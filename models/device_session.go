package models

import "time"

const (
	ReasonOK              = "ok"
	ReasonNoActiveSession = "no active session"
	ReasonDeviceMismatch  = "device mismatch"
	ReasonSessionExpired  = "session expired"
)

// DeviceSession is one grant for a single device to act as the child.
// Rows are never deleted; at most one row per child is active and unrevoked
// (enforced by the partial unique index uq_device_sessions_active_child).
type DeviceSession struct {
	ID         string     `json:"id" gorm:"primaryKey;size:26"`
	ChildID    string     `json:"child_id" gorm:"size:26;not null;index"`
	ParentID   string     `json:"parent_id" gorm:"size:26;not null"`
	DeviceID   string     `json:"device_id" gorm:"not null"`
	IsActive   bool       `json:"is_active" gorm:"not null"`
	Revoked    bool       `json:"revoked" gorm:"not null"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	SessionEnd *time.Time `json:"session_end,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Live reports whether the row holds the child's slot (is_active AND NOT revoked).
func (s DeviceSession) Live() bool {
	return s.IsActive && !s.Revoked
}

// ExpiredAt reports whether the session window has closed at now.
// A session with no end is open-ended.
func (s DeviceSession) ExpiredAt(now time.Time) bool {
	return s.SessionEnd != nil && !now.Before(*s.SessionEnd)
}

// Authorization is the result of checking a device against a child's active session.
type Authorization struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
	SessionID string `json:"session_id,omitempty"`
}
