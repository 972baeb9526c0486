package interfaces

import (
	"context"
	"time"
)

// Типы событий семьи
const (
	EventSessionStarted = "session_started"
	EventSessionStopped = "session_stopped"
	EventSessionRevoked = "session_revoked"
	EventTaskCompleted  = "task_completed"
	EventSpendRequested = "spend_requested"
	EventSpendDecided   = "spend_decided"
	EventSpendExpired   = "spend_expired"
)

// FamilyEvent is pushed to every parent linked to ChildID.
type FamilyEvent struct {
	Type      string      `json:"type"`
	ChildID   string      `json:"child_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventPublisher определяет интерфейс для WebSocket хаба
type EventPublisher interface {
	Publish(parentID string, event FamilyEvent)
}

// PushSender отправляет push-уведомление на устройство
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// IdentityProvider is the external account system (Firebase Auth).
type IdentityProvider interface {
	// CreateUser registers the account and returns its uid.
	// An email already taken there is models.ErrConflict.
	CreateUser(ctx context.Context, email, password, displayName string) (string, error)
	// VerifyIDToken resolves an ID token to its subject uid.
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// XPRule decides how much XP a completed task is worth. Zero means no EARN entry.
type XPRule interface {
	XPFor(ctx context.Context, childID, taskID string) (int64, error)
}
