package repositories

import (
	"KidQuest/models"
	"context"
	"time"
)

type SessionRepository interface {
	// LockChild serializes session writes for one child until the transaction ends.
	LockChild(ctx context.Context, childID string) error
	// FindLive returns the row with is_active AND NOT revoked, or models.ErrNotFound.
	FindLive(ctx context.Context, childID string) (models.DeviceSession, error)
	// Create inserts a new row; a second live row for the child yields models.ErrConflict.
	Create(ctx context.Context, session *models.DeviceSession) error
	Update(ctx context.Context, session models.DeviceSession) error
	ListByChild(ctx context.Context, childID string) ([]models.DeviceSession, error)
	// DeactivateElapsed clears is_active on live rows whose session_end <= now.
	DeactivateElapsed(ctx context.Context, now time.Time) (int64, error)
}
