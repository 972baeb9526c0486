package repositories

import (
	"KidQuest/models"
	"context"
	"time"
)

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	FindByIdempotencyKey(ctx context.Context, walletID, key string) (models.LedgerEntry, error)
	Totals(ctx context.Context, walletID string) (models.KindTotals, error)
	ListByWallet(ctx context.Context, walletID string, limit int) ([]models.LedgerEntry, error)
}

type SpendRequestRepository interface {
	// Create inserts a PENDING request; another PENDING request for the same
	// (child, reward) yields models.ErrDuplicateRequest.
	Create(ctx context.Context, req *models.SpendRequest) error
	FindByID(ctx context.Context, id string) (models.SpendRequest, error)
	// LockByID loads the request and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id string) (models.SpendRequest, error)
	HasPending(ctx context.Context, childID, rewardID string) (bool, error)
	Update(ctx context.Context, req models.SpendRequest) error
	// ListStale returns PENDING requests created strictly before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.SpendRequest, error)
	ListByChild(ctx context.Context, childID string, status *models.SpendStatus) ([]models.SpendRequest, error)
}

type RewardRepository interface {
	Create(ctx context.Context, reward *models.Reward) error
	// FindByID does not return deleted rewards.
	FindByID(ctx context.Context, id string) (models.Reward, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Reward, error)
	Delete(ctx context.Context, id string) error
}

type CompletionRepository interface {
	FindByID(ctx context.Context, id string) (models.TaskCompletion, error)
	Create(ctx context.Context, completion *models.TaskCompletion) error
}
