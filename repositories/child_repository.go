package repositories

import (
	"KidQuest/models"
	"context"
)

type ChildRepository interface {
	FindByID(ctx context.Context, id string) (models.Child, error)
	FindByCode(ctx context.Context, code string) (models.Child, error)
	CountByCode(ctx context.Context, code string) (int64, error)
	Create(ctx context.Context, child *models.Child) error
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id string) (models.Wallet, error)
	FindByChild(ctx context.Context, childID string) (models.Wallet, error)
	// LockByID loads the wallet and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id string) (models.Wallet, error)
}
