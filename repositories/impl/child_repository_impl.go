package impl

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChildRepositoryImpl struct {
	DB *gorm.DB
}

func NewChildRepository(db *gorm.DB) repositories.ChildRepository {
	return &ChildRepositoryImpl{DB: db}
}

func (r *ChildRepositoryImpl) FindByID(ctx context.Context, id string) (models.Child, error) {
	var child models.Child
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&child).Error; err != nil {
		return models.Child{}, translateError(err)
	}
	return child, nil
}

func (r *ChildRepositoryImpl) FindByCode(ctx context.Context, code string) (models.Child, error) {
	var child models.Child
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&child).Error; err != nil {
		return models.Child{}, translateError(err)
	}
	return child, nil
}

func (r *ChildRepositoryImpl) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Child{}).Where("code = ?", code).Count(&count).Error
	return count, translateError(err)
}

func (r *ChildRepositoryImpl) Create(ctx context.Context, child *models.Child) error {
	if child.ID == "" {
		child.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(child).Error)
}

type WalletRepositoryImpl struct {
	DB *gorm.DB
}

func (r *WalletRepositoryImpl) Create(ctx context.Context, wallet *models.Wallet) error {
	if wallet.ID == "" {
		wallet.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(wallet).Error)
}

func (r *WalletRepositoryImpl) FindByID(ctx context.Context, id string) (models.Wallet, error) {
	var wallet models.Wallet
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&wallet).Error; err != nil {
		return models.Wallet{}, translateError(err)
	}
	return wallet, nil
}

func (r *WalletRepositoryImpl) FindByChild(ctx context.Context, childID string) (models.Wallet, error) {
	var wallet models.Wallet
	if err := r.DB.WithContext(ctx).Where("child_id = ?", childID).First(&wallet).Error; err != nil {
		return models.Wallet{}, translateError(err)
	}
	return wallet, nil
}

// LockByID issues SELECT ... FOR UPDATE on the wallet row.
func (r *WalletRepositoryImpl) LockByID(ctx context.Context, id string) (models.Wallet, error) {
	var wallet models.Wallet
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wallet).Error
	if err != nil {
		return models.Wallet{}, translateError(err)
	}
	return wallet, nil
}
