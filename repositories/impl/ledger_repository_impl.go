package impl

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepositoryImpl struct {
	DB *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) repositories.LedgerRepository {
	return &LedgerRepositoryImpl{DB: db}
}

func (r *LedgerRepositoryImpl) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(entry).Error)
}

func (r *LedgerRepositoryImpl) FindByIdempotencyKey(ctx context.Context, walletID, key string) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.DB.WithContext(ctx).
		Where("wallet_id = ? AND idempotency_key = ?", walletID, key).
		First(&entry).Error
	if err != nil {
		return models.LedgerEntry{}, translateError(err)
	}
	return entry, nil
}

func (r *LedgerRepositoryImpl) Totals(ctx context.Context, walletID string) (models.KindTotals, error) {
	var rows []struct {
		Kind  models.EntryKind
		Total int64
	}
	err := r.DB.WithContext(ctx).Model(&models.LedgerEntry{}).
		Select("kind, COALESCE(SUM(ABS(amount)), 0) AS total").
		Where("wallet_id = ?", walletID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	totals := models.KindTotals{}
	for _, row := range rows {
		totals[row.Kind] = row.Total
	}
	return totals, nil
}

func (r *LedgerRepositoryImpl) ListByWallet(ctx context.Context, walletID string, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	q := r.DB.WithContext(ctx).Where("wallet_id = ?", walletID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, translateError(err)
}

type SpendRequestRepositoryImpl struct {
	DB *gorm.DB
}

func NewSpendRequestRepository(db *gorm.DB) repositories.SpendRequestRepository {
	return &SpendRequestRepositoryImpl{DB: db}
}

func (r *SpendRequestRepositoryImpl) Create(ctx context.Context, req *models.SpendRequest) error {
	if req.ID == "" {
		req.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(req).Error)
}

func (r *SpendRequestRepositoryImpl) FindByID(ctx context.Context, id string) (models.SpendRequest, error) {
	var req models.SpendRequest
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return models.SpendRequest{}, translateError(err)
	}
	return req, nil
}

func (r *SpendRequestRepositoryImpl) LockByID(ctx context.Context, id string) (models.SpendRequest, error) {
	var req models.SpendRequest
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return models.SpendRequest{}, translateError(err)
	}
	return req, nil
}

func (r *SpendRequestRepositoryImpl) HasPending(ctx context.Context, childID, rewardID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.SpendRequest{}).
		Where("child_id = ? AND reward_id = ? AND status = ?", childID, rewardID, models.SpendPending).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *SpendRequestRepositoryImpl) Update(ctx context.Context, req models.SpendRequest) error {
	err := r.DB.WithContext(ctx).Model(&models.SpendRequest{}).
		Where("id = ?", req.ID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"decided_by": req.DecidedBy,
			"decided_at": req.DecidedAt,
		}).Error
	return translateError(err)
}

func (r *SpendRequestRepositoryImpl) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.SpendRequest, error) {
	var reqs []models.SpendRequest
	q := r.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.SpendPending, cutoff).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&reqs).Error
	return reqs, translateError(err)
}

func (r *SpendRequestRepositoryImpl) ListByChild(ctx context.Context, childID string, status *models.SpendStatus) ([]models.SpendRequest, error) {
	var reqs []models.SpendRequest
	q := r.DB.WithContext(ctx).Where("child_id = ?", childID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	err := q.Order("created_at DESC").Find(&reqs).Error
	return reqs, translateError(err)
}

type RewardRepositoryImpl struct {
	DB *gorm.DB
}

func (r *RewardRepositoryImpl) Create(ctx context.Context, reward *models.Reward) error {
	if reward.ID == "" {
		reward.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(reward).Error)
}

func (r *RewardRepositoryImpl) FindByID(ctx context.Context, id string) (models.Reward, error) {
	var reward models.Reward
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&reward).Error; err != nil {
		return models.Reward{}, translateError(err)
	}
	return reward, nil
}

func (r *RewardRepositoryImpl) ListByParent(ctx context.Context, parentID string) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.DB.WithContext(ctx).Where("parent_id = ?", parentID).Order("created_at").Find(&rewards).Error
	return rewards, translateError(err)
}

// Delete soft-deletes the reward; pending requests keep their reference.
func (r *RewardRepositoryImpl) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Reward{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

type CompletionRepositoryImpl struct {
	DB *gorm.DB
}

func (r *CompletionRepositoryImpl) FindByID(ctx context.Context, id string) (models.TaskCompletion, error) {
	var completion models.TaskCompletion
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&completion).Error; err != nil {
		return models.TaskCompletion{}, translateError(err)
	}
	return completion, nil
}

func (r *CompletionRepositoryImpl) Create(ctx context.Context, completion *models.TaskCompletion) error {
	if completion.ID == "" {
		completion.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(completion).Error)
}
