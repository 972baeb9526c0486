package services

import (
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"fmt"
	"strings"
)

// RewardService maintains a parent's reward catalog.
type RewardService struct {
	store repositories.Store
	clock Clock
	log   *logger.Logger
}

func NewRewardService(store repositories.Store, clock Clock, log *logger.Logger) *RewardService {
	return &RewardService{store: store, clock: clock, log: log}
}

func (s *RewardService) CreateReward(ctx context.Context, parentID string, xpCost int64, description string) (models.Reward, error) {
	if xpCost <= 0 {
		return models.Reward{}, fmt.Errorf("%w: xp_cost must be positive", models.ErrInvalidInput)
	}
	reward := models.Reward{
		ID:          models.NewID(),
		ParentID:    parentID,
		XPCost:      xpCost,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.clock(),
	}
	if err := s.store.Rewards().Create(ctx, &reward); err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

func (s *RewardService) ListRewards(ctx context.Context, parentID string) ([]models.Reward, error) {
	return s.store.Rewards().ListByParent(ctx, parentID)
}

// DeleteReward hides the reward from the catalog. Pending requests for it can
// no longer be decided and are released by the stale sweep.
func (s *RewardService) DeleteReward(ctx context.Context, parentID, rewardID string) error {
	reward, err := s.store.Rewards().FindByID(ctx, rewardID)
	if err != nil {
		return err
	}
	if reward.ParentID != parentID {
		return models.ErrForbidden
	}
	if err := s.store.Rewards().Delete(ctx, rewardID); err != nil {
		return err
	}
	s.log.Infow("reward deleted", "reward_id", rewardID, "parent_id", parentID)
	return nil
}
