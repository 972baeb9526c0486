package services

import (
	"KidQuest/interfaces"
	"KidQuest/metrics"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const staleBatchSize = 100

// RedemptionService runs the reserve / commit / release handshake.
//
// Every write that moves XP locks the wallet row first and then the request
// row, so a balance check and the entry it guards always happen under the
// same wallet lock.
type RedemptionService struct {
	store  repositories.Store
	tx     txRunner
	ttl    time.Duration
	notify *NotificationService
	clock  Clock
	log    *logger.Logger
}

func NewRedemptionService(store repositories.Store, txMaxRetries int, ttl time.Duration, notify *NotificationService, clock Clock, log *logger.Logger) *RedemptionService {
	return &RedemptionService{
		store:  store,
		tx:     newTxRunner(store, txMaxRetries, log),
		ttl:    ttl,
		notify: notify,
		clock:  clock,
		log:    log,
	}
}

// RequestSpend reserves the reward's cost from the wallet and opens a PENDING
// request. The cost is read from the reward, never taken from the caller.
func (s *RedemptionService) RequestSpend(ctx context.Context, childID, walletID, rewardID string) (models.SpendRequest, error) {
	if childID == "" || walletID == "" || rewardID == "" {
		return models.SpendRequest{}, fmt.Errorf("%w: child_id, wallet_id and reward_id are required", models.ErrInvalidInput)
	}

	var req models.SpendRequest
	err := s.tx.run(ctx, "request_spend", func(tx repositories.Store) error {
		reward, err := tx.Rewards().FindByID(ctx, rewardID)
		if err != nil {
			return err
		}
		linked, err := tx.Links().Exists(ctx, reward.ParentID, childID)
		if err != nil {
			return err
		}
		if !linked {
			return fmt.Errorf("%w: reward belongs to another family", models.ErrForbidden)
		}

		wallet, err := tx.Wallets().LockByID(ctx, walletID)
		if err != nil {
			return err
		}
		if wallet.ChildID != childID {
			return fmt.Errorf("%w: wallet belongs to another child", models.ErrForbidden)
		}

		pending, err := tx.SpendRequests().HasPending(ctx, childID, rewardID)
		if err != nil {
			return err
		}
		if pending {
			return models.ErrDuplicateRequest
		}

		balance, err := walletBalance(ctx, tx, wallet.ID)
		if err != nil {
			return err
		}
		if balance.Available < reward.XPCost {
			return models.ErrInsufficientFunds
		}

		now := s.clock()
		reqID := models.NewID()
		reserve := models.LedgerEntry{
			ID:        models.NewID(),
			WalletID:  wallet.ID,
			ChildID:   childID,
			Amount:    -reward.XPCost,
			Kind:      models.EntryReserve,
			Ref:       &reqID,
			CreatedAt: now,
		}
		if err := tx.Ledger().Append(ctx, &reserve); err != nil {
			return err
		}

		req = models.SpendRequest{
			ID:             reqID,
			ChildID:        childID,
			WalletID:       wallet.ID,
			RewardID:       reward.ID,
			XPCost:         reward.XPCost,
			Status:         models.SpendPending,
			ReserveEntryID: reserve.ID,
			CreatedAt:      now,
			ExpiresAt:      now.Add(s.ttl),
		}
		return tx.SpendRequests().Create(ctx, &req)
	})
	if err != nil {
		return models.SpendRequest{}, err
	}

	metrics.LedgerEntries.WithLabelValues(string(models.EntryReserve)).Inc()
	metrics.SpendRequests.WithLabelValues(string(models.SpendPending)).Inc()
	s.log.Infow("spend requested", "child_id", childID, "request_id", req.ID, "reward_id", rewardID, "xp_cost", req.XPCost)
	s.notify.NotifyFamily(ctx, childID, interfaces.EventSpendRequested, req, &PushMessage{
		Title: "New reward request",
		Body:  "Your child wants to redeem " + strconv.FormatInt(req.XPCost, 10) + " XP",
		Data: map[string]string{
			"type":       interfaces.EventSpendRequested,
			"request_id": req.ID,
			"child_id":   childID,
		},
	})
	return req, nil
}

// Decide approves (COMMIT) or denies (RELEASE) a PENDING request. The parent
// must be linked to the child or own the reward.
func (s *RedemptionService) Decide(ctx context.Context, parentID, requestID string, approve bool) (models.SpendRequest, error) {
	if requestID == "" {
		return models.SpendRequest{}, fmt.Errorf("%w: request_id is required", models.ErrInvalidInput)
	}

	// the wallet id is needed before any lock can be taken
	pre, err := s.store.SpendRequests().FindByID(ctx, requestID)
	if err != nil {
		return models.SpendRequest{}, err
	}

	var req models.SpendRequest
	err = s.tx.run(ctx, "decide_spend", func(tx repositories.Store) error {
		if _, err := tx.Wallets().LockByID(ctx, pre.WalletID); err != nil {
			return err
		}
		var err error
		req, err = tx.SpendRequests().LockByID(ctx, requestID)
		if err != nil {
			return err
		}

		if err := authorizeDecision(ctx, tx, parentID, req); err != nil {
			return err
		}
		if !req.IsPending() {
			return models.ErrAlreadyDecided
		}
		if _, err := tx.Rewards().FindByID(ctx, req.RewardID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: reward no longer exists", models.ErrInvalidState)
			}
			return err
		}

		now := s.clock()
		entry := models.LedgerEntry{
			ID:        models.NewID(),
			WalletID:  req.WalletID,
			ChildID:   req.ChildID,
			Ref:       &req.ID,
			CreatedAt: now,
		}
		if approve {
			entry.Kind = models.EntryCommit
			entry.Amount = -req.XPCost
			req.Status = models.SpendApproved
		} else {
			entry.Kind = models.EntryRelease
			entry.Amount = req.XPCost
			req.Status = models.SpendDenied
		}
		if err := tx.Ledger().Append(ctx, &entry); err != nil {
			return err
		}

		decidedBy := parentID
		req.DecidedBy = &decidedBy
		req.DecidedAt = &now
		return tx.SpendRequests().Update(ctx, req)
	})
	if err != nil {
		return models.SpendRequest{}, err
	}

	if approve {
		metrics.LedgerEntries.WithLabelValues(string(models.EntryCommit)).Inc()
	} else {
		metrics.LedgerEntries.WithLabelValues(string(models.EntryRelease)).Inc()
	}
	metrics.SpendRequests.WithLabelValues(string(req.Status)).Inc()
	s.log.Infow("spend decided", "request_id", req.ID, "child_id", req.ChildID, "status", req.Status, "parent_id", parentID)
	s.notify.NotifyFamily(ctx, req.ChildID, interfaces.EventSpendDecided, req, nil)
	return req, nil
}

func authorizeDecision(ctx context.Context, tx repositories.Store, parentID string, req models.SpendRequest) error {
	linked, err := tx.Links().Exists(ctx, parentID, req.ChildID)
	if err != nil {
		return err
	}
	if linked {
		return nil
	}
	reward, err := tx.Rewards().FindByID(ctx, req.RewardID)
	if err == nil && reward.ParentID == parentID {
		return nil
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return models.ErrForbidden
}

// ExpireStale releases every PENDING request created more than the TTL before now.
// Each request is expired in its own transaction; the first failure stops the sweep.
func (s *RedemptionService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.ttl)
	expired := 0

	for {
		stale, err := s.store.SpendRequests().ListStale(ctx, cutoff, staleBatchSize)
		if err != nil {
			return expired, err
		}

		for _, candidate := range stale {
			ok, err := s.expireOne(ctx, candidate, now)
			if err != nil {
				return expired, fmt.Errorf("expire request %s: %w", candidate.ID, err)
			}
			if ok {
				expired++
			}
		}
		if len(stale) < staleBatchSize {
			break
		}
	}

	if expired > 0 {
		s.log.Infow("stale spend requests expired", "count", expired)
	}
	return expired, nil
}

func (s *RedemptionService) expireOne(ctx context.Context, candidate models.SpendRequest, now time.Time) (bool, error) {
	var (
		req     models.SpendRequest
		expired bool
	)
	err := s.tx.run(ctx, "expire_spend", func(tx repositories.Store) error {
		expired = false
		if _, err := tx.Wallets().LockByID(ctx, candidate.WalletID); err != nil {
			return err
		}
		var err error
		req, err = tx.SpendRequests().LockByID(ctx, candidate.ID)
		if err != nil {
			return err
		}
		// decided while we were listing
		if !req.IsPending() {
			return nil
		}

		release := models.LedgerEntry{
			ID:        models.NewID(),
			WalletID:  req.WalletID,
			ChildID:   req.ChildID,
			Amount:    req.XPCost,
			Kind:      models.EntryRelease,
			Ref:       &req.ID,
			CreatedAt: now,
		}
		if err := tx.Ledger().Append(ctx, &release); err != nil {
			return err
		}
		req.Status = models.SpendExpired
		req.DecidedAt = &now
		if err := tx.SpendRequests().Update(ctx, req); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil || !expired {
		return false, err
	}

	metrics.LedgerEntries.WithLabelValues(string(models.EntryRelease)).Inc()
	metrics.SpendRequests.WithLabelValues(string(models.SpendExpired)).Inc()
	s.notify.NotifyFamily(ctx, req.ChildID, interfaces.EventSpendExpired, req, nil)
	return true, nil
}

// ListRequests returns the child's requests newest first, optionally filtered by status.
func (s *RedemptionService) ListRequests(ctx context.Context, parentID, childID string, status *models.SpendStatus) ([]models.SpendRequest, error) {
	if err := requireLink(ctx, s.store, parentID, childID); err != nil {
		return nil, err
	}
	return s.store.SpendRequests().ListByChild(ctx, childID, status)
}
