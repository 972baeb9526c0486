package services

import (
	"KidQuest/metrics"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultHistoryLimit = 100

// LedgerService appends XP movements and derives balances from them.
type LedgerService struct {
	store repositories.Store
	tx    txRunner
	clock Clock
	log   *logger.Logger
}

func NewLedgerService(store repositories.Store, txMaxRetries int, clock Clock, log *logger.Logger) *LedgerService {
	return &LedgerService{
		store: store,
		tx:    newTxRunner(store, txMaxRetries, log),
		clock: clock,
		log:   log,
	}
}

// Earn credits amount to the child's wallet. source is the idempotency key:
// a second call with the same source returns the first entry unchanged.
func (s *LedgerService) Earn(ctx context.Context, childID string, amount int64, source string) (models.LedgerEntry, error) {
	if amount <= 0 {
		return models.LedgerEntry{}, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}
	if source == "" {
		return models.LedgerEntry{}, fmt.Errorf("%w: source is required", models.ErrInvalidInput)
	}

	var entry models.LedgerEntry
	err := s.tx.run(ctx, "earn", func(tx repositories.Store) error {
		wallet, err := tx.Wallets().FindByChild(ctx, childID)
		if err != nil {
			return err
		}
		entry, _, err = appendEarn(ctx, tx, wallet, amount, source, s.clock())
		return err
	})
	return entry, err
}

// appendEarn writes one EARN entry keyed by source under the wallet lock.
func appendEarn(ctx context.Context, tx repositories.Store, wallet models.Wallet, amount int64, source string, now time.Time) (models.LedgerEntry, bool, error) {
	if _, err := tx.Wallets().LockByID(ctx, wallet.ID); err != nil {
		return models.LedgerEntry{}, false, err
	}

	existing, err := tx.Ledger().FindByIdempotencyKey(ctx, wallet.ID, source)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.LedgerEntry{}, false, err
	}

	key := source
	entry := models.LedgerEntry{
		ID:             models.NewID(),
		WalletID:       wallet.ID,
		ChildID:        wallet.ChildID,
		Amount:         amount,
		Kind:           models.EntryEarn,
		IdempotencyKey: &key,
		CreatedAt:      now,
	}
	if err := tx.Ledger().Append(ctx, &entry); err != nil {
		return models.LedgerEntry{}, false, err
	}
	metrics.LedgerEntries.WithLabelValues(string(models.EntryEarn)).Inc()
	return entry, false, nil
}

// Balance folds every entry of the child's wallet.
func (s *LedgerService) Balance(ctx context.Context, childID string) (models.Balance, error) {
	wallet, err := s.store.Wallets().FindByChild(ctx, childID)
	if err != nil {
		return models.Balance{}, err
	}
	return walletBalance(ctx, s.store, wallet.ID)
}

func walletBalance(ctx context.Context, store repositories.Store, walletID string) (models.Balance, error) {
	totals, err := store.Ledger().Totals(ctx, walletID)
	if err != nil {
		return models.Balance{}, err
	}
	return totals.Fold(), nil
}

// History returns the newest entries of the child's wallet first.
func (s *LedgerService) History(ctx context.Context, childID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	wallet, err := s.store.Wallets().FindByChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	return s.store.Ledger().ListByWallet(ctx, wallet.ID, limit)
}

