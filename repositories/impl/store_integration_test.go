package impl

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Тесты против настоящего Postgres, запускаются только с KIDQUEST_DATABASE_DSN.
func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("KIDQUEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("KIDQUEST_DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	store := NewGormStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGorm_ActiveSessionIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	childID := models.NewID()

	first := &models.DeviceSession{ChildID: childID, ParentID: models.NewID(), DeviceID: "d1", IsActive: true}
	require.NoError(t, store.Sessions().Create(ctx, first))

	second := &models.DeviceSession{ChildID: childID, ParentID: first.ParentID, DeviceID: "d2", IsActive: true}
	assert.ErrorIs(t, store.Sessions().Create(ctx, second), models.ErrConflict)

	live, err := store.Sessions().FindLive(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, live.ID)
}

func TestGorm_ConcurrentCreateUnderAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	childID := models.NewID()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Tx(ctx, func(tx repositories.Store) error {
				if err := tx.Sessions().LockChild(ctx, childID); err != nil {
					return err
				}
				if _, err := tx.Sessions().FindLive(ctx, childID); err == nil {
					return models.ErrConflict
				} else if !errors.Is(err, models.ErrNotFound) {
					return err
				}
				return tx.Sessions().Create(ctx, &models.DeviceSession{ChildID: childID, ParentID: "p", DeviceID: "d", IsActive: true})
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestGorm_PendingRequestIndexAndStale(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	childID, rewardID := models.NewID(), models.NewID()
	created := time.Now().Add(-time.Hour).UTC()

	req := &models.SpendRequest{ChildID: childID, WalletID: models.NewID(), RewardID: rewardID, XPCost: 5,
		Status: models.SpendPending, ReserveEntryID: models.NewID(), CreatedAt: created}
	require.NoError(t, store.SpendRequests().Create(ctx, req))

	dup := *req
	dup.ID = ""
	assert.ErrorIs(t, store.SpendRequests().Create(ctx, &dup), models.ErrDuplicateRequest)

	has, err := store.SpendRequests().HasPending(ctx, childID, rewardID)
	require.NoError(t, err)
	assert.True(t, has)

	stale, err := store.SpendRequests().ListStale(ctx, created.Add(time.Second), 100)
	require.NoError(t, err)
	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, req.ID)
}

func TestGorm_LedgerTotalsAndRollback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	walletID, childID := models.NewID(), models.NewID()

	require.NoError(t, store.Ledger().Append(ctx, &models.LedgerEntry{WalletID: walletID, ChildID: childID, Amount: 10, Kind: models.EntryEarn}))

	boom := errors.New("boom")
	err := store.Tx(ctx, func(tx repositories.Store) error {
		if err := tx.Ledger().Append(ctx, &models.LedgerEntry{WalletID: walletID, ChildID: childID, Amount: -10, Kind: models.EntryReserve}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	totals, err := store.Ledger().Totals(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{Earned: 10, Available: 10}, totals.Fold())
}

func TestGorm_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	walletID := models.NewID()
	key := "completion-" + models.NewID()

	require.NoError(t, store.Ledger().Append(ctx, &models.LedgerEntry{WalletID: walletID, ChildID: "c", Amount: 3, Kind: models.EntryEarn, IdempotencyKey: &key}))
	err := store.Ledger().Append(ctx, &models.LedgerEntry{WalletID: walletID, ChildID: "c", Amount: 3, Kind: models.EntryEarn, IdempotencyKey: &key})
	assert.ErrorIs(t, err, models.ErrDuplicateEarn)

	found, err := store.Ledger().FindByIdempotencyKey(ctx, walletID, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.Amount)
}
