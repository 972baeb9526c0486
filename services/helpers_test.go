package services

import (
	"KidQuest/interfaces"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"KidQuest/repositories/memory"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testTTL = 72 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]interfaces.FamilyEvent
}

func (p *recordingPublisher) Publish(parentID string, event interfaces.FamilyEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]interfaces.FamilyEvent{}
	}
	p.events[parentID] = append(p.events[parentID], event)
}

func (p *recordingPublisher) types(parentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events[parentID] {
		out = append(out, e.Type)
	}
	return out
}

// flakyStore fails the first n transactions with a transient error.
type flakyStore struct {
	repositories.Store
	failures atomic.Int32
	calls    atomic.Int32
}

func (s *flakyStore) Tx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.calls.Add(1)
	if s.failures.Add(-1) >= 0 {
		return models.ErrTransientStore
	}
	return s.Store.Tx(ctx, fn)
}

type testEnv struct {
	store      repositories.Store
	clock      *fakeClock
	events     *recordingPublisher
	auth       *AuthService
	sessions   *SessionService
	ledger     *LedgerService
	redemption *RedemptionService
	rewards    *RewardService
	tasks      *TaskService
}

func newTestEnvWithStore(t *testing.T, store repositories.Store) *testEnv {
	t.Helper()
	log := logger.NewNop()
	clock := newFakeClock()
	events := &recordingPublisher{}
	notify := NewNotificationService(store, events, nil, clock.Now, log)

	auth := NewAuthService(store, AuthConfig{
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		ParentCodeTTL: 24 * time.Hour,
		TxMaxRetries:  3,
	}, nil, clock.Now, log)
	auth.hashCost = bcrypt.MinCost

	sessions := NewSessionService(store, 3, notify, clock.Now, log)
	return &testEnv{
		store:      store,
		clock:      clock,
		events:     events,
		auth:       auth,
		sessions:   sessions,
		ledger:     NewLedgerService(store, 3, clock.Now, log),
		redemption: NewRedemptionService(store, 3, testTTL, notify, clock.Now, log),
		rewards:    NewRewardService(store, clock.Now, log),
		tasks:      NewTaskService(store, 3, sessions, FixedXPRule(10), notify, clock.Now, log),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, memory.NewStore())
}

type family struct {
	parent models.Parent
	child  models.Child
	wallet models.Wallet
}

func (e *testEnv) newFamily(t *testing.T, email string) family {
	t.Helper()
	ctx := context.Background()
	parent, _, err := e.auth.RegisterParent(ctx, "en", "Parent", email, "password")
	require.NoError(t, err)
	child, wallet, err := e.auth.RegisterChild(ctx, "en", parent.Code, "Kid")
	require.NoError(t, err)
	return family{parent: parent, child: child, wallet: wallet}
}

func (e *testEnv) fund(t *testing.T, f family, amount int64) {
	t.Helper()
	_, err := e.ledger.Earn(context.Background(), f.child.ID, amount, models.NewID())
	require.NoError(t, err)
}

func (e *testEnv) reward(t *testing.T, f family, cost int64) models.Reward {
	t.Helper()
	reward, err := e.rewards.CreateReward(context.Background(), f.parent.ID, cost, "prize")
	require.NoError(t, err)
	return reward
}

func (e *testEnv) balance(t *testing.T, f family) models.Balance {
	t.Helper()
	b, err := e.ledger.Balance(context.Background(), f.child.ID)
	require.NoError(t, err)
	return b
}

// racedEarnStore commits a competing EARN under key right before the next
// transaction and hides it from that transaction's idempotency lookup,
// as if the other writer won the race after our read.
type racedEarnStore struct {
	repositories.Store
	walletID string
	key      string
	amount   int64
	armed    atomic.Bool
	winner   models.LedgerEntry
}

func (s *racedEarnStore) Tx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if !s.armed.CompareAndSwap(true, false) {
		return s.Store.Tx(ctx, fn)
	}
	key := s.key
	s.winner = models.LedgerEntry{WalletID: s.walletID, Amount: s.amount, Kind: models.EntryEarn, IdempotencyKey: &key}
	if err := s.Store.Ledger().Append(ctx, &s.winner); err != nil {
		return err
	}
	return s.Store.Tx(ctx, func(tx repositories.Store) error {
		return fn(blindLedgerStore{Store: tx})
	})
}

type blindLedgerStore struct{ repositories.Store }

func (s blindLedgerStore) Ledger() repositories.LedgerRepository {
	return blindLedger{LedgerRepository: s.Store.Ledger()}
}

type blindLedger struct{ repositories.LedgerRepository }

func (blindLedger) FindByIdempotencyKey(context.Context, string, string) (models.LedgerEntry, error) {
	return models.LedgerEntry{}, models.ErrNotFound
}
