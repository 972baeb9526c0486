// Package memory is an in-process repositories.Store used by tests and by
// the server when no database is configured.
//
// All state sits behind a single mutex. Tx runs its callback on a copy of the
// data and swaps the copy in only on success, so a failed callback leaves no
// trace. Holding the mutex for the whole Tx makes every transaction
// serializable; the Lock* methods therefore have nothing left to do.
package memory

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"
	"sync"
)

type data struct {
	parents     map[string]models.Parent
	children    map[string]models.Child
	links       []models.ParentChildLink
	wallets     map[string]models.Wallet
	sessions    []models.DeviceSession
	entries     []models.LedgerEntry
	requests    []models.SpendRequest
	rewards     map[string]models.Reward
	completions map[string]models.TaskCompletion
}

func newData() *data {
	return &data{
		parents:     map[string]models.Parent{},
		children:    map[string]models.Child{},
		wallets:     map[string]models.Wallet{},
		rewards:     map[string]models.Reward{},
		completions: map[string]models.TaskCompletion{},
	}
}

func (d *data) clone() *data {
	c := &data{
		parents:     make(map[string]models.Parent, len(d.parents)),
		children:    make(map[string]models.Child, len(d.children)),
		links:       append([]models.ParentChildLink(nil), d.links...),
		wallets:     make(map[string]models.Wallet, len(d.wallets)),
		sessions:    append([]models.DeviceSession(nil), d.sessions...),
		entries:     append([]models.LedgerEntry(nil), d.entries...),
		requests:    append([]models.SpendRequest(nil), d.requests...),
		rewards:     make(map[string]models.Reward, len(d.rewards)),
		completions: make(map[string]models.TaskCompletion, len(d.completions)),
	}
	for k, v := range d.parents {
		c.parents[k] = v
	}
	for k, v := range d.children {
		c.children[k] = v
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.rewards {
		c.rewards[k] = v
	}
	for k, v := range d.completions {
		c.completions[k] = v
	}
	return c
}

// runner executes fn against the data visible to a repository.
type runner func(fn func(d *data) error) error

// Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	data *data
}

func NewStore() *Store {
	return &Store{data: newData()}
}

func (s *Store) run(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Parents() repositories.ParentRepository             { return &parentRepo{run: s.run} }
func (s *Store) Children() repositories.ChildRepository             { return &childRepo{run: s.run} }
func (s *Store) Links() repositories.LinkRepository                 { return &linkRepo{run: s.run} }
func (s *Store) Wallets() repositories.WalletRepository             { return &walletRepo{run: s.run} }
func (s *Store) Sessions() repositories.SessionRepository           { return &sessionRepo{run: s.run} }
func (s *Store) Ledger() repositories.LedgerRepository              { return &ledgerRepo{run: s.run} }
func (s *Store) SpendRequests() repositories.SpendRequestRepository { return &requestRepo{run: s.run} }
func (s *Store) Rewards() repositories.RewardRepository             { return &rewardRepo{run: s.run} }
func (s *Store) Completions() repositories.CompletionRepository     { return &completionRepo{run: s.run} }

func (s *Store) Tx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{data: s.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// txStore is the view handed to a Tx callback. The outer mutex is already held.
type txStore struct {
	data *data
}

func (t *txStore) run(fn func(d *data) error) error {
	return fn(t.data)
}

func (t *txStore) Parents() repositories.ParentRepository             { return &parentRepo{run: t.run} }
func (t *txStore) Children() repositories.ChildRepository             { return &childRepo{run: t.run} }
func (t *txStore) Links() repositories.LinkRepository                 { return &linkRepo{run: t.run} }
func (t *txStore) Wallets() repositories.WalletRepository             { return &walletRepo{run: t.run} }
func (t *txStore) Sessions() repositories.SessionRepository           { return &sessionRepo{run: t.run} }
func (t *txStore) Ledger() repositories.LedgerRepository              { return &ledgerRepo{run: t.run} }
func (t *txStore) SpendRequests() repositories.SpendRequestRepository { return &requestRepo{run: t.run} }
func (t *txStore) Rewards() repositories.RewardRepository             { return &rewardRepo{run: t.run} }
func (t *txStore) Completions() repositories.CompletionRepository     { return &completionRepo{run: t.run} }

// Tx inside a transaction joins it.
func (t *txStore) Tx(_ context.Context, fn func(tx repositories.Store) error) error {
	return fn(t)
}

func (t *txStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
