package repositories

import "context"

// Store is the unit of work over all repositories.
//
// Repositories obtained from the Store passed to Tx's callback are bound to that
// transaction; an error returned from the callback rolls every write back.
// Lock* methods only have an effect inside Tx.
type Store interface {
	Parents() ParentRepository
	Children() ChildRepository
	Links() LinkRepository
	Wallets() WalletRepository
	Sessions() SessionRepository
	Ledger() LedgerRepository
	SpendRequests() SpendRequestRepository
	Rewards() RewardRepository
	Completions() CompletionRepository

	Tx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
