package impl

import (
	"KidQuest/repositories"
	"context"

	"gorm.io/gorm"
)

// GormStore implements repositories.Store on Postgres through gorm.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Parents() repositories.ParentRepository     { return NewParentRepository(s.DB) }
func (s *GormStore) Children() repositories.ChildRepository     { return NewChildRepository(s.DB) }
func (s *GormStore) Links() repositories.LinkRepository         { return &LinkRepositoryImpl{DB: s.DB} }
func (s *GormStore) Wallets() repositories.WalletRepository     { return &WalletRepositoryImpl{DB: s.DB} }
func (s *GormStore) Sessions() repositories.SessionRepository   { return NewSessionRepository(s.DB) }
func (s *GormStore) Ledger() repositories.LedgerRepository      { return NewLedgerRepository(s.DB) }
func (s *GormStore) Rewards() repositories.RewardRepository     { return &RewardRepositoryImpl{DB: s.DB} }
func (s *GormStore) Completions() repositories.CompletionRepository {
	return &CompletionRepositoryImpl{DB: s.DB}
}
func (s *GormStore) SpendRequests() repositories.SpendRequestRepository {
	return NewSpendRequestRepository(s.DB)
}

// Tx runs fn inside a read-committed transaction. Serialization is provided by
// explicit row and advisory locks taken by the callers, not by the isolation level.
func (s *GormStore) Tx(ctx context.Context, fn func(tx repositories.Store) error) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
	return translateError(err)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
