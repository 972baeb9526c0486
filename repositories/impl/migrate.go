package impl

import (
	"KidQuest/models"
	"fmt"

	"gorm.io/gorm"
)

// partialIndexes are the invariants gorm tags cannot express.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintActiveSession + `
		ON device_sessions (child_id) WHERE is_active AND NOT revoked`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintPendingRequest + `
		ON spend_requests (child_id, reward_id) WHERE status = 'PENDING'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + constraintIdempotency + `
		ON ledger_entries (wallet_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Parent{},
		&models.Child{},
		&models.ParentChildLink{},
		&models.Wallet{},
		&models.DeviceSession{},
		&models.LedgerEntry{},
		&models.SpendRequest{},
		&models.Reward{},
		&models.TaskCompletion{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
