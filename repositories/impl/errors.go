package impl

import (
	"KidQuest/models"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintActiveSession  = "uq_device_sessions_active_child"
	constraintPendingRequest = "uq_spend_requests_pending"
	constraintIdempotency    = "uq_ledger_entries_idempotency"
)

// translateError maps driver errors onto the models error taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: %s", models.ErrTransientStore, pgErr.Message)
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case constraintActiveSession:
			return models.ErrConflict
		case constraintPendingRequest:
			return models.ErrDuplicateRequest
		case constraintIdempotency:
			return models.ErrDuplicateEarn
		default:
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
