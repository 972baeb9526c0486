package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized - отсутствующие или неверные учетные данные.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a valid parent is not linked to the child (or does not own the reward).
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a child already has an active, unrevoked device session.
	ErrConflict = errors.New("active session already exists")

	// ErrInvalidSession is returned when a device is not authorized to act as the child right now.
	ErrInvalidSession = errors.New("invalid session")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateRequest  = errors.New("duplicate pending request")
	ErrAlreadyDecided    = errors.New("request already decided")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")

	// ErrInvalidState is returned when a request can no longer be decided (e.g. its reward was deleted).
	ErrInvalidState = errors.New("invalid state")

	// ErrTransientStore is returned when a transaction was aborted by the database
	// (serialization failure, deadlock). The whole transaction may be retried.
	ErrTransientStore = errors.New("transient store error")

	// ErrDuplicateEarn reports an EARN whose idempotency key another writer committed first.
	// It is transient: the retried transaction finds that entry and returns it.
	ErrDuplicateEarn = fmt.Errorf("%w: %w: earn already recorded", ErrTransientStore, ErrConflict)
)

// InvalidSessionError carries the Authorize reason behind ErrInvalidSession.
type InvalidSessionError struct {
	Reason string
}

func (e InvalidSessionError) Error() string {
	if e.Reason == "" {
		return ErrInvalidSession.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSession.Error(), e.Reason)
}

func (e InvalidSessionError) Unwrap() error { return ErrInvalidSession }
