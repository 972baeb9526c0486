package services

import (
	"KidQuest/metrics"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"errors"
	"time"
)

const txBackoff = 20 * time.Millisecond

// txRunner retries a transaction that the store aborted for transient reasons.
// fn must be safe to run more than once.
type txRunner struct {
	store       repositories.Store
	maxAttempts int
	log         *logger.Logger
}

func newTxRunner(store repositories.Store, maxAttempts int, log *logger.Logger) txRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return txRunner{store: store, maxAttempts: maxAttempts, log: log}
}

func (r txRunner) run(ctx context.Context, op string, fn func(tx repositories.Store) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = r.store.Tx(ctx, fn)
		if !errors.Is(err, models.ErrTransientStore) || attempt == r.maxAttempts {
			return err
		}

		metrics.TxRetries.Inc()
		r.log.Warnw("retrying transaction", "op", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txBackoff):
		}
	}
	return err
}
