package services

import (
	"KidQuest/pkg/logger"
	"context"
	"time"
)

// Sweeper periodically expires stale spend requests and elapsed sessions.
type Sweeper struct {
	redemption *RedemptionService
	sessions   *SessionService
	interval   time.Duration
	clock      Clock
	log        *logger.Logger
}

func NewSweeper(redemption *RedemptionService, sessions *SessionService, interval time.Duration, clock Clock, log *logger.Logger) *Sweeper {
	return &Sweeper{
		redemption: redemption,
		sessions:   sessions,
		interval:   interval,
		clock:      clock,
		log:        log,
	}
}

// SweepOnce runs both passes. A session pass failure does not skip the request pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (expiredRequests int, closedSessions int64, err error) {
	now := s.clock()

	closedSessions, serr := s.sessions.ExpireElapsed(ctx, now)
	if serr != nil {
		s.log.Errorw("session sweep failed", "error", serr)
	}

	expiredRequests, err = s.redemption.ExpireStale(ctx, now)
	if err != nil {
		s.log.Errorw("spend request sweep failed", "error", err)
		return expiredRequests, closedSessions, err
	}
	return expiredRequests, closedSessions, serr
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infow("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			_, _, _ = s.SweepOnce(ctx)
		}
	}
}
