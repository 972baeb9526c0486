package services

import (
	"KidQuest/interfaces"
	"KidQuest/metrics"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionService owns the per-child device session state machine.
// At most one row per child is live (is_active AND NOT revoked).
type SessionService struct {
	store  repositories.Store
	tx     txRunner
	notify *NotificationService
	clock  Clock
	log    *logger.Logger
}

func NewSessionService(store repositories.Store, txMaxRetries int, notify *NotificationService, clock Clock, log *logger.Logger) *SessionService {
	return &SessionService{
		store:  store,
		tx:     newTxRunner(store, txMaxRetries, log),
		notify: notify,
		clock:  clock,
		log:    log,
	}
}

// CreateSession grants deviceID the right to act as childID until sessionEnd
// (nil means open-ended). A live session whose window already closed is
// deactivated first; any other live session yields models.ErrConflict.
func (s *SessionService) CreateSession(ctx context.Context, parentID, childID, deviceID string, sessionEnd *time.Time) (models.DeviceSession, error) {
	if deviceID == "" {
		return models.DeviceSession{}, fmt.Errorf("%w: device_id is required", models.ErrInvalidInput)
	}
	if sessionEnd != nil {
		end := sessionEnd.UTC()
		if !end.After(s.clock()) {
			return models.DeviceSession{}, fmt.Errorf("%w: session_end must be in the future", models.ErrInvalidInput)
		}
		sessionEnd = &end
	}

	var session models.DeviceSession
	err := s.tx.run(ctx, "create_session", func(tx repositories.Store) error {
		if err := requireLink(ctx, tx, parentID, childID); err != nil {
			return err
		}
		if err := tx.Sessions().LockChild(ctx, childID); err != nil {
			return err
		}

		now := s.clock()
		live, err := tx.Sessions().FindLive(ctx, childID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		case live.ExpiredAt(now):
			live.IsActive = false
			if err := tx.Sessions().Update(ctx, live); err != nil {
				return err
			}
		default:
			return models.ErrConflict
		}

		session = models.DeviceSession{
			ID:         models.NewID(),
			ChildID:    childID,
			ParentID:   parentID,
			DeviceID:   deviceID,
			IsActive:   true,
			SessionEnd: sessionEnd,
			CreatedAt:  now,
		}
		return tx.Sessions().Create(ctx, &session)
	})
	if err != nil {
		return models.DeviceSession{}, err
	}

	s.log.Infow("session started", "child_id", childID, "session_id", session.ID, "device_id", deviceID)
	s.notify.NotifyFamily(ctx, childID, interfaces.EventSessionStarted, session, nil)
	return session, nil
}

// Authorize checks whether deviceID may act as childID right now. Expiry is
// evaluated here, at read time.
func (s *SessionService) Authorize(ctx context.Context, childID, deviceID string) (models.Authorization, error) {
	decision, err := s.authorize(ctx, childID, deviceID)
	if err != nil {
		return models.Authorization{}, err
	}
	metrics.SessionDecisions.WithLabelValues(decision.Reason).Inc()
	return decision, nil
}

func (s *SessionService) authorize(ctx context.Context, childID, deviceID string) (models.Authorization, error) {
	live, err := s.store.Sessions().FindLive(ctx, childID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Authorization{Reason: models.ReasonNoActiveSession}, nil
	}
	if err != nil {
		return models.Authorization{}, err
	}

	if live.DeviceID != deviceID {
		return models.Authorization{Reason: models.ReasonDeviceMismatch}, nil
	}
	if live.ExpiredAt(s.clock()) {
		return models.Authorization{Reason: models.ReasonSessionExpired}, nil
	}
	return models.Authorization{Valid: true, Reason: models.ReasonOK, SessionID: live.ID}, nil
}

// RequireSession is Authorize for write paths: an invalid decision becomes a
// models.InvalidSessionError.
func (s *SessionService) RequireSession(ctx context.Context, childID, deviceID string) (string, error) {
	decision, err := s.Authorize(ctx, childID, deviceID)
	if err != nil {
		return "", err
	}
	if !decision.Valid {
		return "", models.InvalidSessionError{Reason: decision.Reason}
	}
	return decision.SessionID, nil
}

// Stop ends the live session. Without one it succeeds and changes nothing.
func (s *SessionService) Stop(ctx context.Context, parentID, childID string) error {
	return s.close(ctx, parentID, childID, false)
}

// Revoke ends the live session and marks it revoked. The row can never become live again.
func (s *SessionService) Revoke(ctx context.Context, parentID, childID string) error {
	return s.close(ctx, parentID, childID, true)
}

func (s *SessionService) close(ctx context.Context, parentID, childID string, revoke bool) error {
	op := "stop_session"
	if revoke {
		op = "revoke_session"
	}

	var (
		closed  bool
		session models.DeviceSession
	)
	err := s.tx.run(ctx, op, func(tx repositories.Store) error {
		closed = false
		if err := requireLink(ctx, tx, parentID, childID); err != nil {
			return err
		}
		if err := tx.Sessions().LockChild(ctx, childID); err != nil {
			return err
		}

		var err error
		session, err = tx.Sessions().FindLive(ctx, childID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clock()
		session.IsActive = false
		if revoke {
			session.Revoked = true
			session.RevokedAt = &now
		} else if session.SessionEnd == nil || session.SessionEnd.After(now) {
			session.SessionEnd = &now
		}
		if err := tx.Sessions().Update(ctx, session); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil || !closed {
		return err
	}

	event := interfaces.EventSessionStopped
	if revoke {
		event = interfaces.EventSessionRevoked
	}
	s.log.Infow("session closed", "child_id", childID, "session_id", session.ID, "revoked", revoke)
	s.notify.NotifyFamily(ctx, childID, event, session, nil)
	return nil
}

// SessionStatus is the parent's view of the child's slot.
type SessionStatus struct {
	Session *models.DeviceSession `json:"session"`
	Expired bool                  `json:"expired"`
}

func (s *SessionService) Status(ctx context.Context, parentID, childID string) (SessionStatus, error) {
	if err := requireLink(ctx, s.store, parentID, childID); err != nil {
		return SessionStatus{}, err
	}
	live, err := s.store.Sessions().FindLive(ctx, childID)
	if errors.Is(err, models.ErrNotFound) {
		return SessionStatus{}, nil
	}
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{Session: &live, Expired: live.ExpiredAt(s.clock())}, nil
}

// History returns every session row of the child, newest first.
func (s *SessionService) History(ctx context.Context, parentID, childID string) ([]models.DeviceSession, error) {
	if err := requireLink(ctx, s.store, parentID, childID); err != nil {
		return nil, err
	}
	return s.store.Sessions().ListByChild(ctx, childID)
}

// ExpireElapsed deactivates live sessions whose window closed at or before now.
// Authorize does not depend on it; it keeps listings tidy.
func (s *SessionService) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.Sessions().DeactivateElapsed(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infow("elapsed sessions deactivated", "count", n)
	}
	return n, nil
}
