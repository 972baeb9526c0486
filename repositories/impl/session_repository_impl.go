package impl

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"
	"time"

	"gorm.io/gorm"
)

type SessionRepositoryImpl struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) repositories.SessionRepository {
	return &SessionRepositoryImpl{DB: db}
}

// LockChild takes a transaction-scoped advisory lock keyed by child id.
func (r *SessionRepositoryImpl) LockChild(ctx context.Context, childID string) error {
	err := r.DB.WithContext(ctx).
		Exec(`SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`, "device_session:"+childID).Error
	return translateError(err)
}

func (r *SessionRepositoryImpl) FindLive(ctx context.Context, childID string) (models.DeviceSession, error) {
	var session models.DeviceSession
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND is_active AND NOT revoked", childID).
		First(&session).Error
	if err != nil {
		return models.DeviceSession{}, translateError(err)
	}
	return session, nil
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *models.DeviceSession) error {
	if session.ID == "" {
		session.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(session).Error)
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, session models.DeviceSession) error {
	err := r.DB.WithContext(ctx).Model(&models.DeviceSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"is_active":   session.IsActive,
			"revoked":     session.Revoked,
			"revoked_at":  session.RevokedAt,
			"session_end": session.SessionEnd,
		}).Error
	return translateError(err)
}

func (r *SessionRepositoryImpl) ListByChild(ctx context.Context, childID string) ([]models.DeviceSession, error) {
	var sessions []models.DeviceSession
	err := r.DB.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, translateError(err)
}

func (r *SessionRepositoryImpl) DeactivateElapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.DeviceSession{}).
		Where("is_active AND NOT revoked AND session_end IS NOT NULL AND session_end <= ?", now).
		Update("is_active", false)
	return res.RowsAffected, translateError(res.Error)
}
