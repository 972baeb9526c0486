package controllers

import (
	"KidQuest/models"
	"KidQuest/services"
	"context"
	"time"
)

// AuthServiceInterface определяет методы identity gate
type AuthServiceInterface interface {
	RegisterParent(ctx context.Context, lang, name, email, password string) (models.Parent, string, error)
	LoginParent(ctx context.Context, email, password string) (models.Parent, string, error)
	RegisterChild(ctx context.Context, lang, parentCode, name string) (models.Child, models.Wallet, error)
	LinkChild(ctx context.Context, parentID, childCode string) (models.Child, error)
	RequireLink(ctx context.Context, parentID, childID string) error
	UpdatePushToken(ctx context.Context, parentID, pushToken string) error
}

type SessionServiceInterface interface {
	CreateSession(ctx context.Context, parentID, childID, deviceID string, sessionEnd *time.Time) (models.DeviceSession, error)
	Stop(ctx context.Context, parentID, childID string) error
	Revoke(ctx context.Context, parentID, childID string) error
	Status(ctx context.Context, parentID, childID string) (services.SessionStatus, error)
	History(ctx context.Context, parentID, childID string) ([]models.DeviceSession, error)
	RequireSession(ctx context.Context, childID, deviceID string) (string, error)
}

type TaskServiceInterface interface {
	CompleteTask(ctx context.Context, in services.CompleteTaskInput) (services.TaskResult, error)
}

type LedgerServiceInterface interface {
	Balance(ctx context.Context, childID string) (models.Balance, error)
	History(ctx context.Context, childID string, limit int) ([]models.LedgerEntry, error)
}

type RedemptionServiceInterface interface {
	RequestSpend(ctx context.Context, childID, walletID, rewardID string) (models.SpendRequest, error)
	Decide(ctx context.Context, parentID, requestID string, approve bool) (models.SpendRequest, error)
	ListRequests(ctx context.Context, parentID, childID string, status *models.SpendStatus) ([]models.SpendRequest, error)
}

type RewardServiceInterface interface {
	CreateReward(ctx context.Context, parentID string, xpCost int64, description string) (models.Reward, error)
	ListRewards(ctx context.Context, parentID string) ([]models.Reward, error)
	DeleteReward(ctx context.Context, parentID, rewardID string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
