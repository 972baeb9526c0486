package controllers

import (
	"KidQuest/middlewares"
	"KidQuest/models"
	"KidQuest/services"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) RegisterParent(ctx context.Context, lang, name, email, password string) (models.Parent, string, error) {
	args := m.Called(ctx, lang, name, email, password)
	return args.Get(0).(models.Parent), args.String(1), args.Error(2)
}

func (m *MockAuthService) LoginParent(ctx context.Context, email, password string) (models.Parent, string, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(models.Parent), args.String(1), args.Error(2)
}

func (m *MockAuthService) RegisterChild(ctx context.Context, lang, parentCode, name string) (models.Child, models.Wallet, error) {
	args := m.Called(ctx, lang, parentCode, name)
	return args.Get(0).(models.Child), args.Get(1).(models.Wallet), args.Error(2)
}

func (m *MockAuthService) LinkChild(ctx context.Context, parentID, childCode string) (models.Child, error) {
	args := m.Called(ctx, parentID, childCode)
	return args.Get(0).(models.Child), args.Error(1)
}

func (m *MockAuthService) RequireLink(ctx context.Context, parentID, childID string) error {
	return m.Called(ctx, parentID, childID).Error(0)
}

func (m *MockAuthService) UpdatePushToken(ctx context.Context, parentID, pushToken string) error {
	return m.Called(ctx, parentID, pushToken).Error(0)
}

type MockSessionService struct{ mock.Mock }

func (m *MockSessionService) CreateSession(ctx context.Context, parentID, childID, deviceID string, sessionEnd *time.Time) (models.DeviceSession, error) {
	args := m.Called(ctx, parentID, childID, deviceID, sessionEnd)
	return args.Get(0).(models.DeviceSession), args.Error(1)
}

func (m *MockSessionService) Stop(ctx context.Context, parentID, childID string) error {
	return m.Called(ctx, parentID, childID).Error(0)
}

func (m *MockSessionService) Revoke(ctx context.Context, parentID, childID string) error {
	return m.Called(ctx, parentID, childID).Error(0)
}

func (m *MockSessionService) Status(ctx context.Context, parentID, childID string) (services.SessionStatus, error) {
	args := m.Called(ctx, parentID, childID)
	return args.Get(0).(services.SessionStatus), args.Error(1)
}

func (m *MockSessionService) History(ctx context.Context, parentID, childID string) ([]models.DeviceSession, error) {
	args := m.Called(ctx, parentID, childID)
	return args.Get(0).([]models.DeviceSession), args.Error(1)
}

func (m *MockSessionService) RequireSession(ctx context.Context, childID, deviceID string) (string, error) {
	args := m.Called(ctx, childID, deviceID)
	return args.String(0), args.Error(1)
}

type MockTaskService struct{ mock.Mock }

func (m *MockTaskService) CompleteTask(ctx context.Context, in services.CompleteTaskInput) (services.TaskResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(services.TaskResult), args.Error(1)
}

type MockLedgerService struct{ mock.Mock }

func (m *MockLedgerService) Balance(ctx context.Context, childID string) (models.Balance, error) {
	args := m.Called(ctx, childID)
	return args.Get(0).(models.Balance), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, childID string, limit int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, childID, limit)
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}

type MockRedemptionService struct{ mock.Mock }

func (m *MockRedemptionService) RequestSpend(ctx context.Context, childID, walletID, rewardID string) (models.SpendRequest, error) {
	args := m.Called(ctx, childID, walletID, rewardID)
	return args.Get(0).(models.SpendRequest), args.Error(1)
}

func (m *MockRedemptionService) Decide(ctx context.Context, parentID, requestID string, approve bool) (models.SpendRequest, error) {
	args := m.Called(ctx, parentID, requestID, approve)
	return args.Get(0).(models.SpendRequest), args.Error(1)
}

func (m *MockRedemptionService) ListRequests(ctx context.Context, parentID, childID string, status *models.SpendStatus) ([]models.SpendRequest, error) {
	args := m.Called(ctx, parentID, childID, status)
	return args.Get(0).([]models.SpendRequest), args.Error(1)
}

type MockRewardService struct{ mock.Mock }

func (m *MockRewardService) CreateReward(ctx context.Context, parentID string, xpCost int64, description string) (models.Reward, error) {
	args := m.Called(ctx, parentID, xpCost, description)
	return args.Get(0).(models.Reward), args.Error(1)
}

func (m *MockRewardService) ListRewards(ctx context.Context, parentID string) ([]models.Reward, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]models.Reward), args.Error(1)
}

func (m *MockRewardService) DeleteReward(ctx context.Context, parentID, rewardID string) error {
	return m.Called(ctx, parentID, rewardID).Error(0)
}

type MockPinger struct{ mock.Mock }

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Настройка роутера для тестов
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asParent и asDevice заменяют настоящие middleware аутентификации
func asParent(parentID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextParentID, parentID)
		c.Next()
	}
}

func asDevice(deviceID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextDeviceID, deviceID)
		c.Next()
	}
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}
