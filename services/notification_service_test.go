package services

import (
	"KidQuest/interfaces"
	"KidQuest/pkg/logger"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	args := m.Called(deviceToken, title, data["type"])
	return args.Error(0)
}

func TestNotifyFamilyPushesToParentsWithToken(t *testing.T) {
	env := newTestEnv(t)
	f := env.newFamily(t, "notify@example.com")
	other := env.newFamily(t, "silent@example.com")
	ctx := context.Background()

	_, err := env.auth.LinkChild(ctx, other.parent.ID, f.child.Code)
	require.NoError(t, err)
	require.NoError(t, env.auth.UpdatePushToken(ctx, f.parent.ID, "token-1"))

	push := new(MockPushSender)
	push.On("Send", "token-1", "New reward request", interfaces.EventSpendRequested).Return(errors.New("fcm down"))

	events := &recordingPublisher{}
	notify := NewNotificationService(env.store, events, push, env.clock.Now, logger.NewNop())
	redemption := NewRedemptionService(env.store, 1, testTTL, notify, env.clock.Now, logger.NewNop())

	env.fund(t, f, 10)
	reward := env.reward(t, f, 10)
	_, err = redemption.RequestSpend(ctx, f.child.ID, f.wallet.ID, reward.ID)
	require.NoError(t, err, "push failures must not fail the request")

	notify.Wait()
	push.AssertExpectations(t)
	push.AssertNumberOfCalls(t, "Send", 1)
	assert.Equal(t, []string{interfaces.EventSpendRequested}, events.types(f.parent.ID))
	assert.Equal(t, []string{interfaces.EventSpendRequested}, events.types(other.parent.ID))
}

func TestNilNotificationServiceIsNoop(t *testing.T) {
	var notify *NotificationService
	assert.NotPanics(t, func() {
		notify.NotifyFamily(context.Background(), "child", interfaces.EventSpendDecided, nil, nil)
	})
}

// blockingPushSender holds every Send until release is closed.
type blockingPushSender struct {
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingPushSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	<-b.release
	b.ctxErr <- ctx.Err()
	return nil
}

func TestNotifyFamilyDoesNotWaitForPush(t *testing.T) {
	env := newTestEnv(t)
	f := env.newFamily(t, "slow@example.com")
	require.NoError(t, env.auth.UpdatePushToken(context.Background(), f.parent.ID, "token-1"))

	push := &blockingPushSender{release: make(chan struct{}), ctxErr: make(chan error, 1)}
	notify := NewNotificationService(env.store, nil, push, env.clock.Now, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		notify.NotifyFamily(ctx, f.child.ID, interfaces.EventSpendRequested, nil, &PushMessage{Title: "t"})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyFamily blocked on push delivery")
	}

	// запрос завершился, а пуш еще в пути
	cancel()
	close(push.release)
	notify.Wait()
	assert.NoError(t, <-push.ctxErr)
}
