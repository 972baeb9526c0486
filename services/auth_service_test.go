package services

import (
	"KidQuest/interfaces"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories/memory"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	args := m.Called(email, password, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	args := m.Called(idToken)
	return args.String(0), args.Error(1)
}

func newFirebaseAuth(store *memory.Store, identity interfaces.IdentityProvider) *AuthService {
	auth := NewAuthService(store, AuthConfig{JWTSecret: "s", JWTTTL: time.Hour, ParentCodeTTL: time.Hour, TxMaxRetries: 1}, identity, newFakeClock().Now, logger.NewNop())
	auth.hashCost = bcrypt.MinCost
	return auth
}

func TestRegisterAndLoginParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, token, err := env.auth.RegisterParent(ctx, "ru", "Anna", "Anna@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", parent.Email)
	assert.Len(t, parent.Code, 4)
	assert.NotEqual(t, "secret", parent.Password)

	id, err := env.auth.ResolveBearer(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, id)

	_, _, err = env.auth.RegisterParent(ctx, "ru", "Anna", "anna@example.com", "other")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, _, err = env.auth.LoginParent(ctx, "anna@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, _, err = env.auth.LoginParent(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, token, err = env.auth.LoginParent(ctx, "anna@example.com", "secret")
	require.NoError(t, err)
	id, err = env.auth.ResolveBearer(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, id)
}

func TestLoginRefreshesExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, _, err := env.auth.RegisterParent(ctx, "en", "P", "code@example.com", "secret")
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	logged, _, err := env.auth.LoginParent(ctx, "code@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, logged.IsCodeValid(env.clock.Now()))
	assert.True(t, logged.CodeExpiresAt.After(*parent.CodeExpiresAt))
}

func TestResolveBearerRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, token, err := env.auth.RegisterParent(ctx, "en", "P", "jwt@example.com", "secret")
	require.NoError(t, err)

	_, err = env.auth.ResolveBearer(ctx, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = env.auth.ResolveBearer(ctx, "garbage")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	env.clock.Advance(2 * time.Hour)
	_, err = env.auth.ResolveBearer(ctx, token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestResolveBearerFallsBackToFirebase(t *testing.T) {
	store := memory.NewStore()
	identity := new(MockIdentityProvider)
	auth := newFirebaseAuth(store, identity)
	ctx := context.Background()

	identity.On("CreateUser", "fb@example.com", "secret", "Olga").Return("uid-1", nil).Once()
	identity.On("VerifyIDToken", "firebase-token").Return("uid-1", nil)
	identity.On("VerifyIDToken", "unknown-user").Return("uid-2", nil)
	identity.On("VerifyIDToken", "bad").Return("", errors.New("invalid"))

	// родитель появляется только через регистрацию
	parent, _, err := auth.RegisterParent(ctx, "ru", "Olga", "fb@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", parent.FirebaseUID)

	id, err := auth.ResolveBearer(ctx, "firebase-token")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, id)

	_, err = auth.ResolveBearer(ctx, "unknown-user")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = auth.ResolveBearer(ctx, "bad")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	identity.AssertExpectations(t)
}

func TestRegisterParentFirebaseEmailTaken(t *testing.T) {
	store := memory.NewStore()
	identity := new(MockIdentityProvider)
	auth := newFirebaseAuth(store, identity)
	ctx := context.Background()

	identity.On("CreateUser", "taken@example.com", "secret", "P").Return("", models.ErrConflict)

	_, _, err := auth.RegisterParent(ctx, "en", "P", "taken@example.com", "secret")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = store.Parents().FindByEmail(ctx, "taken@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound, "без аккаунта Firebase родитель не создается")
}

func TestLoginBindsFirebaseForOlderAccounts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	// зарегистрирован, пока Firebase не был настроен
	plain := newFirebaseAuth(store, nil)
	parent, _, err := plain.RegisterParent(ctx, "en", "P", "old@example.com", "secret")
	require.NoError(t, err)
	assert.Empty(t, parent.FirebaseUID)

	identity := new(MockIdentityProvider)
	auth := newFirebaseAuth(store, identity)
	identity.On("CreateUser", "old@example.com", "secret", "P").Return("uid-old", nil).Once()
	identity.On("VerifyIDToken", "fb").Return("uid-old", nil)

	logged, _, err := auth.LoginParent(ctx, "old@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-old", logged.FirebaseUID)

	id, err := auth.ResolveBearer(ctx, "fb")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, id)

	// второй вход не создает пользователя повторно
	_, _, err = auth.LoginParent(ctx, "old@example.com", "secret")
	require.NoError(t, err)
	identity.AssertExpectations(t)
}

func TestRegisterChildWithParentCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, _, err := env.auth.RegisterParent(ctx, "en", "P", "kid@example.com", "secret")
	require.NoError(t, err)

	child, wallet, err := env.auth.RegisterChild(ctx, "en", parent.Code, "Tim")
	require.NoError(t, err)
	assert.Equal(t, child.ID, wallet.ChildID)
	assert.Len(t, child.Code, 4)
	require.NoError(t, env.auth.RequireLink(ctx, parent.ID, child.ID))

	// код одноразовый
	_, _, err = env.auth.RegisterChild(ctx, "en", parent.Code, "Tom")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, _, err = env.auth.RegisterChild(ctx, "en", "", "Tom")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRegisterChildWithExpiredCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, _, err := env.auth.RegisterParent(ctx, "en", "P", "late@example.com", "secret")
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	_, _, err = env.auth.RegisterChild(ctx, "en", parent.Code, "Tim")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLinkChildIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	f := env.newFamily(t, "link1@example.com")
	other := env.newFamily(t, "link2@example.com")
	ctx := context.Background()

	assert.ErrorIs(t, env.auth.RequireLink(ctx, other.parent.ID, f.child.ID), models.ErrForbidden)

	_, err := env.auth.LinkChild(ctx, other.parent.ID, f.child.Code)
	require.NoError(t, err)
	_, err = env.auth.LinkChild(ctx, other.parent.ID, f.child.Code)
	require.NoError(t, err)
	assert.NoError(t, env.auth.RequireLink(ctx, other.parent.ID, f.child.ID))

	ids, err := env.store.Links().ParentIDs(ctx, f.child.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.parent.ID, other.parent.ID}, ids)

	_, err = env.auth.LinkChild(ctx, other.parent.ID, "0000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdatePushToken(t *testing.T) {
	env := newTestEnv(t)
	f := env.newFamily(t, "push@example.com")
	ctx := context.Background()

	require.NoError(t, env.auth.UpdatePushToken(ctx, f.parent.ID, "fcm-token"))
	parent, err := env.store.Parents().FindByID(ctx, f.parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "fcm-token", parent.PushToken)
}
