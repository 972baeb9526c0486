package services

import (
	"KidQuest/interfaces"
	"KidQuest/models"
	"KidQuest/pkg/logger"
	"KidQuest/repositories"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const roleParent = "parent"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecret     string
	JWTTTL        time.Duration
	ParentCodeTTL time.Duration
	TxMaxRetries  int
}

// AuthService is the identity gate: it resolves bearer credentials to a
// parent id and answers whether a parent is linked to a child.
type AuthService struct {
	store    repositories.Store
	tx       txRunner
	jwtKey   []byte
	jwtTTL   time.Duration
	codeTTL  time.Duration
	identity interfaces.IdentityProvider
	clock    Clock
	log      *logger.Logger

	// bcrypt cost, lowered in tests
	hashCost int
}

func NewAuthService(store repositories.Store, cfg AuthConfig, identity interfaces.IdentityProvider, clock Clock, log *logger.Logger) *AuthService {
	return &AuthService{
		store:    store,
		tx:       newTxRunner(store, cfg.TxMaxRetries, log),
		jwtKey:   []byte(cfg.JWTSecret),
		jwtTTL:   cfg.JWTTTL,
		codeTTL:  cfg.ParentCodeTTL,
		identity: identity,
		clock:    clock,
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

// uniqueCode generates a 4-digit code not yet used according to count.
func uniqueCode(ctx context.Context, count func(ctx context.Context, code string) (int64, error)) (string, error) {
	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("%04d", 1000+rand.Intn(9000)) // Гарантируем формат 4 цифр
		n, err := count(ctx, code)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free 4-digit code left")
}

func (s *AuthService) issueToken(parent models.Parent) (string, error) {
	now := s.clock()
	claims := &Claims{
		Role: roleParent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   parent.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtKey)
}

func (s *AuthService) RegisterParent(ctx context.Context, lang, name, email, password string) (models.Parent, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return models.Parent{}, "", fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}

	if _, err := s.store.Parents().FindByEmail(ctx, email); err == nil {
		return models.Parent{}, "", fmt.Errorf("%w: email already registered", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.Parent{}, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.Parent{}, "", err
	}

	// Register user in Firebase
	var firebaseUID string
	if s.identity != nil {
		firebaseUID, err = s.identity.CreateUser(ctx, email, password, name)
		if err != nil {
			return models.Parent{}, "", fmt.Errorf("create firebase user: %w", err)
		}
	}

	var parent models.Parent
	err = s.tx.run(ctx, "register_parent", func(tx repositories.Store) error {
		if _, err := tx.Parents().FindByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: email already registered", models.ErrConflict)
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		code, err := uniqueCode(ctx, tx.Parents().CountByCode)
		if err != nil {
			return err
		}

		now := s.clock()
		parent = models.Parent{
			ID:          models.NewID(),
			Lang:        lang,
			Name:        name,
			Email:       email,
			Password:    string(hashedPassword),
			FirebaseUID: firebaseUID,
			Role:        roleParent,
			CreatedAt:   now,
		}
		parent.RefreshCode(code, now, s.codeTTL)
		return tx.Parents().Create(ctx, &parent)
	})
	if err != nil {
		return models.Parent{}, "", err
	}

	token, err := s.issueToken(parent)
	if err != nil {
		return models.Parent{}, "", err
	}
	s.log.Infow("parent registered", "parent_id", parent.ID)
	return parent, token, nil
}

func (s *AuthService) LoginParent(ctx context.Context, email, password string) (models.Parent, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	parent, err := s.store.Parents().FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return models.Parent{}, "", models.ErrUnauthorized
	}
	if err != nil {
		return models.Parent{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(parent.Password), []byte(password)); err != nil {
		return models.Parent{}, "", models.ErrUnauthorized
	}

	// аккаунты, созданные до подключения Firebase
	if parent.FirebaseUID == "" && s.identity != nil {
		if bound, err := s.bindFirebase(ctx, parent, password); err != nil {
			s.log.Warnw("failed to create firebase user", "parent_id", parent.ID, "error", err)
		} else {
			parent = bound
		}
	}

	if !parent.IsCodeValid(s.clock()) {
		// Генерируем новый код
		updated, err := s.RefreshParentCode(ctx, parent.ID)
		if err != nil {
			s.log.Warnw("failed to refresh parent code", "parent_id", parent.ID, "error", err)
		} else {
			parent = updated
		}
	}

	token, err := s.issueToken(parent)
	if err != nil {
		return models.Parent{}, "", err
	}
	return parent, token, nil
}

func (s *AuthService) RefreshParentCode(ctx context.Context, parentID string) (models.Parent, error) {
	var parent models.Parent
	err := s.tx.run(ctx, "refresh_parent_code", func(tx repositories.Store) error {
		var err error
		parent, err = tx.Parents().FindByID(ctx, parentID)
		if err != nil {
			return err
		}
		code, err := uniqueCode(ctx, tx.Parents().CountByCode)
		if err != nil {
			return err
		}
		parent.RefreshCode(code, s.clock(), s.codeTTL)
		return tx.Parents().Save(ctx, parent)
	})
	return parent, err
}

// RegisterChild onboards a child with a parent's pairing code: the child, its
// link to that parent and its wallet are created together, and the code is rotated.
func (s *AuthService) RegisterChild(ctx context.Context, lang, parentCode, name string) (models.Child, models.Wallet, error) {
	if parentCode == "" {
		return models.Child{}, models.Wallet{}, fmt.Errorf("%w: code is required", models.ErrInvalidInput)
	}

	var (
		child  models.Child
		wallet models.Wallet
	)
	err := s.tx.run(ctx, "register_child", func(tx repositories.Store) error {
		parent, err := tx.Parents().FindByCode(ctx, parentCode)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: invalid parent code", models.ErrUnauthorized)
		}
		if err != nil {
			return err
		}

		now := s.clock()
		// Проверяем срок действия кода родителя
		if !parent.IsCodeValid(now) {
			return fmt.Errorf("%w: parent code has expired", models.ErrUnauthorized)
		}

		childCode, err := uniqueCode(ctx, tx.Children().CountByCode)
		if err != nil {
			return err
		}
		child = models.Child{
			ID:        models.NewID(),
			Role:      "child",
			Lang:      lang,
			Name:      name,
			Code:      childCode,
			CreatedAt: now,
		}
		if err := tx.Children().Create(ctx, &child); err != nil {
			return err
		}
		if err := tx.Links().Create(ctx, &models.ParentChildLink{ParentID: parent.ID, ChildID: child.ID, CreatedAt: now}); err != nil {
			return err
		}
		wallet = models.Wallet{ID: models.NewID(), ChildID: child.ID, CreatedAt: now}
		if err := tx.Wallets().Create(ctx, &wallet); err != nil {
			return err
		}

		newCode, err := uniqueCode(ctx, tx.Parents().CountByCode)
		if err != nil {
			return err
		}
		parent.RefreshCode(newCode, now, s.codeTTL)
		return tx.Parents().Save(ctx, parent)
	})
	if err != nil {
		return models.Child{}, models.Wallet{}, err
	}

	s.log.Infow("child registered", "child_id", child.ID, "wallet_id", wallet.ID)
	return child, wallet, nil
}

// LinkChild attaches an additional parent to an existing child by the child's code.
// Linking twice is a no-op.
func (s *AuthService) LinkChild(ctx context.Context, parentID, childCode string) (models.Child, error) {
	if childCode == "" {
		return models.Child{}, fmt.Errorf("%w: code is required", models.ErrInvalidInput)
	}

	var child models.Child
	err := s.tx.run(ctx, "link_child", func(tx repositories.Store) error {
		var err error
		child, err = tx.Children().FindByCode(ctx, childCode)
		if err != nil {
			return err
		}
		linked, err := tx.Links().Exists(ctx, parentID, child.ID)
		if err != nil || linked {
			return err
		}
		return tx.Links().Create(ctx, &models.ParentChildLink{ParentID: parentID, ChildID: child.ID, CreatedAt: s.clock()})
	})
	return child, err
}

// bindFirebase creates the Firebase account of an existing parent and stores its uid.
func (s *AuthService) bindFirebase(ctx context.Context, parent models.Parent, password string) (models.Parent, error) {
	uid, err := s.identity.CreateUser(ctx, parent.Email, password, parent.Name)
	if err != nil {
		return models.Parent{}, err
	}
	err = s.tx.run(ctx, "bind_firebase", func(tx repositories.Store) error {
		fresh, err := tx.Parents().FindByID(ctx, parent.ID)
		if err != nil {
			return err
		}
		fresh.FirebaseUID = uid
		if err := tx.Parents().Save(ctx, fresh); err != nil {
			return err
		}
		parent = fresh
		return nil
	})
	return parent, err
}

// ResolveBearer maps a bearer token to a parent id. Our own JWT is tried
// first; a Firebase ID token is accepted when an identity provider is configured.
func (s *AuthService) ResolveBearer(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", models.ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock))
	if err == nil && token.Valid && claims.Role == roleParent && claims.Subject != "" {
		if _, err := s.store.Parents().FindByID(ctx, claims.Subject); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return "", models.ErrUnauthorized
			}
			return "", err
		}
		return claims.Subject, nil
	}

	if s.identity == nil {
		return "", models.ErrUnauthorized
	}
	uid, verr := s.identity.VerifyIDToken(ctx, tokenString)
	if verr != nil {
		return "", models.ErrUnauthorized
	}
	parent, err := s.store.Parents().FindByFirebaseUID(ctx, uid)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return parent.ID, nil
}

// RequireLink returns nil when parentID may act on childID.
func (s *AuthService) RequireLink(ctx context.Context, parentID, childID string) error {
	return requireLink(ctx, s.store, parentID, childID)
}

// UpdatePushToken stores the FCM token of the parent's device.
func (s *AuthService) UpdatePushToken(ctx context.Context, parentID, pushToken string) error {
	return s.tx.run(ctx, "update_push_token", func(tx repositories.Store) error {
		parent, err := tx.Parents().FindByID(ctx, parentID)
		if err != nil {
			return err
		}
		parent.PushToken = pushToken
		return tx.Parents().Save(ctx, parent)
	})
}
