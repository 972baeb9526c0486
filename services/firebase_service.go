package services

import (
	"KidQuest/models"
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
)

// FirebaseService creates Firebase users, verifies their ID tokens and sends FCM messages.
type FirebaseService struct {
	AuthClient *auth.Client
	FCMClient  *messaging.Client
}

func NewFirebaseService(ctx context.Context, app *firebase.App) (*FirebaseService, error) {
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %w", err)
	}
	fcmClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing FCM client: %w", err)
	}
	return &FirebaseService{AuthClient: authClient, FCMClient: fcmClient}, nil
}

// CreateUser registers the parent in Firebase Auth and returns the uid.
func (s *FirebaseService) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	createdUser, err := s.AuthClient.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return "", fmt.Errorf("%w: email already registered in firebase", models.ErrConflict)
	}
	if err != nil {
		return "", err
	}
	return createdUser.UID, nil
}

// VerifyIDToken returns the Firebase uid of a valid ID token.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := s.AuthClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

func (s *FirebaseService) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if deviceToken == "" {
		return fmt.Errorf("device token is empty")
	}
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: deviceToken,
	}
	_, err := s.FCMClient.Send(ctx, message)
	return err
}
