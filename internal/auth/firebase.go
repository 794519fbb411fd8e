package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes the Admin SDK from a service-account file.
func NewFirebaseVerifier(ctx context.Context, credentialsPath string) (*FirebaseVerifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		msg := "Invalid or expired token"
		if fbauth.IsIDTokenExpired(err) {
			msg = "Token has expired"
		}
		return Principal{}, &VerifyError{Message: msg, Err: err}
	}
	if decoded == nil || decoded.UID == "" {
		return Principal{}, ErrNoPrincipal
	}
	email, _ := decoded.Claims["email"].(string)
	return Principal{ID: decoded.UID, Email: email}, nil
}
