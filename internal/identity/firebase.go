package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/uaidecants/storefront/pkg/middleware"
)

// idTokenVerifier is the part of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier validates Firebase Auth ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
	admins Admins
}

var _ Verifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier obtains the Auth client from app.
func NewFirebaseVerifier(ctx context.Context, app *firebase.App, admins Admins) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, admins: admins}, nil
}

// Verify checks the ID token signature, audience and expiry.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*middleware.Claims, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if token.UID == "" {
		return nil, ErrInvalidToken
	}

	email, _ := token.Claims["email"].(string)
	return &middleware.Claims{
		CustomerID: token.UID,
		Email:      email,
		Role:       v.admins.Role(email),
	}, nil
}
