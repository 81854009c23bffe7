// Package identity verifies bearer credentials issued by the external
// identity provider and turns them into middleware.Claims.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/uaidecants/storefront/pkg/middleware"
)

// ErrInvalidToken is returned for any credential that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier checks a bearer token and returns the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*middleware.Claims, error)
}

// TokenValidator adapts v to the auth middleware.
func TokenValidator(v Verifier) middleware.TokenValidator {
	return v.Verify
}

// Admins grants the admin role to an allowlist of e-mail addresses.
type Admins map[string]struct{}

// NewAdmins builds an allowlist; addresses are compared case-insensitively.
func NewAdmins(emails []string) Admins {
	a := make(Admins, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			a[e] = struct{}{}
		}
	}
	return a
}

// Role returns RoleAdmin for allowlisted e-mails and RoleCustomer otherwise.
func (a Admins) Role(email string) string {
	if _, ok := a[strings.ToLower(strings.TrimSpace(email))]; ok {
		return middleware.RoleAdmin
	}
	return middleware.RoleCustomer
}
