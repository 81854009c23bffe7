package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/uaidecants/storefront/pkg/middleware"
)

// Claims is the payload of an HS256 access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret. The
// subject is the customer ID.
type JWTVerifier struct {
	secret []byte
	admins Admins
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string, admins Admins) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), admins: admins}
}

// Verify parses and validates tokenString. An admin role claim is honoured
// as is; everyone else is resolved through the allowlist.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	role := claims.Role
	if role != middleware.RoleAdmin {
		role = v.admins.Role(claims.Email)
	}

	return &middleware.Claims{
		CustomerID: claims.Subject,
		Email:      claims.Email,
		Role:       role,
	}, nil
}

// Sign issues a token for customerID valid for ttl. It exists for local
// development and tests; production tokens come from the identity provider.
func (v *JWTVerifier) Sign(customerID, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
