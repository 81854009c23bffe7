package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/logger"
)

type contextKeyType string

const (
	claimsKey contextKeyType = "claims"
)

// Role names carried in Claims.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Claims is the verified identity of the caller.
type Claims struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// Auth rejects requests without a valid bearer token and stores the verified
// claims in the request context. The request-scoped logger installed by
// RequestLogger gains the customer_id.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeAuthError(w, r, apperrors.Unauthorized("missing authorization header"))
				return
			}

			token := BearerToken(r)
			if token == "" {
				writeAuthError(w, r, apperrors.Unauthorized("invalid authorization header format"))
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil || claims == nil || claims.CustomerID == "" {
				writeAuthError(w, r, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.WithCustomerID(ctx, claims.CustomerID)
			ctx = logger.WithAttrs(ctx, slog.String("customer_id", claims.CustomerID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				writeAuthError(w, r, apperrors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header, or "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the verified claims, or nil for anonymous
// requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// CustomerIDFromContext returns the authenticated customer ID or "".
func CustomerIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.CustomerID
	}
	return ""
}

// RoleFromContext returns the authenticated role or "".
func RoleFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Role
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err *apperrors.AppError) {
	if err.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	}
	httputil.WriteError(w, r, err, nil)
}
