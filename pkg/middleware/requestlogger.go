package middleware

import (
	"log/slog"
	"net/http"

	"github.com/uaidecants/storefront/pkg/logger"
)

// RequestLogger puts a logger carrying the request's correlation, customer
// and trace ids into the context, for handlers to fetch with
// logger.FromContext. Mount it once, after Tracing; Auth adds the customer
// id to the stored logger on authenticated routes.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if claims := ClaimsFromContext(ctx); claims != nil && claims.CustomerID != "" {
				ctx = logger.WithCustomerID(ctx, claims.CustomerID)
			}
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, logger.WithContext(ctx, base))))
		})
	}
}
