package middleware

import "net/http"

// NoStore marks API responses as private and uncacheable. Quotes, coupon
// verdicts and address books are per-customer and must never be served from
// a shared cache. It also disables MIME sniffing of the JSON bodies.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", "no-store")
			h.Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	}
}
