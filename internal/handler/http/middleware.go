package http

import (
	"net/http"
	"strings"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/httputil"
	"github.com/uaidecants/storefront/pkg/middleware"
)

// ContentTypeJSON rejects request bodies that are not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// customerID returns the authenticated caller or writes a 401.
func customerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.CustomerIDFromContext(r.Context())
	if id == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("customer not authenticated"), nil)
		return "", false
	}
	return id, true
}
