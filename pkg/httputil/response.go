package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/logger"
	"github.com/uaidecants/storefront/pkg/validator"
)

// Response is the JSON envelope used by every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the envelope and writes it.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError maps err onto the envelope. Validation errors become 400 with
// per-field messages; everything else goes through apperrors.Classify.
// Messages of server errors are never echoed: the cause is logged with the
// request-scoped logger, or fallback when the context carries none.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	if writeFieldErrors(w, r, err) {
		return
	}

	code, status := apperrors.Classify(err)
	body := &ErrorResponse{
		Code:      code,
		Message:   publicMessage(err, status),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: body})
}

// WriteValidationError writes a 400 for a failed DecodeAndValidate call:
// field-level details for *validator.ValidationError, INVALID_INPUT otherwise.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	if writeFieldErrors(w, r, err) {
		return
	}
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:      "INVALID_INPUT",
			Message:   err.Error(),
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, err error) bool {
	var valErr *validator.ValidationError
	if !errors.As(err, &valErr) {
		return false
	}
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
	return true
}

// publicMessage is what the caller may see for err.
func publicMessage(err error, status int) string {
	var appErr *apperrors.AppError
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		return "an internal error occurred"
	case errors.As(err, &appErr):
		return appErr.Message
	default:
		return err.Error()
	}
}
