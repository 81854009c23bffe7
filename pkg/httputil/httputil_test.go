package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/logger"
	"github.com/uaidecants/storefront/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]string{"id": "a-1"}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"a-1"}}`, rec.Body.String())
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusOK, []int{1, 2})
	assert.JSONEq(t, `{"data":[1,2]}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/addresses", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))

	WriteError(rec, req, apperrors.LimitExceeded("addresses", 4), testLogger())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "LIMIT_EXCEEDED", resp.Error.Code)
	assert.Equal(t, "maximum of 4 addresses reached", resp.Error.Message)
	assert.Equal(t, "corr-1", resp.Error.RequestID)
}

func TestWriteError_ValidationError(t *testing.T) {
	type body struct {
		PostalCode string `json:"postal_code" validate:"required"`
	}
	verr := validator.Validate(body{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	WriteError(rec, req, fmt.Errorf("add address: %w", verr), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "is required", resp.Error.Fields["postal_code"])
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("create: %w", apperrors.ErrAlreadyExists), http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("parse: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(rec, req, tt.err, testLogger())

		assert.Equal(t, tt.status, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tt.code, resp.Error.Code)
	}
}

func TestWriteError_InternalDoesNotLeakCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	WriteError(rec, req, apperrors.Internal(errors.New("password=hunter2")), testLogger())

	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestWriteValidationError(t *testing.T) {
	t.Run("decode error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		WriteValidationError(rec, req, errors.New("invalid request body: unexpected EOF"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	})

	t.Run("field errors", func(t *testing.T) {
		type body struct {
			Code string `json:"code" validate:"required"`
		}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		WriteValidationError(rec, req, validator.Validate(body{}))

		resp := decodeResponse(t, rec)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Contains(t, resp.Error.Fields, "code")
	})
}
