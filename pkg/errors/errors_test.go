package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrConflict, ErrLimitExceeded, ErrRateLimited,
		ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("firestore unavailable")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Equal(t, "INTERNAL_ERROR: something broke: firestore unavailable", appErr.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "address not found"}
	assert.Equal(t, "NOT_FOUND: address not found", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	err := NotFound("address", "a-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Nil(t, (&AppError{Code: "X"}).Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("coupon", "c-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("coupon", "code", "PROMO10"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("bad"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("no token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("admins only"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("stale"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"limit exceeded", LimitExceeded("addresses", 4), "LIMIT_EXCEEDED", http.StatusUnprocessableEntity, ErrLimitExceeded},
		{"rate limited", RateLimited("slow down"), "RATE_LIMITED", http.StatusTooManyRequests, ErrRateLimited},
		{"unavailable", ServiceUnavailable("down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestLimitExceeded_MessageCarriesLimit(t *testing.T) {
	err := LimitExceeded("addresses", 4)
	assert.Equal(t, "maximum of 4 addresses reached", err.Message)
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestClassify(t *testing.T) {
	code, status := Classify(fmt.Errorf("save: %w", AlreadyExists("coupon", "code", "X")))
	assert.Equal(t, "ALREADY_EXISTS", code)
	assert.Equal(t, http.StatusConflict, status)

	code, status = Classify(fmt.Errorf("lookup: %w", ErrForbidden))
	assert.Equal(t, "FORBIDDEN", code)
	assert.Equal(t, http.StatusForbidden, status)

	code, status = Classify(errors.New("disk on fire"))
	assert.Equal(t, "INTERNAL_ERROR", code)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{LimitExceeded("addresses", 4), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ErrLimitExceeded), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", ErrServiceUnavail), http.StatusServiceUnavailable},
		{errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
