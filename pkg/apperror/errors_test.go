package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("CRD_002", "Insufficient wallet balance", http.StatusPaymentRequired),
			expected: "[CRD_002] Insufficient wallet balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("CRD_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestCreditErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAmount", ErrInvalidAmount(), "CRD_001", 400},
		{"InsufficientFunds", ErrInsufficientFunds(), "CRD_002", 402},
		{"DownPaymentTooLow", ErrDownPaymentTooLow("20.00"), "CRD_003", 400},
		{"DownPaymentCoversFull", ErrDownPaymentCoversFull(), "CRD_004", 400},
		{"CreditLimitExceeded", ErrCreditLimitExceeded(), "CRD_005", 422},
		{"NoActiveCredit", ErrNoActiveCredit(), "CRD_006", 400},
		{"InvariantViolation", ErrInvariantViolation(fmt.Errorf("negative balance")), "CRD_007", 500},
		{"CreditScoreTooLow", ErrCreditScoreTooLow(), "CRD_008", 422},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestDownPaymentTooLow_Message(t *testing.T) {
	err := ErrDownPaymentTooLow("40.00")
	assert.Contains(t, err.Message, "40.00")
}

func TestSystemErrors(t *testing.T) {
	assert.Equal(t, "SYS_002", ErrNotFound("wallet").Code)
	assert.Equal(t, http.StatusNotFound, ErrNotFound("wallet").HTTPStatus)

	inner := fmt.Errorf("boom")
	internal := InternalError(inner)
	assert.Equal(t, "SYS_001", internal.Code)
	assert.True(t, errors.Is(internal, inner))

	v := Validation("amount must be a decimal string")
	assert.Equal(t, "CRD_001", v.Code)
	assert.Equal(t, http.StatusBadRequest, v.HTTPStatus)
}

func TestAuthAndRateErrors(t *testing.T) {
	assert.Equal(t, "AUTH_001", ErrInvalidToken().Code)
	assert.Equal(t, http.StatusUnauthorized, ErrInvalidToken().HTTPStatus)
	assert.Equal(t, "RATE_001", ErrRateLimitExceeded().Code)
	assert.Equal(t, http.StatusTooManyRequests, ErrRateLimitExceeded().HTTPStatus)
}
