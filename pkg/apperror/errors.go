package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Credit Ledger Business Logic (CRD) ----

func ErrInvalidAmount() *AppError {
	return New("CRD_001", "Invalid amount", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("CRD_002", "Insufficient wallet balance", http.StatusPaymentRequired)
}

func ErrDownPaymentTooLow(minimum string) *AppError {
	return New("CRD_003", fmt.Sprintf("Down payment must be at least %s", minimum), http.StatusBadRequest)
}

func ErrDownPaymentCoversFull() *AppError {
	return New("CRD_004", "Down payment covers the full price, nothing to finance", http.StatusBadRequest)
}

func ErrCreditLimitExceeded() *AppError {
	return New("CRD_005", "Credit limit exceeded", http.StatusUnprocessableEntity)
}

func ErrNoActiveCredit() *AppError {
	return New("CRD_006", "No active credit lines to repay", http.StatusBadRequest)
}

// ErrInvariantViolation signals a should-never-happen money inconsistency.
// The surrounding transaction must be rolled back.
func ErrInvariantViolation(err error) *AppError {
	return Wrap("CRD_007", "Ledger invariant violated", http.StatusInternalServerError, err)
}

func ErrCreditScoreTooLow() *AppError {
	return New("CRD_008", "Credit score too low for a limit increase", http.StatusUnprocessableEntity)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrNotFound(entity string) *AppError {
	return New("SYS_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a CRD_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("CRD_001", message, http.StatusBadRequest)
}
