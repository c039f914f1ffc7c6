// Package errors provides custom error types for the Wealth Machine API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// Error codes. Every AppError carries exactly one of these so the HTTP
// boundary can map failures consistently.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeAccessDenied = "ACCESS_DENIED"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeSystem       = "SYSTEM_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: CodeUnauthorized, Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: CodeUnauthorized, Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrAccessDenied       = &AppError{Code: CodeAccessDenied, Message: "Machine not found or access denied", StatusCode: http.StatusForbidden}
	ErrInsufficientRole   = &AppError{Code: CodeAccessDenied, Message: "Insufficient permissions", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: CodeValidation, Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: CodeNotFound, Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: CodeSystem, Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: CodeNotFound, Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: CodeInvalidState, Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Machine errors.
var (
	ErrMachineNotFound = &AppError{Code: CodeNotFound, Message: "Machine not found", StatusCode: http.StatusNotFound}
)

// Store and fund errors.
var (
	ErrStoreNotFound        = &AppError{Code: CodeNotFound, Message: "Store not found", StatusCode: http.StatusNotFound}
	ErrFundNotFound         = &AppError{Code: CodeNotFound, Message: "Fund not found", StatusCode: http.StatusNotFound}
	ErrPercentLimitExceeded = &AppError{Code: CodeInvalidState, Message: "Total fund percentage cannot exceed 100%", StatusCode: http.StatusBadRequest}
)

// Wallet errors.
var (
	ErrWalletNotFound       = &AppError{Code: CodeNotFound, Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrCurrencyNotSupported = &AppError{Code: CodeInvalidState, Message: "Currency conversion is not supported", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound  = &AppError{Code: CodeNotFound, Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrTransactionCompleted = &AppError{Code: CodeInvalidState, Message: "Completed transactions cannot be modified", StatusCode: http.StatusBadRequest}
	ErrInsufficientBalance  = &AppError{Code: CodeInvalidState, Message: "Insufficient balance", StatusCode: http.StatusBadRequest}
	ErrEmptyAllocation      = &AppError{Code: CodeValidation, Message: "At least one allocation is required", StatusCode: http.StatusBadRequest}
)
