// Package errors provides custom error types for the Monetra ledger core.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

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

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
)

// Wallet errors.
var (
	ErrWalletNotFound    = &AppError{Code: "WALLET_NOT_FOUND", Message: "Wallet not found", StatusCode: http.StatusNotFound}
	ErrInvalidWalletType = &AppError{Code: "INVALID_WALLET_TYPE", Message: "Unsupported wallet type", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
)

// Recurring transaction errors.
var (
	ErrRecurringNotFound = &AppError{Code: "RECURRING_NOT_FOUND", Message: "Recurring transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidFrequency  = &AppError{Code: "INVALID_FREQUENCY", Message: "Unsupported recurring frequency", StatusCode: http.StatusBadRequest}
)

// Budget errors.
var (
	ErrBudgetNotFound = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
)

// Trading errors.
var (
	ErrTradeNotFound       = &AppError{Code: "TRADE_NOT_FOUND", Message: "Trade not found", StatusCode: http.StatusNotFound}
	ErrInsufficientBalance = &AppError{Code: "INSUFFICIENT_BALANCE", Message: "Insufficient trading balance", StatusCode: http.StatusBadRequest}
)

// Notification errors.
var (
	ErrNotificationNotFound = &AppError{Code: "NOTIFICATION_NOT_FOUND", Message: "Notification not found", StatusCode: http.StatusNotFound}
)

// Aggregate errors.
var (
	ErrAggregateConflict = &AppError{Code: "AGGREGATE_CONFLICT", Message: "Aggregate was modified concurrently", StatusCode: http.StatusConflict}
)
