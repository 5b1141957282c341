// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Universe errors
	ErrUniverseSource = &Error{Code: "UNIVERSE_SOURCE", Message: "constituent source failed"}
	ErrUniverseEmpty  = &Error{Code: "UNIVERSE_EMPTY", Message: "universe is empty"}
	ErrNoTables       = &Error{Code: "NO_TABLES", Message: "page contains no tables"}
	ErrColumnNotFound = &Error{Code: "COLUMN_NOT_FOUND", Message: "symbol column not found"}

	// Market data errors
	ErrSummaryFailed  = &Error{Code: "SUMMARY_FAILED", Message: "summary fetch failed"}
	ErrBatchFailed    = &Error{Code: "BATCH_FAILED", Message: "history batch failed"}
	ErrTickerNotFound = &Error{Code: "TICKER_NOT_FOUND", Message: "ticker absent from batch result"}

	// Screener errors
	ErrInsufficientData  = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient history"}
	ErrDegenerateAverage = &Error{Code: "DEGENERATE_AVERAGE", Message: "trailing average volume is zero"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}
)
