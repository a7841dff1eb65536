package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Engine error codes
const (
	ErrConfiguration        ErrorCode = "CONFIGURATION"
	ErrTurnFailed           ErrorCode = "TURN_FAILED"
	ErrCancelled            ErrorCode = "CANCELLED"
	ErrSynthesisUnavailable ErrorCode = "SYNTHESIS_UNAVAILABLE"
	ErrSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
)

// Completion-service error codes
const (
	ErrTimedOut           ErrorCode = "TIMED_OUT"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrInvalidParticipant ErrorCode = "INVALID_PARTICIPANT"
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrAuthentication     ErrorCode = "AUTHENTICATION"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrModelNotFound      ErrorCode = "MODEL_NOT_FOUND"
	ErrContextTooLong     ErrorCode = "CONTEXT_TOO_LONG"
	ErrContentFiltered    ErrorCode = "CONTENT_FILTERED"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a new Error wrapping an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError extracts a structured *Error from anywhere in the error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether the error chain carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// NewConfigurationError creates an error for invalid session setup.
// Configuration errors are raised before the turn loop starts, never mid-session.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrConfiguration, Message: message}
}

// NewTimeoutError creates an error for a completion call that exhausted its
// per-turn budget. Never retryable: the budget is already spent.
func NewTimeoutError(provider string) *Error {
	return &Error{
		Code:     ErrTimedOut,
		Message:  "completion call exceeded the per-turn timeout",
		Provider: provider,
	}
}

// NewCancellationError creates an error for a caller-initiated abort.
func NewCancellationError() *Error {
	return &Error{Code: ErrCancelled, Message: "session cancelled by caller"}
}

// NewTurnFailure wraps a completion-service failure for a specific turn.
func NewTurnFailure(turnNumber int, speakerID string, cause error) *Error {
	return &Error{
		Code:    ErrTurnFailed,
		Message: fmt.Sprintf("turn %d failed for participant %q", turnNumber, speakerID),
		Cause:   cause,
	}
}

// NewSynthesisUnavailableError wraps a synthesis failure. It degrades the
// result but never fails the session.
func NewSynthesisUnavailableError(cause error) *Error {
	return &Error{
		Code:    ErrSynthesisUnavailable,
		Message: "synthesis could not be produced",
		Cause:   cause,
	}
}
