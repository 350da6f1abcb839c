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

// ProviderError reports an upstream response that was not usable: a non-2xx
// status or a body that did not have the expected shape.
type ProviderError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s API error: %d: %s", e.Provider, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s API error: %d", e.Provider, e.StatusCode)
}

// Is matches ErrProviderResponse.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == ErrProviderResponse.Code
}

// NewProviderError builds a ProviderError. reason may be empty.
func NewProviderError(provider string, status int, reason string) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Reason: reason}
}

// Predefined errors
var (
	// Request errors
	ErrInvalidRange = &Error{Code: "INVALID_RANGE", Message: "invalid date range"}
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "not found"}

	// Provider errors
	ErrTransport        = &Error{Code: "TRANSPORT_FAILED", Message: "provider unreachable"}
	ErrProviderResponse = &Error{Code: "PROVIDER_RESPONSE", Message: "unexpected provider response"}

	// Export errors
	ErrExportFailed = &Error{Code: "EXPORT_FAILED", Message: "export failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
