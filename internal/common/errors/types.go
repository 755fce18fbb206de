package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeConnection represents transport failures talking to the identity provider or a store
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeValidation represents invalid arguments
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeLockTimeout represents a lock that could not be acquired in time
	ErrTypeLockTimeout ErrorType = "lock_timeout"
	// ErrTypeRefresh represents a refresh token rejected by the identity provider
	ErrTypeRefresh ErrorType = "refresh"
	// ErrTypeCodeExchange represents an authorization code rejected by the identity provider
	ErrTypeCodeExchange ErrorType = "code_exchange"
	// ErrTypeLoginRequired represents the absence of a usable access token
	ErrTypeLoginRequired ErrorType = "login_required"
	// ErrTypeNoSession represents an operation that needs a session when none exists
	ErrTypeNoSession ErrorType = "no_session"
)

// Error codes surfaced to callers
const (
	CodeAcquisitionTimeout = "AcquisitionTimeoutError"
	CodeNoClientID         = "NoClientIdProvided"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// LockTimeoutError reports that the named lock was not acquired before the deadline.
func LockTimeoutError(name string, cause error) *AppError {
	err := &AppError{
		Type:    ErrTypeLockTimeout,
		Message: fmt.Sprintf("failed to acquire lock %q before timeout", name),
		Code:    CodeAcquisitionTimeout,
		Cause:   cause,
	}
	return err.WithContext("lock", name)
}

// RefreshError reports a refresh token the identity provider refused.
func RefreshError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeRefresh,
		Message: msg,
	}
}

// CodeExchangeError reports an authorization code the identity provider refused.
func CodeExchangeError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeCodeExchange,
		Message: msg,
	}
}

// LoginRequiredError reports that no valid access token can be produced.
func LoginRequiredError(cause error) *AppError {
	return &AppError{
		Type:    ErrTypeLoginRequired,
		Message: "No access token available",
		Cause:   cause,
	}
}

// NoSessionError reports an operation that needs an active session.
func NoSessionError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeNoSession,
		Message: fmt.Sprintf("no active session for %s", operation),
	}
}

// NoClientIDError is returned when a client is constructed without a client id.
func NoClientIDError() *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: `Missing Client ID. Pass it to the constructor (createClient("client_01HXRMBQ9BJ3E7QSTQ9X2PHVB7"))`,
		Code:    CodeNoClientID,
	}
}

// IsType checks if an error, or any error it wraps, is an AppError of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrTypeInternal
	}

	return appErr.Type
}

// LockName returns the lock name carried by a lock timeout error, or "".
func LockName(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Type != ErrTypeLockTimeout {
		return ""
	}
	name, _ := appErr.Context["lock"].(string)
	return name
}
