package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeRefresh,
				Message: "refresh token revoked",
				Code:    "invalid_grant",
			},
			want: "refresh: refresh token revoked: code=invalid_grant",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeConnection,
				Message: "authenticate request failed",
				Cause:   errors.New("network timeout"),
			},
			want: "connection: authenticate request failed: cause=network timeout",
		},
		{
			name: "context keys are sorted",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "field validation failed",
				Context: map[string]interface{}{
					"value": "invalid",
					"field": "screen_hint",
				},
			},
			want: "validation: field validation failed: context={field=screen_hint, value=invalid}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := InternalError("wrapper error", cause)

	if appError.Unwrap() != cause {
		t.Errorf("AppError.Unwrap() = %v, want %v", appError.Unwrap(), cause)
	}

	if ConfigError("no cause").Unwrap() != nil {
		t.Error("AppError.Unwrap() without cause should be nil")
	}
}

func TestLockTimeoutError(t *testing.T) {
	err := LockTimeoutError("WORKOS_REFRESH_SESSION", nil)

	if err.Type != ErrTypeLockTimeout {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeLockTimeout)
	}
	if err.Code != CodeAcquisitionTimeout {
		t.Errorf("Code = %v, want %v", err.Code, CodeAcquisitionTimeout)
	}
	if got := LockName(err); got != "WORKOS_REFRESH_SESSION" {
		t.Errorf("LockName() = %q, want WORKOS_REFRESH_SESSION", got)
	}

	wrapped := fmt.Errorf("refresh: %w", err)
	if got := LockName(wrapped); got != "WORKOS_REFRESH_SESSION" {
		t.Errorf("LockName(wrapped) = %q", got)
	}
	if LockName(RefreshError("nope")) != "" {
		t.Error("LockName should be empty for other error types")
	}
}

func TestLoginRequiredError(t *testing.T) {
	cause := RefreshError("session expired")
	err := LoginRequiredError(cause)

	if err.Message != "No access token available" {
		t.Errorf("Message = %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("LoginRequiredError should wrap its cause")
	}
}

func TestNoClientIDError(t *testing.T) {
	err := NoClientIDError()

	if err.Type != ErrTypeConfig || err.Code != CodeNoClientID {
		t.Errorf("unexpected error %v", err)
	}
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{"nil error", nil, ErrTypeInternal, false},
		{"matching type", RefreshError("x"), ErrTypeRefresh, true},
		{"different type", RefreshError("x"), ErrTypeCodeExchange, false},
		{"plain error", errors.New("x"), ErrTypeInternal, false},
		{"wrapped app error", fmt.Errorf("outer: %w", NoSessionError("sign out")), ErrTypeNoSession, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.want {
				t.Errorf("IsType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil error", nil, ""},
		{"app error", LoginRequiredError(nil), ErrTypeLoginRequired},
		{"plain error", errors.New("x"), ErrTypeInternal},
		{"wrapped", fmt.Errorf("w: %w", LockTimeoutError("a", nil)), ErrTypeLockTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetType(tt.err); got != tt.want {
				t.Errorf("GetType() = %v, want %v", got, tt.want)
			}
		})
	}
}
