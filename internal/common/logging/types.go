// Package logging is the structured logging facade used across the session
// manager. The only implementation that writes anywhere is backed by zap.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// LogLevel is a minimum severity, spelled the way LOG_LEVEL spells it.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// ParseLevel reads a LOG_LEVEL value. Unknown or empty values mean info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is implemented by ZapAdapter and the no-op logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// LogConfig configures NewZapLogger.
type LogConfig struct {
	Level LogLevel
	// Output defaults to stdout.
	Output io.Writer
	// TimeFormat is a time layout; empty means RFC3339.
	TimeFormat string
	// Name becomes the zap logger name.
	Name string
	// JSON selects the JSON encoder instead of the console one.
	JSON bool
}

// DefaultLogConfig is info level console output named "authkit".
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      InfoLevel,
		TimeFormat: time.RFC3339,
		Name:       "authkit",
	}
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Strings creates a string slice field
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Duration creates a duration field; zap renders it in milliseconds.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d}
}

// Redacted records whether a secret is present without its value. Tokens,
// codes and verifiers are only ever logged through this helper.
func Redacted(key, secret string) Field {
	if secret == "" {
		return Field{Key: key, Value: "<empty>"}
	}
	return Field{Key: key, Value: fmt.Sprintf("<redacted len=%d>", len(secret))}
}
