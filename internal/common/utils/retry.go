// Package utils provides retry helpers shared by the lock and transport layers.
package utils

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetries is wrapped by RetryWithBackoff when every attempt failed.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryConfig holds configuration for retry operations with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first one.
	// Zero or negative means keep trying until the context is done.
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps exponential growth
	MaxDelay time.Duration

	// BackoffFactor is the multiplier applied after each attempt
	BackoffFactor float64

	// JitterFactor adds up to this fraction of the delay at random (0.0-1.0)
	JitterFactor float64

	// RetryableErrors decides which errors trigger another attempt.
	// If nil, all errors are retryable.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns a sensible default retry configuration.
//
// Default settings:
//   - MaxAttempts: 3 (initial attempt + 2 retries)
//   - InitialDelay: 1 second
//   - MaxDelay: 30 seconds
//   - BackoffFactor: 2.0
//   - JitterFactor: 0.1
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// PollingRetryConfig is tuned for contended lock polling: short first delay,
// bounded growth, unlimited attempts so the caller's deadline decides.
func PollingRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   0,
		InitialDelay:  25 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 1.5,
		JitterFactor:  0.2,
	}
}

// RetryWithBackoff executes fn with an exponential backoff retry strategy.
//
// Returns:
//   - nil if fn succeeds within the attempt limit
//   - an error wrapping ErrMaxRetries and the last failure if all attempts fail
//   - an error wrapping ctx.Err() if the context ends first
//   - the original error if RetryableErrors rejects it
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; config.MaxAttempts <= 0 || attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := delay
		if config.JitterFactor > 0 {
			wait += time.Duration(randomInt64n(int64(float64(delay) * config.JitterFactor)))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}

		if config.BackoffFactor > 0 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
		}
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

// randomInt64n returns a random int64 in [0, n) using crypto/rand.
func randomInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano() % n
	}
	return int64(binary.BigEndian.Uint64(b[:])>>1) % n
}
