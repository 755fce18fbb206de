package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_MaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := RetryWithBackoff(context.Background(), fastConfig(2), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig(5)
	cfg.RetryableErrors = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return fatal
	})

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_UnlimitedStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	err := RetryWithBackoff(ctx, fastConfig(0), func() error {
		calls++
		return errors.New("held")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, calls, 1)
}

func TestRandomInt64n(t *testing.T) {
	assert.Equal(t, int64(0), randomInt64n(0))
	for i := 0; i < 100; i++ {
		v := randomInt64n(10)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(10))
	}
}
