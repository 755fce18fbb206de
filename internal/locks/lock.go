// Package locks provides named mutual exclusion with an acquisition timeout.
//
// A Locker grants exclusive ownership of a name. Three backends share the same
// contract:
//
//   - NativeBroker: an in-process broker with first-come first-served waiters,
//     shared by every client in the process.
//   - StorageLocker: an advisory lock kept in shared storage (Redis SET NX),
//     polled with backoff. Visible to every process using the same store.
//   - RedsyncLocker: the Redlock algorithm from go-redsync over the same Redis.
//
// Callers normally go through WithLock, which bounds waiting by a timeout and
// guarantees release on every exit path.
package locks

import (
	"context"
	"errors"
	"time"

	apperrors "authkit-session/internal/common/errors"
)

// DefaultTimeout bounds lock acquisition when the caller passes no timeout.
const DefaultTimeout = 10 * time.Second

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker grants exclusive ownership of a name.
type Locker interface {
	// Acquire blocks until name is held or ctx is done. The ctx deadline is the
	// acquisition timeout; it has no effect once the lock is held.
	Acquire(ctx context.Context, name string) (Unlock, error)

	// Backend identifies the implementation.
	Backend() Backend
}

// WithLock acquires name, runs op and releases the lock.
//
// The lock is released whether op returns a value, returns an error or
// panics. Acquisition waits at most timeout (DefaultTimeout when timeout <= 0);
// if the wait runs out, op is never invoked and the returned error is an
// AppError of type ErrTypeLockTimeout carrying the lock name. op runs with the
// caller's ctx, so the acquisition timeout never interrupts it.
//
// Parameters:
//   - ctx: Caller context; cancelling it aborts the wait
//   - locker: The backend granting the lock
//   - name: Lock name, must not be empty
//   - timeout: Maximum time to wait for the lock
//   - op: The guarded operation
//
// Example:
//
//	token, err := locks.WithLock(ctx, locker, "WORKOS_REFRESH_SESSION", 0,
//		func(ctx context.Context) (string, error) {
//			return refresh(ctx)
//		})
//	if errors.IsType(err, errors.ErrTypeLockTimeout) {
//		// another client is refreshing; try again later
//	}
func WithLock[T any](ctx context.Context, locker Locker, name string, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if name == "" {
		return zero, apperrors.ValidationError("lock name must be a non-empty string")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	unlock, err := locker.Acquire(acquireCtx, name)
	waitErr := acquireCtx.Err()
	cancel()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(waitErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return zero, apperrors.LockTimeoutError(name, err)
		}
		return zero, apperrors.InternalError("failed to acquire lock", err).WithContext("lock", name)
	}
	defer unlock()

	return op(ctx)
}

// Do is WithLock for operations that only return an error.
func Do(ctx context.Context, locker Locker, name string, timeout time.Duration, op func(ctx context.Context) error) error {
	_, err := WithLock(ctx, locker, name, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
