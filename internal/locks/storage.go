package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"authkit-session/internal/common/logging"
	"authkit-session/internal/common/utils"
)

// DefaultLeaseTTL is how long a storage lock survives without renewal.
const DefaultLeaseTTL = 5 * time.Second

var errLockHeld = errors.New("lock held by another owner")

// LockStore is the shared storage a StorageLocker coordinates through.
// internal/redis.Client implements it.
type LockStore interface {
	// TryAcquire claims name for owner if it is free; the claim lapses after ttl.
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	// Release drops the claim if owner still holds it.
	Release(ctx context.Context, name, owner string) (bool, error)
	// Extend pushes the claim's lapse to ttl from now if owner still holds it.
	Extend(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
}

// StorageLocker is the polyfilled lock: an advisory claim in shared storage,
// polled with exponential backoff until the caller's deadline.
//
// Each acquisition uses a fresh owner token. While held, the claim is renewed
// at a third of its TTL so a long operation keeps it, and a crashed holder
// loses it after at most one TTL.
type StorageLocker struct {
	store  LockStore
	ttl    time.Duration
	retry  utils.RetryConfig
	logger logging.Logger
}

// StorageOption configures a StorageLocker.
type StorageOption func(*StorageLocker)

// WithLeaseTTL sets the claim lifetime between renewals.
func WithLeaseTTL(ttl time.Duration) StorageOption {
	return func(l *StorageLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithPolling replaces the polling backoff.
func WithPolling(cfg utils.RetryConfig) StorageOption {
	return func(l *StorageLocker) {
		l.retry = cfg
	}
}

// NewStorageLocker creates a polyfilled locker over store.
//
// Parameters:
//   - store: Shared storage, typically a *redis.Client
//   - logger: Receives release and renewal failures; nil uses the global logger
//   - opts: Optional lease TTL and polling settings
//
// Example:
//
//	client, _ := redis.NewClient(&redis.Config{Address: "localhost:6379"})
//	locker := locks.NewStorageLocker(client, nil)
func NewStorageLocker(store LockStore, logger logging.Logger, opts ...StorageOption) *StorageLocker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	l := &StorageLocker{
		store:  store,
		ttl:    DefaultLeaseTTL,
		retry:  utils.PollingRetryConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	// polling stops on the caller's deadline, never on an attempt count
	l.retry.MaxAttempts = 0
	return l
}

// Acquire implements Locker.
func (l *StorageLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	owner := uuid.NewString()

	err := utils.RetryWithBackoff(ctx, l.retry, func() error {
		ok, err := l.store.TryAcquire(ctx, name, owner, l.ttl)
		if err != nil {
			return err
		}
		if !ok {
			return errLockHeld
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	renewCtx, stopRenewal := context.WithCancel(context.Background())
	go l.renew(renewCtx, name, owner)

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenewal()

			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			released, err := l.store.Release(releaseCtx, name, owner)
			if err != nil {
				l.logger.Warn("Failed to release storage lock",
					logging.Field{Key: "lock", Value: name},
					logging.Err(err))
				return
			}
			if !released {
				l.logger.Warn("Storage lock lapsed before release", logging.Field{Key: "lock", Value: name})
			}
		})
	}, nil
}

// Backend implements Locker.
func (l *StorageLocker) Backend() Backend {
	return BackendStorage
}

// renew extends the claim at ttl/3 until ctx is cancelled or the claim is lost.
func (l *StorageLocker) renew(ctx context.Context, name, owner string) {
	interval := l.ttl / 3
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, interval)
			ok, err := l.store.Extend(extendCtx, name, owner, l.ttl)
			cancel()

			if ctx.Err() != nil {
				return
			}
			if err != nil {
				l.logger.Warn("Failed to renew storage lock", logging.Field{Key: "lock", Value: name}, logging.Err(err))
				continue
			}
			if !ok {
				l.logger.Warn("Storage lock lost during renewal", logging.Field{Key: "lock", Value: name})
				return
			}
		}
	}
}
