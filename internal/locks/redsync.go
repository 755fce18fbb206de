package locks

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/redis"
)

// RedsyncLocker implements the polyfilled lock with the Redlock algorithm
// from go-redsync/redsync/v4 on top of our Redis client. Mutexes are renewed
// at a third of their expiry while held.
type RedsyncLocker struct {
	redsync *redsync.Redsync
	expiry  time.Duration
	delay   time.Duration
	logger  logging.Logger
}

// NewRedsyncLocker creates a Redlock-backed locker.
//
// Parameters:
//   - redisClient: A connected Redis client
//   - logger: Receives release and renewal failures; nil uses the global logger
//
// Returns:
//   - *RedsyncLocker: The locker
//   - error: A config error when redisClient is nil
func NewRedsyncLocker(redisClient *redis.Client, logger logging.Logger) (*RedsyncLocker, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())

	return &RedsyncLocker{
		redsync: redsync.New(pool),
		expiry:  DefaultLeaseTTL,
		delay:   25 * time.Millisecond,
		logger:  logger,
	}, nil
}

// Acquire implements Locker. redsync retries until ctx is done.
func (rl *RedsyncLocker) Acquire(ctx context.Context, name string) (Unlock, error) {
	mutex := rl.redsync.NewMutex("redsync:"+name,
		redsync.WithExpiry(rl.expiry),
		redsync.WithTries(math.MaxInt32),
		redsync.WithRetryDelay(rl.delay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	renewCtx, stopRenewal := context.WithCancel(context.Background())
	go rl.renew(renewCtx, name, mutex)

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenewal()

			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if ok, err := mutex.UnlockContext(unlockCtx); err != nil || !ok {
				rl.logger.Warn("Failed to release redsync lock",
					logging.Field{Key: "lock", Value: name},
					logging.Err(err))
			}
		})
	}, nil
}

// Backend implements Locker.
func (rl *RedsyncLocker) Backend() Backend {
	return BackendRedsync
}

func (rl *RedsyncLocker) renew(ctx context.Context, name string, mutex *redsync.Mutex) {
	ticker := time.NewTicker(rl.expiry / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, rl.expiry/3)
			ok, err := mutex.ExtendContext(extendCtx)
			cancel()

			if ctx.Err() != nil {
				return
			}
			if err != nil || !ok {
				rl.logger.Warn("Redsync lock lost during renewal",
					logging.Field{Key: "lock", Value: name},
					logging.Err(err))
				return
			}
		}
	}
}
