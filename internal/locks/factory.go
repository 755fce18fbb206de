package locks

import (
	"fmt"
	"strings"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/redis"
)

// Backend names a Locker implementation.
type Backend string

const (
	// BackendAuto picks a backend by what is available
	BackendAuto Backend = "auto"
	// BackendNative is the in-process broker
	BackendNative Backend = "native"
	// BackendStorage is the polyfilled storage lock
	BackendStorage Backend = "storage"
	// BackendRedsync is the polyfilled Redlock mutex
	BackendRedsync Backend = "redsync"
)

// ParseBackend converts a configuration value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendNative, BackendStorage, BackendRedsync:
		return b, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unknown lock backend %q", s))
	}
}

// Options describes what is available to build a Locker from.
type Options struct {
	// Force pins a backend instead of detecting one.
	Force Backend
	// Broker is the native broker, when the environment provides one.
	Broker *NativeBroker
	// Store backs the storage lock.
	Store LockStore
	// Redis backs the redsync lock.
	Redis *redis.Client
	// Logger receives backend diagnostics.
	Logger logging.Logger
}

// Select returns the Locker for opts.
//
// Without Force, a provided Broker wins; otherwise a shared Store selects the
// storage lock, then Redis selects redsync, and with nothing configured the
// process-wide DefaultBroker is used.
func Select(opts Options) (Locker, error) {
	switch opts.Force {
	case BackendNative:
		if opts.Broker != nil {
			return opts.Broker, nil
		}
		return DefaultBroker(), nil
	case BackendStorage:
		store := opts.Store
		if store == nil && opts.Redis != nil {
			store = opts.Redis
		}
		if store == nil {
			return nil, errors.ConfigError("storage lock backend requires a lock store")
		}
		return NewStorageLocker(store, opts.Logger), nil
	case BackendRedsync:
		return NewRedsyncLocker(opts.Redis, opts.Logger)
	case "", BackendAuto:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown lock backend %q", opts.Force))
	}

	switch {
	case opts.Broker != nil:
		return opts.Broker, nil
	case opts.Store != nil:
		return NewStorageLocker(opts.Store, opts.Logger), nil
	case opts.Redis != nil:
		return NewRedsyncLocker(opts.Redis, opts.Logger)
	default:
		return DefaultBroker(), nil
	}
}
