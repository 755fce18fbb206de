package storage

import (
	"context"
	"fmt"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/crypto"
	"authkit-session/internal/redis"
	"authkit-session/internal/storage/postgres"
	"authkit-session/internal/storage/sqlite"
)

// Supported persistent store types
const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects and configures the persistent store.
type Config struct {
	Type          string
	Redis         *redis.Client
	SQLite        *sqlite.Config
	Postgres      *postgres.Config
	EncryptionKey string
}

// NewPersistent builds the persistent store described by cfg. A non-empty
// EncryptionKey wraps it in an EncryptedStore.
func NewPersistent(ctx context.Context, cfg Config) (Store, error) {
	var store Store

	switch cfg.Type {
	case "", TypeMemory:
		store = NewMemoryStore()
	case TypeRedis:
		if cfg.Redis == nil {
			return nil, errors.ConfigError("redis persistent store requires a redis client")
		}
		store = cfg.Redis
	case TypeSQLite:
		if cfg.SQLite == nil {
			cfg.SQLite = sqlite.DefaultConfig()
		}
		adapter, err := sqlite.NewAdapter(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		store = adapter
	case TypePostgres:
		if cfg.Postgres == nil {
			return nil, errors.ConfigError("postgres persistent store requires a connection config")
		}
		adapter, err := postgres.NewAdapter(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store = adapter
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported persistent store type: %s", cfg.Type))
	}

	if cfg.EncryptionKey == "" {
		return store, nil
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return NewEncryptedStore(store, encryptor), nil
}
