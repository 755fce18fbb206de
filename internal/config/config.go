// Package config provides configuration management for the authkit session host.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the host starts safely.
//
// The session manager needs a client id, a place to persist the development
// refresh token (memory, Redis, SQLite or PostgreSQL) and a lock backend that
// every client sharing the session can see.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Host port (default: 3000)
//   - LOG_LEVEL: Logging level (default: info)
//
// Identity Provider:
//   - AUTHKIT_CLIENT_ID: Client id issued by the identity provider (required)
//   - AUTHKIT_REDIRECT_URI: Redirect target (default: http://localhost:PORT/callback)
//   - AUTHKIT_API_HOSTNAME: API host (default: api.workos.com)
//   - AUTHKIT_HTTPS: Use https for the API (default: true)
//   - AUTHKIT_PORT: API port, 0 for the scheme default (default: 0)
//   - AUTHKIT_DEV_MODE: Force development mode on or off (default: detected from the redirect host)
//   - AUTHKIT_REFRESH_BUFFER_SECONDS: Refresh this long before expiry (default: 10)
//   - AUTHKIT_AUTO_REFRESH_INTERVAL: Background check interval (default: 1s)
//
// Locking:
//   - LOCK_BACKEND: auto, native, storage or redsync (default: auto)
//   - LOCK_TIMEOUT: Wait for the refresh lock at most this long (default: 10s)
//
// Persistent Store:
//   - PERSISTENT_STORE: memory, redis, sqlite or postgres (default: memory)
//   - SQLITE_PATH: SQLite database file path (default: ./authkit_session.db)
//   - POSTGRES_DSN: PostgreSQL connection string (required if using PostgreSQL)
//   - STORAGE_ENCRYPTION_KEY: Passphrase encrypting persisted values (optional, minimum 16 characters)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - REDIS_KEY_PREFIX: Prefix for every key (default: authkit:)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the authkit session host.
// All string fields correspond to environment variables that can be set to
// override the default values.
type Config struct {
	// Application settings
	Port     string // Host port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Identity provider
	ClientID            string // Client id (required)
	RedirectURI         string // Redirect target after login
	APIHostname         string // Identity provider API host
	APIHTTPS            bool   // Whether the API is reached over https
	APIPort             string // Identity provider API port, "0" for default
	DevMode             string // "true", "false" or empty to detect
	RefreshBufferSecs   string // Seconds before expiry to refresh
	AutoRefreshInterval string // Background check interval (e.g. "1s")

	// Locking
	LockBackend string // auto, native, storage, redsync
	LockTimeout string // Refresh lock acquisition timeout (e.g. "10s")

	// Persistent store
	PersistentStore string // memory, redis, sqlite, postgres
	SQLitePath      string // Path to SQLite database file
	PostgresDSN     string // PostgreSQL connection string
	EncryptionKey   string // Passphrase encrypting persisted values

	// Redis configuration
	RedisAddress   string // Redis server address (host:port)
	RedisPassword  string // Redis authentication password
	RedisDB        string // Redis database number (0-15)
	RedisPoolSize  string // Redis connection pool size
	RedisKeyPrefix string // Prefix for every Redis key
}

// Load creates a new Config with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config before use.
func Load() *Config {
	port := getEnv("PORT", "3000")

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClientID:            getEnv("AUTHKIT_CLIENT_ID", ""),
		RedirectURI:         getEnv("AUTHKIT_REDIRECT_URI", "http://localhost:"+port+"/callback"),
		APIHostname:         getEnv("AUTHKIT_API_HOSTNAME", "api.workos.com"),
		APIHTTPS:            getBoolEnv("AUTHKIT_HTTPS", true),
		APIPort:             getEnv("AUTHKIT_PORT", "0"),
		DevMode:             getEnv("AUTHKIT_DEV_MODE", ""),
		RefreshBufferSecs:   getEnv("AUTHKIT_REFRESH_BUFFER_SECONDS", "10"),
		AutoRefreshInterval: getEnv("AUTHKIT_AUTO_REFRESH_INTERVAL", "1s"),

		LockBackend: getEnv("LOCK_BACKEND", "auto"),
		LockTimeout: getEnv("LOCK_TIMEOUT", "10s"),

		PersistentStore: getEnv("PERSISTENT_STORE", "memory"),
		SQLitePath:      getEnv("SQLITE_PATH", "./authkit_session.db"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		EncryptionKey:   getEnv("STORAGE_ENCRYPTION_KEY", ""),

		RedisAddress:   getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnv("REDIS_DB", "0"),
		RedisPoolSize:  getEnv("REDIS_POOL_SIZE", "10"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "authkit:"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
// Values strconv.ParseBool rejects fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks required fields, value formats and cross-field
// dependencies (Redis for the redis store and the Redis-backed locks,
// a DSN for PostgreSQL).
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("AUTHKIT_CLIENT_ID environment variable is required")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if port, err := strconv.Atoi(c.APIPort); err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("AUTHKIT_PORT must be 0 or a valid port number")
	}

	if c.DevMode != "" {
		if _, err := strconv.ParseBool(c.DevMode); err != nil {
			return fmt.Errorf("AUTHKIT_DEV_MODE must be a boolean when provided")
		}
	}

	if secs, err := strconv.Atoi(c.RefreshBufferSecs); err != nil || secs < 0 {
		return fmt.Errorf("AUTHKIT_REFRESH_BUFFER_SECONDS must be a non-negative number")
	}

	if d, err := time.ParseDuration(c.AutoRefreshInterval); err != nil || d <= 0 {
		return fmt.Errorf("AUTHKIT_AUTO_REFRESH_INTERVAL must be a positive duration (e.g., '1s', '500ms')")
	}

	if d, err := time.ParseDuration(c.LockTimeout); err != nil || d <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be a positive duration (e.g., '10s')")
	}

	switch strings.ToLower(c.LockBackend) {
	case "", "auto", "native", "storage", "redsync":
	default:
		return fmt.Errorf("LOCK_BACKEND must be 'auto', 'native', 'storage' or 'redsync'")
	}

	switch c.PersistentStore {
	case "memory", "redis", "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when using PostgreSQL")
		}
	default:
		return fmt.Errorf("PERSISTENT_STORE must be 'memory', 'redis', 'sqlite' or 'postgres'")
	}

	if c.UsesRedis() {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis store and the storage or redsync lock")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) < 16 {
		return fmt.Errorf("STORAGE_ENCRYPTION_KEY must be at least 16 characters when provided")
	}

	return nil
}

// UsesRedis reports whether the store or the lock backend needs Redis.
func (c *Config) UsesRedis() bool {
	backend := strings.ToLower(c.LockBackend)
	return c.PersistentStore == "redis" || backend == "storage" || backend == "redsync"
}

// DevModeOverride returns the forced development mode, or nil to detect it.
// Call after Validate.
func (c *Config) DevModeOverride() *bool {
	if c.DevMode == "" {
		return nil
	}
	devMode, _ := strconv.ParseBool(c.DevMode)
	return &devMode
}

// RefreshBuffer returns AUTHKIT_REFRESH_BUFFER_SECONDS as a duration.
func (c *Config) RefreshBuffer() time.Duration {
	secs, _ := strconv.Atoi(c.RefreshBufferSecs)
	return time.Duration(secs) * time.Second
}

// AutoRefreshEvery returns the parsed background check interval.
func (c *Config) AutoRefreshEvery() time.Duration {
	d, _ := time.ParseDuration(c.AutoRefreshInterval)
	return d
}

// LockWait returns the parsed lock timeout.
func (c *Config) LockWait() time.Duration {
	d, _ := time.ParseDuration(c.LockTimeout)
	return d
}

// APIPortNumber returns the parsed API port.
func (c *Config) APIPortNumber() int {
	port, _ := strconv.Atoi(c.APIPort)
	return port
}

// RedisDBNumber returns the parsed Redis database number.
func (c *Config) RedisDBNumber() int {
	db, _ := strconv.Atoi(c.RedisDB)
	return db
}

// RedisPoolSizeNumber returns the parsed Redis pool size.
func (c *Config) RedisPoolSizeNumber() int {
	size, _ := strconv.Atoi(c.RedisPoolSize)
	return size
}
