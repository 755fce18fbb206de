package config

import (
	"strings"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"PORT", "LOG_LEVEL",
	"AUTHKIT_CLIENT_ID", "AUTHKIT_REDIRECT_URI", "AUTHKIT_API_HOSTNAME", "AUTHKIT_HTTPS",
	"AUTHKIT_PORT", "AUTHKIT_DEV_MODE", "AUTHKIT_REFRESH_BUFFER_SECONDS", "AUTHKIT_AUTO_REFRESH_INTERVAL",
	"LOCK_BACKEND", "LOCK_TIMEOUT",
	"PERSISTENT_STORE", "SQLITE_PATH", "POSTGRES_DSN", "STORAGE_ENCRYPTION_KEY",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE", "REDIS_KEY_PREFIX",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	return &Config{
		Port:                "3000",
		ClientID:            "client_123",
		APIPort:             "0",
		RefreshBufferSecs:   "10",
		AutoRefreshInterval: "1s",
		LockBackend:         "auto",
		LockTimeout:         "10s",
		PersistentStore:     "memory",
		RedisAddress:        "localhost:6379",
		RedisDB:             "0",
		RedisPoolSize:       "10",
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	config := Load()

	checks := map[string][2]string{
		"Port":                {config.Port, "3000"},
		"LogLevel":            {config.LogLevel, "info"},
		"ClientID":            {config.ClientID, ""},
		"RedirectURI":         {config.RedirectURI, "http://localhost:3000/callback"},
		"APIHostname":         {config.APIHostname, "api.workos.com"},
		"APIPort":             {config.APIPort, "0"},
		"DevMode":             {config.DevMode, ""},
		"RefreshBufferSecs":   {config.RefreshBufferSecs, "10"},
		"AutoRefreshInterval": {config.AutoRefreshInterval, "1s"},
		"LockBackend":         {config.LockBackend, "auto"},
		"LockTimeout":         {config.LockTimeout, "10s"},
		"PersistentStore":     {config.PersistentStore, "memory"},
		"SQLitePath":          {config.SQLitePath, "./authkit_session.db"},
		"RedisAddress":        {config.RedisAddress, "localhost:6379"},
		"RedisDB":             {config.RedisDB, "0"},
		"RedisPoolSize":       {config.RedisPoolSize, "10"},
		"RedisKeyPrefix":      {config.RedisKeyPrefix, "authkit:"},
	}
	for field, c := range checks {
		if c[0] != c[1] {
			t.Errorf("Load() %s = %q, want %q", field, c[0], c[1])
		}
	}

	if !config.APIHTTPS {
		t.Error("Load() APIHTTPS = false, want true")
	}
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4000")
	t.Setenv("AUTHKIT_CLIENT_ID", "client_env")
	t.Setenv("AUTHKIT_HTTPS", "false")
	t.Setenv("AUTHKIT_PORT", "8081")
	t.Setenv("AUTHKIT_DEV_MODE", "true")
	t.Setenv("LOCK_BACKEND", "redsync")
	t.Setenv("PERSISTENT_STORE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/authkit")
	t.Setenv("REDIS_KEY_PREFIX", "tenant:")

	config := Load()

	if config.RedirectURI != "http://localhost:4000/callback" {
		t.Errorf("RedirectURI = %q, want default built from PORT", config.RedirectURI)
	}
	if config.ClientID != "client_env" {
		t.Errorf("ClientID = %q", config.ClientID)
	}
	if config.APIHTTPS {
		t.Error("APIHTTPS = true, want false")
	}
	if config.APIPortNumber() != 8081 {
		t.Errorf("APIPortNumber() = %d, want 8081", config.APIPortNumber())
	}
	if config.LockBackend != "redsync" || config.PersistentStore != "postgres" {
		t.Errorf("LockBackend = %q, PersistentStore = %q", config.LockBackend, config.PersistentStore)
	}
	if config.RedisKeyPrefix != "tenant:" {
		t.Errorf("RedisKeyPrefix = %q", config.RedisKeyPrefix)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY_EXISTS", "test-value")
	t.Setenv("TEST_KEY_EMPTY", "")

	tests := []struct {
		key      string
		expected string
	}{
		{"TEST_KEY_EXISTS", "test-value"},
		{"TEST_KEY_EMPTY", "default-value"},
		{"TEST_KEY_NOT_SET", "default-value"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := getEnv(tt.key, "default-value"); got != tt.expected {
				t.Errorf("getEnv(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"true value", "true", false, true},
		{"false value", "false", true, false},
		{"1 value", "1", false, true},
		{"0 value", "0", true, false},
		{"invalid value uses default", "invalid", true, true},
		{"empty value uses default", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getBoolEnv("TEST_BOOL", tt.defaultValue); got != tt.expected {
				t.Errorf("getBoolEnv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorContains string
	}{
		{"valid minimal config", func(c *Config) {}, ""},
		{"missing client id", func(c *Config) { c.ClientID = "" }, "AUTHKIT_CLIENT_ID environment variable is required"},
		{"invalid port", func(c *Config) { c.Port = "invalid" }, "PORT must be a valid port number"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT must be a valid port number"},
		{"negative api port", func(c *Config) { c.APIPort = "-1" }, "AUTHKIT_PORT must be 0"},
		{"bad dev mode", func(c *Config) { c.DevMode = "sometimes" }, "AUTHKIT_DEV_MODE must be a boolean"},
		{"negative buffer", func(c *Config) { c.RefreshBufferSecs = "-5" }, "AUTHKIT_REFRESH_BUFFER_SECONDS"},
		{"zero interval", func(c *Config) { c.AutoRefreshInterval = "0s" }, "AUTHKIT_AUTO_REFRESH_INTERVAL"},
		{"bad lock timeout", func(c *Config) { c.LockTimeout = "soon" }, "LOCK_TIMEOUT must be a positive duration"},
		{"unknown lock backend", func(c *Config) { c.LockBackend = "zookeeper" }, "LOCK_BACKEND must be"},
		{"unknown store", func(c *Config) { c.PersistentStore = "mongo" }, "PERSISTENT_STORE must be"},
		{"postgres without dsn", func(c *Config) { c.PersistentStore = "postgres" }, "POSTGRES_DSN is required"},
		{"postgres with dsn", func(c *Config) {
			c.PersistentStore = "postgres"
			c.PostgresDSN = "postgres://localhost/authkit"
		}, ""},
		{"redis store without address", func(c *Config) {
			c.PersistentStore = "redis"
			c.RedisAddress = ""
		}, "REDIS_ADDRESS is required"},
		{"redsync with bad db", func(c *Config) {
			c.LockBackend = "redsync"
			c.RedisDB = "16"
		}, "REDIS_DB must be a number between 0 and 15"},
		{"storage lock with bad pool", func(c *Config) {
			c.LockBackend = "storage"
			c.RedisPoolSize = "0"
		}, "REDIS_POOL_SIZE must be a positive number"},
		{"redis settings ignored when unused", func(c *Config) { c.RedisDB = "99" }, ""},
		{"short encryption key", func(c *Config) { c.EncryptionKey = "short" }, "STORAGE_ENCRYPTION_KEY must be at least 16"},
		{"encryption key", func(c *Config) { c.EncryptionKey = "a-long-enough-passphrase" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Config.Validate() expected error containing %q", tt.errorContains)
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Config.Validate() error = %q, want it to contain %q", err.Error(), tt.errorContains)
			}
		})
	}
}

func TestConfig_Accessors(t *testing.T) {
	config := validConfig()
	config.RefreshBufferSecs = "30"
	config.AutoRefreshInterval = "250ms"
	config.LockTimeout = "2s"
	config.RedisDB = "3"
	config.RedisPoolSize = "7"

	if got := config.RefreshBuffer(); got != 30*time.Second {
		t.Errorf("RefreshBuffer() = %v", got)
	}
	if got := config.AutoRefreshEvery(); got != 250*time.Millisecond {
		t.Errorf("AutoRefreshEvery() = %v", got)
	}
	if got := config.LockWait(); got != 2*time.Second {
		t.Errorf("LockWait() = %v", got)
	}
	if config.RedisDBNumber() != 3 || config.RedisPoolSizeNumber() != 7 {
		t.Errorf("RedisDBNumber() = %d, RedisPoolSizeNumber() = %d", config.RedisDBNumber(), config.RedisPoolSizeNumber())
	}
}

func TestConfig_DevModeOverride(t *testing.T) {
	config := validConfig()
	if config.DevModeOverride() != nil {
		t.Error("DevModeOverride() should be nil when unset")
	}

	config.DevMode = "false"
	if got := config.DevModeOverride(); got == nil || *got {
		t.Errorf("DevModeOverride() = %v, want false", got)
	}
}

func TestConfig_UsesRedis(t *testing.T) {
	tests := []struct {
		store, lock string
		want        bool
	}{
		{"memory", "auto", false},
		{"sqlite", "native", false},
		{"redis", "auto", true},
		{"memory", "storage", true},
		{"memory", "REDSYNC", true},
	}

	for _, tt := range tests {
		config := &Config{PersistentStore: tt.store, LockBackend: tt.lock}
		if got := config.UsesRedis(); got != tt.want {
			t.Errorf("UsesRedis(%s, %s) = %v, want %v", tt.store, tt.lock, got, tt.want)
		}
	}
}

func BenchmarkConfig_Validate(b *testing.B) {
	config := validConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = config.Validate()
	}
}
