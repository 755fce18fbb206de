package sqlite

import (
	"fmt"
)

// Config holds the SQLite persistent store settings.
type Config struct {
	DatabasePath string
	Table        string
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Table == "" {
		c.Table = "authkit_storage"
	}
	for _, r := range c.Table {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid table name %q", c.Table)
		}
	}
	return nil
}

// DefaultConfig returns a config pointing at ./authkit_session.db
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./authkit_session.db",
		Table:        "authkit_storage",
	}
}
