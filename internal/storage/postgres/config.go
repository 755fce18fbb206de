package postgres

import (
	"fmt"
	"regexp"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds the PostgreSQL persistent store settings.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.Table == "" {
		c.Table = "authkit_storage"
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	return nil
}
