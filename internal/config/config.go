// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config with defaults.
// - Load layers defaults, an optional YAML file and POSTBOARD_ env vars.
// - Errors returned from this package wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// MaxBodyBytes caps request bodies on POST routes.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// StatsIntervalMS sets how often entity gauges are refreshed; 0 disables.
	StatsIntervalMS int `koanf:"stats_interval_ms"`

	Store StoreConfig `koanf:"store"`
}

// StoreConfig configures the relational store.
type StoreConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `koanf:"driver"`

	// DSN is passed to the GORM dialector.
	DSN string `koanf:"dsn"`

	// AutoMigrate syncs the users and posts tables on start.
	AutoMigrate bool `koanf:"auto_migrate"`

	// ConnectRetries and ConnectBackoffMS control the startup ping.
	ConnectRetries   int `koanf:"connect_retries"`
	ConnectBackoffMS int `koanf:"connect_backoff_ms"`

	// QueryTimeoutMS bounds each store call; 0 means no deadline.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// SlowQueryMS logs queries slower than this at warn; 0 disables.
	SlowQueryMS int `koanf:"slow_query_ms"`

	// MaxOpenConns and MaxIdleConns are handed to database/sql; 0 keeps its defaults.
	// SQLite always runs on a single connection.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":3000",
		MaxBodyBytes:      1 << 20,
		ShutdownTimeoutMS: 30_000,
		StatsIntervalMS:   10_000,
		Store: StoreConfig{
			Driver:           DriverSQLite,
			DSN:              "file:postboard.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate",
			AutoMigrate:      true,
			ConnectRetries:   5,
			ConnectBackoffMS: 200,
			SlowQueryMS:      200,
		},
	}
}

// Validate checks the invariants Load relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("%w: store.dsn must not be empty for driver %q", ErrInvalidConfig, c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Store.ConnectRetries < 0 {
		return fmt.Errorf("%w: store.connect_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// StatsInterval returns StatsIntervalMS as a duration.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalMS) * time.Millisecond
}

// QueryTimeout returns QueryTimeoutMS as a duration.
func (s StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutMS) * time.Millisecond
}

// ConnectBackoff returns ConnectBackoffMS as a duration.
func (s StoreConfig) ConnectBackoff() time.Duration {
	return time.Duration(s.ConnectBackoffMS) * time.Millisecond
}

// SlowQuery returns SlowQueryMS as a duration.
func (s StoreConfig) SlowQuery() time.Duration {
	return time.Duration(s.SlowQueryMS) * time.Millisecond
}
