// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
package config

import (
	"fmt"
	"time"

	"github.com/okian/tally/internal/domain/standings"
)

// Supported record store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the record store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the connection string for sqlite and postgres drivers.
	StoreDSN string `koanf:"store_dsn"`

	// SeedFile optionally points at a YAML fixture loaded into the store at startup.
	SeedFile string `koanf:"seed_file"`

	// Districts is the fixed district roster used by the standings engine.
	// When empty the roster from the seed fixture is used.
	Districts []string `koanf:"districts"`

	// InitialLoadTimeoutMS bounds how long startup waits for the first bulk load.
	InitialLoadTimeoutMS int `koanf:"initial_load_timeout_ms"`

	// FeedBufferSize is the output buffer of the in-process change bus.
	FeedBufferSize int `koanf:"feed_buffer_size"`

	// DedupeSize bounds the number of remembered change ids.
	DedupeSize int `koanf:"dedupe_size"`

	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`

	// NotifyChannel is the Postgres LISTEN/NOTIFY channel for score changes.
	NotifyChannel string `koanf:"notify_channel"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		StoreDriver:          DriverMemory,
		InitialLoadTimeoutMS: 5_000,
		FeedBufferSize:       1_024,
		DedupeSize:           100_000,
		JWTSecret:            "change-me",
		NotifyChannel:        "score_changes",
	}
}

// InitialLoadTimeout returns the initial load bound as a duration.
func (c *Config) InitialLoadTimeout() time.Duration {
	return time.Duration(c.InitialLoadTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for driver %q", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Districts))
	for _, d := range c.Districts {
		key := standings.Normalize(d)
		if key == "" {
			return fmt.Errorf("%w: empty district label", ErrInvalidConfig)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate district %q", ErrInvalidConfig, d)
		}
		seen[key] = struct{}{}
	}
	return nil
}
