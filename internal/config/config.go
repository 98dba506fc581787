// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/elobattle/internal/domain/rating"
	"github.com/okian/elobattle/internal/domain/selection"
)

// Supported catalog store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBDriver selects the catalog store: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is a file path for sqlite or a connection string for postgres.
	DBDSN string `koanf:"db_dsn"`

	// CatalogSeed is an optional YAML file of items merged on startup.
	CatalogSeed string `koanf:"catalog_seed"`

	// DefaultRating is the baseline for new items and for resets.
	DefaultRating float64 `koanf:"default_rating"`

	// KTiers maps the smaller comparison count of a matchup to a learning rate.
	KTiers []rating.Tier `koanf:"k_tiers"`

	// SelectionExponent is p in the matchup weight 1/(comparisons+1)^p.
	SelectionExponent float64 `koanf:"selection_exponent"`

	// RandomSeed seeds matchup selection; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	// QueueSize bounds the in-memory outcome queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of outcome appliers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds how many matchup IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBDriver:            DriverSQLite,
		DBDSN:               "elobattle.db",
		DefaultRating:       1200,
		KTiers:              rating.DefaultTiers(),
		SelectionExponent:   selection.DefaultExponent,
		QueueSize:           1024,
		WorkerCount:         1,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		ShutdownTimeout:     10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != DriverSQLite && c.DBDriver != DriverPostgres:
		return fmt.Errorf("%w: unknown db_driver %q", ErrInvalidConfig, c.DBDriver)
	case strings.TrimSpace(c.DBDSN) == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case !(c.DefaultRating > 0):
		return fmt.Errorf("%w: default_rating must be positive, got %v", ErrInvalidConfig, c.DefaultRating)
	case c.SelectionExponent < 0:
		return fmt.Errorf("%w: selection_exponent must not be negative, got %v", ErrInvalidConfig, c.SelectionExponent)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	}
	return nil
}
