// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and FORM_ env vars over those defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/courtform/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Tours lists the tours to rate. Comma separated values are accepted.
	Tours []string `koanf:"tours"`

	// RosterFile is a JSON roster document keyed by tour.
	RosterFile string `koanf:"roster_file"`

	// RosterDSN points at a Postgres database holding the players table.
	// Takes precedence over RosterFile when both are set.
	RosterDSN string `koanf:"roster_dsn"`

	// HyperparamsFile and HyperparamsURL locate the override document.
	// The URL wins when both are set.
	HyperparamsFile string `koanf:"hyperparams_file"`
	HyperparamsURL  string `koanf:"hyperparams_url"`

	// HyperparamsTimeoutMS bounds a single hyperparameter fetch.
	HyperparamsTimeoutMS int `koanf:"hyperparams_timeout_ms"`

	// RefreshIntervalSec re-reads the roster periodically; 0 disables it.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	// TriggerQueueSize bounds pending recompute triggers.
	TriggerQueueSize int `koanf:"trigger_queue_size"`

	// MaxLeaderboardLimit caps GET /ratings/{tour}?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		Tours:                []string{string(model.TourATP), string(model.TourWTA)},
		HyperparamsTimeoutMS: 5000,
		RefreshIntervalSec:   0,
		TriggerQueueSize:     16,
		MaxLeaderboardLimit:  100,
		MetricsEnabled:       true,
	}
}

// TourList returns the configured tours, parsed and deduplicated.
func (c *Config) TourList() []model.Tour {
	seen := make(map[model.Tour]struct{}, len(c.Tours))
	var out []model.Tour
	for _, t := range splitList(c.Tours) {
		tour, ok := model.LookupTour(t)
		if !ok {
			continue
		}
		if _, dup := seen[tour]; dup {
			continue
		}
		seen[tour] = struct{}{}
		out = append(out, tour)
	}
	return out
}

// HyperparamsTimeout returns the fetch timeout as a duration.
func (c *Config) HyperparamsTimeout() time.Duration {
	return time.Duration(c.HyperparamsTimeoutMS) * time.Millisecond
}

// RefreshInterval returns the roster refresh period; zero means disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	for _, t := range splitList(c.Tours) {
		if _, ok := model.LookupTour(t); !ok {
			return fmt.Errorf("%w: unknown tour %q", ErrInvalidConfig, t)
		}
	}
	if len(c.TourList()) == 0 {
		return fmt.Errorf("%w: at least one tour is required", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit <= 0 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if c.TriggerQueueSize <= 0 {
		return fmt.Errorf("%w: trigger_queue_size must be positive", ErrInvalidConfig)
	}
	if c.RefreshIntervalSec < 0 {
		return fmt.Errorf("%w: refresh_interval_sec must not be negative", ErrInvalidConfig)
	}
	if c.HyperparamsTimeoutMS <= 0 {
		return fmt.Errorf("%w: hyperparams_timeout_ms must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// splitList flattens entries like "atp,wta" coming from env vars.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
