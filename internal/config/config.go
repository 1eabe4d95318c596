// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Keys are flat snake_case so one name works in YAML and in FUNDORA_ env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/fundora/internal/adapters/repository"
	"github.com/okian/fundora/internal/domain/scoring"
	"github.com/okian/fundora/internal/domain/simulation"
)

// DevJWTSecret is the default signing secret. It is only fit for local use.
const DevJWTSecret = "fundora-dev-secret"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the event store: memory, sqlite or postgres.
	StoreDriver   string `koanf:"store_driver"`
	StoreDSN      string `koanf:"store_dsn"`
	StoreMaxConns int    `koanf:"store_max_conns"`

	// CatalogPath points at the YAML subject catalog. Empty starts with an
	// empty catalog.
	CatalogPath string `koanf:"catalog_path"`

	RiskModel        string  `koanf:"risk_model"`
	RiskFactorLow    float64 `koanf:"risk_factor_low"`
	RiskFactorMedium float64 `koanf:"risk_factor_medium"`
	RiskFactorHigh   float64 `koanf:"risk_factor_high"`

	ViewWindowMinutes        int `koanf:"view_window_minutes"`
	ComparisonWindowMinutes  int `koanf:"comparison_window_minutes"`
	RecentWindowDays         int `koanf:"recent_window_days"`
	AnalyticsCacheTTLSeconds int `koanf:"analytics_cache_ttl_seconds"`
	DedupeIndexSize          int `koanf:"dedupe_index_size"`

	// WriterShards and WriterQueueSize size the single-writer dispatcher.
	WriterShards    int `koanf:"writer_shards"`
	WriterQueueSize int `koanf:"writer_queue_size"`

	EnrichParallelism int `koanf:"enrich_parallelism"`

	// DefaultSimulationRate is a fraction, 0.07 = 7%.
	DefaultSimulationRate float64 `koanf:"default_simulation_rate"`
	Currency              string  `koanf:"currency"`

	JWTSecret string `koanf:"jwt_secret"`

	// RateLimitPerSecond of zero disables HTTP rate limiting.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second"`
	RateLimitBurst     int     `koanf:"rate_limit_burst"`

	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		StoreDriver:              repository.DriverMemory,
		StoreMaxConns:            10,
		RiskModel:                scoring.ModelZPrime,
		RiskFactorLow:            1.0,
		RiskFactorMedium:         0.75,
		RiskFactorHigh:           0.5,
		ViewWindowMinutes:        5,
		ComparisonWindowMinutes:  5,
		RecentWindowDays:         30,
		AnalyticsCacheTTLSeconds: 30,
		DedupeIndexSize:          50_000,
		WriterShards:             runtime.NumCPU(),
		WriterQueueSize:          1024,
		EnrichParallelism:        runtime.NumCPU(),
		DefaultSimulationRate:    simulation.DefaultRate,
		Currency:                 simulation.DefaultCurrency,
		JWTSecret:                DevJWTSecret,
		RateLimitPerSecond:       100,
		RateLimitBurst:           200,
		ShutdownTimeoutSeconds:   10,
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.StoreDriver {
	case repository.DriverMemory:
	case repository.DriverSQLite, repository.DriverPostgres:
		if c.StoreDSN == "" {
			return invalid("store_dsn is required for %s", c.StoreDriver)
		}
	default:
		return invalid("unknown store_driver %q", c.StoreDriver)
	}
	if c.StoreMaxConns < 1 {
		return invalid("store_max_conns must be positive")
	}

	if _, err := scoring.ModelByName(c.RiskModel); err != nil {
		return invalid("risk_model %q: %v", c.RiskModel, err)
	}
	for name, f := range map[string]float64{
		"risk_factor_low":    c.RiskFactorLow,
		"risk_factor_medium": c.RiskFactorMedium,
		"risk_factor_high":   c.RiskFactorHigh,
	} {
		if f <= 0 || f > 1 {
			return invalid("%s must be in (0, 1], got %v", name, f)
		}
	}

	for name, v := range map[string]int{
		"view_window_minutes":       c.ViewWindowMinutes,
		"comparison_window_minutes": c.ComparisonWindowMinutes,
		"recent_window_days":        c.RecentWindowDays,
		"writer_shards":             c.WriterShards,
		"writer_queue_size":         c.WriterQueueSize,
		"enrich_parallelism":        c.EnrichParallelism,
		"dedupe_index_size":         c.DedupeIndexSize,
	} {
		if v < 1 {
			return invalid("%s must be positive, got %d", name, v)
		}
	}
	if c.AnalyticsCacheTTLSeconds < 0 {
		return invalid("analytics_cache_ttl_seconds must not be negative")
	}
	if c.ShutdownTimeoutSeconds < 1 {
		return invalid("shutdown_timeout_seconds must be positive")
	}

	if c.DefaultSimulationRate < -1 {
		return invalid("default_simulation_rate must be at least -1")
	}
	if !simulation.ValidCurrency(c.Currency) {
		return invalid("unknown currency %q", c.Currency)
	}
	if c.JWTSecret == "" {
		return invalid("jwt_secret must not be empty")
	}
	if c.RateLimitPerSecond < 0 || (c.RateLimitPerSecond > 0 && c.RateLimitBurst < 1) {
		return invalid("rate limit needs a non-negative rate and a positive burst")
	}
	return nil
}

// ViewWindow returns the view dedup window.
func (c *Config) ViewWindow() time.Duration {
	return time.Duration(c.ViewWindowMinutes) * time.Minute
}

// ComparisonWindow returns the default comparison dedup window.
func (c *Config) ComparisonWindow() time.Duration {
	return time.Duration(c.ComparisonWindowMinutes) * time.Minute
}

// RecentWindow returns the analytics "recent" window.
func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowDays) * 24 * time.Hour
}

// AnalyticsCacheTTL returns the analytics cache lifetime; zero disables it.
func (c *Config) AnalyticsCacheTTL() time.Duration {
	return time.Duration(c.AnalyticsCacheTTLSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
