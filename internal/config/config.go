// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for selcs. It supports a four-layer
// override chain: defaults -> config file -> environment -> CLI flags.
package config

import "fmt"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Auth      AuthConfig      `toml:"auth"`
	Cache     CacheConfig     `toml:"cache"`
	Transfers TransfersConfig `toml:"transfers"`
	Logging   LoggingConfig   `toml:"logging"`
}

// AuthConfig holds the account credentials and the authentication endpoint.
type AuthConfig struct {
	User string `toml:"user"`
	Key  string `toml:"key"`
	// AuthURL overrides the default authentication endpoint. Rarely needed
	// outside tests and private deployments.
	AuthURL string `toml:"auth_url"`
}

// CacheConfig controls the persistent endpoint cache.
type CacheConfig struct {
	// Path to the SQLite cache database. Empty means the platform default;
	// "off" disables endpoint caching entirely.
	Path string `toml:"path"`
}

// TransfersConfig controls parallel workers and large-object segmenting.
type TransfersConfig struct {
	ParallelUploads int    `toml:"parallel_uploads"`
	SegmentSize     string `toml:"segment_size"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// CacheDisabled is the sentinel cache path value that turns off the
// endpoint cache.
const CacheDisabled = "off"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate checks invariants that cannot be expressed in the TOML schema.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q (want debug, info, warn, or error)", cfg.Logging.Level)
	}

	if cfg.Transfers.ParallelUploads < 0 {
		return fmt.Errorf("transfers.parallel_uploads must not be negative")
	}

	if _, err := ParseSize(cfg.Transfers.SegmentSize); err != nil {
		return fmt.Errorf("invalid transfers.segment_size: %w", err)
	}

	return nil
}
