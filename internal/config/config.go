// Package config loads the migration settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/migrate"
	"github.com/tordrt/richtextmigrate/internal/xmltext"
)

// EnvDatabaseURL overrides Database.URL when set
const EnvDatabaseURL = "RICHTEXTMIGRATE_DATABASE_URL"

// Config holds all migration settings
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Markers   MarkersConfig   `yaml:"markers"`
	BatchSize int             `yaml:"batch_size"`
	Retry     RetryConfig     `yaml:"retry"`
	Expansion ExpansionConfig `yaml:"expansion"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig selects the database to migrate
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// MarkersConfig holds the stored type markers
type MarkersConfig struct {
	Legacy string `yaml:"legacy"`
	Target string `yaml:"target"`
}

// RetryConfig controls how failed writes are retried
type RetryConfig struct {
	// Attempts counts the first try
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
}

// ExpansionConfig controls paragraph expansion
type ExpansionConfig struct {
	// IgnoreTemporary keeps the content of paragraphs marked temporary
	IgnoreTemporary bool `yaml:"ignore_temporary"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Markers: MarkersConfig{
			Legacy: field.LegacyMarker,
			Target: field.TargetMarker,
		},
		BatchSize: migrate.DefaultBatchSize,
		Retry: RetryConfig{
			Attempts: 2,
			Delay:    "100ms",
		},
		Expansion: ExpansionConfig{
			IgnoreTemporary: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		c.Database.URL = url
	}
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var err error
	if c.Markers.Legacy == "" || c.Markers.Target == "" {
		err = multierr.Append(err, fmt.Errorf("markers must not be empty"))
	} else if c.Markers.Legacy == c.Markers.Target {
		err = multierr.Append(err, fmt.Errorf("legacy and target markers are both %q", c.Markers.Legacy))
	}
	if c.BatchSize < 1 {
		err = multierr.Append(err, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Retry.Attempts < 1 {
		err = multierr.Append(err, fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if _, derr := c.RetryDelay(); derr != nil {
		err = multierr.Append(err, derr)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return err
}

// RetryDelay parses the configured retry delay
func (c *Config) RetryDelay() (time.Duration, error) {
	if c.Retry.Delay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Retry.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid retry.delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retry.delay must not be negative, got %s", d)
	}
	return d, nil
}

// MigrateOptions converts the configuration into runner options
func (c *Config) MigrateOptions() migrate.Options {
	opts := migrate.DefaultOptions()
	opts.Markers = field.Markers{Legacy: c.Markers.Legacy, Target: c.Markers.Target}
	opts.BatchSize = c.BatchSize
	opts.RetryAttempts = c.Retry.Attempts
	if d, err := c.RetryDelay(); err == nil {
		opts.RetryDelay = d
	}
	opts.Mode = xmltext.RespectTemporary
	if c.Expansion.IgnoreTemporary {
		opts.Mode = xmltext.IgnoreTemporary
	}
	return opts
}
