// Package config defines the ingestion configuration: batching
// thresholds, writer output settings, and logging. Values load from a
// YAML file with COLDTEL_* environment variable overrides on top.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ingestion configuration.
type Config struct {
	// Batching configures the accumulator thresholds.
	Batching BatchingConfig `yaml:"batching"`

	// Writer configures the reference parquet writer.
	Writer WriterConfig `yaml:"writer"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// BatchingConfig configures the batch accumulator. The limits are soft:
// they are evaluated after a full merge, so a batch may exceed them by
// one append.
type BatchingConfig struct {
	// Enabled retains pending batches across requests. When false every
	// payload flushes immediately and the limits below are inert; this
	// is the mode for stateless hosts.
	Enabled bool `yaml:"enabled"`

	// MaxRows flushes a pending batch once it reaches this many rows.
	MaxRows int64 `yaml:"max_rows"`

	// MaxBytes flushes a pending batch once its estimated size reaches
	// this many bytes.
	MaxBytes int64 `yaml:"max_bytes"`

	// MaxAge flushes a pending batch once this much time passed since
	// its first append.
	MaxAge time.Duration `yaml:"max_age"`

	// SweepInterval is how often idle batches are checked against MaxAge.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// WriterConfig configures the reference parquet writer.
type WriterConfig struct {
	// Dir is the root directory partition paths are created under.
	Dir string `yaml:"dir"`

	// Compression algorithm: zstd, snappy, lz4, gzip, none.
	Compression string `yaml:"compression"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output from text to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Batching: BatchingConfig{
			Enabled:       true,
			MaxRows:       100000,
			MaxBytes:      128 * 1024 * 1024,
			MaxAge:        30 * time.Second,
			SweepInterval: 5 * time.Second,
		},
		Writer: WriterConfig{
			Dir:         "/var/lib/coldtel/data",
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, applies environment
// overrides, and validates the result. A missing file is not an error:
// defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from COLDTEL_* environment variables.
func (c *Config) applyEnv() error {
	var errs []error

	if v, ok := os.LookupEnv("COLDTEL_BATCHING_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_BATCHING_ENABLED: %w", err))
		} else {
			c.Batching.Enabled = b
		}
	}
	if v, ok := os.LookupEnv("COLDTEL_MAX_ROWS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_MAX_ROWS: %w", err))
		} else {
			c.Batching.MaxRows = n
		}
	}
	if v, ok := os.LookupEnv("COLDTEL_MAX_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_MAX_BYTES: %w", err))
		} else {
			c.Batching.MaxBytes = n
		}
	}
	if v, ok := os.LookupEnv("COLDTEL_MAX_AGE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_MAX_AGE: %w", err))
		} else {
			c.Batching.MaxAge = d
		}
	}
	if v, ok := os.LookupEnv("COLDTEL_SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_SWEEP_INTERVAL: %w", err))
		} else {
			c.Batching.SweepInterval = d
		}
	}
	if v, ok := os.LookupEnv("COLDTEL_WRITER_DIR"); ok {
		c.Writer.Dir = v
	}
	if v, ok := os.LookupEnv("COLDTEL_COMPRESSION"); ok {
		c.Writer.Compression = v
	}
	if v, ok := os.LookupEnv("COLDTEL_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("COLDTEL_LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("COLDTEL_LOG_JSON: %w", err))
		} else {
			c.Logging.JSON = b
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Batching.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("batching: %w", err))
	}
	if err := c.Writer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("writer: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the batching configuration.
func (c *BatchingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.MaxRows <= 0 && c.MaxBytes <= 0 && c.MaxAge <= 0 {
		errs = append(errs, errors.New("at least one of max_rows, max_bytes, max_age must be positive when batching is enabled"))
	}
	if c.MaxRows < 0 {
		errs = append(errs, errors.New("max_rows must not be negative"))
	}
	if c.MaxBytes < 0 {
		errs = append(errs, errors.New("max_bytes must not be negative"))
	}
	if c.MaxAge < 0 {
		errs = append(errs, errors.New("max_age must not be negative"))
	}
	if c.MaxAge > 0 && c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep_interval must be positive when max_age is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the writer configuration.
func (c *WriterConfig) Validate() error {
	var errs []error

	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	switch c.Compression {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		errs = append(errs, fmt.Errorf("unknown compression %q", c.Compression))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
}

// SlogLevel returns the slog level for the configured level string.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
