// Package config holds the runtime configuration of stationstats.
//
// Every setting has a default, can be overridden from a YAML file and then
// from command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"stationstats/internal/fastbrc"
)

const (
	// DefaultWorkers of 0 means one worker per CPU.
	DefaultWorkers = 0

	// DefaultQueueFactor times the number of workers is the chunk queue capacity.
	// It bounds memory to roughly factor * workers * chunk_size.
	DefaultQueueFactor = fastbrc.DefaultQueueFactor

	// DefaultChunkSize is the size of one chunk buffer. A record must fit in it.
	DefaultChunkSize = fastbrc.DefaultChunkSize

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// DefaultCompression is the Parquet codec used by the export.
	DefaultCompression = "zstd"
)

// Config is the complete configuration.
type Config struct {
	// Workers is the number of parsing goroutines, 0 for one per CPU.
	Workers int `yaml:"workers"`

	QueueFactor int `yaml:"queue_factor"`

	// ChunkSize in bytes.
	ChunkSize int `yaml:"chunk_size"`

	// Mmap reads the input through a memory mapping instead of read(2).
	Mmap bool `yaml:"mmap"`

	Log LogConfig `yaml:"log"`

	Export ExportConfig `yaml:"export"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// ExportConfig configures the optional Parquet export of the results.
type ExportConfig struct {
	// Parquet is the output path, empty disables the export.
	Parquet string `yaml:"parquet"`

	// Compression is one of zstd, snappy, gzip, lz4, none.
	Compression string `yaml:"compression"`

	// Percentiles adds p50/p90/p99 columns computed from DDSketches.
	Percentiles bool `yaml:"percentiles"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Workers:     DefaultWorkers,
		QueueFactor: DefaultQueueFactor,
		ChunkSize:   DefaultChunkSize,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Export: ExportConfig{
			Compression: DefaultCompression,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if c.QueueFactor <= 0 {
		errs = append(errs, errors.New("queue_factor must be positive"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk_size must be positive"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}

	switch c.Export.Compression {
	case "zstd", "snappy", "gzip", "lz4", "none", "":
	default:
		errs = append(errs, fmt.Errorf("export: unknown compression %q", c.Export.Compression))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, err
	}
	return level, nil
}

// ResolvedWorkers returns the worker count to use, never less than 1.
func (c *Config) ResolvedWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU(), 1)
}

// PipelineOptions translates the configuration into fastbrc options.
func (c *Config) PipelineOptions(logger *slog.Logger) fastbrc.Options {
	workers := c.ResolvedWorkers()
	return fastbrc.Options{
		Workers:       workers,
		QueueCapacity: c.QueueFactor * workers,
		ChunkSize:     c.ChunkSize,
		Quantiles:     c.Export.Parquet != "" && c.Export.Percentiles,
		Logger:        logger,
	}
}
