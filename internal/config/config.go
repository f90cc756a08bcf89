// Package config loads tracesim settings from an optional YAML file and
// TRACESIM_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/tracesim/blobstore/minio"
	"github.com/hupe1980/tracesim/blobstore/s3"
	"github.com/hupe1980/tracesim/internal/storage"
	"github.com/hupe1980/tracesim/resource"
)

// Config holds all runtime settings.
type Config struct {
	// DataDir holds datasets.lst and the dataset files.
	DataDir string `yaml:"data_dir" env:"TRACESIM_DATA_DIR"`

	// ResultsDir holds traces and reports.
	ResultsDir string `yaml:"results_dir" env:"TRACESIM_RESULTS_DIR"`

	Workers   int     `yaml:"workers" env:"TRACESIM_WORKERS"`
	Threshold float32 `yaml:"threshold" env:"TRACESIM_THRESHOLD"`
	Precision int     `yaml:"precision" env:"TRACESIM_PRECISION"`

	// Ledger is the SQLite run history path. Empty disables the ledger.
	Ledger string `yaml:"ledger" env:"TRACESIM_LEDGER"`

	// MetricsFile receives Prometheus text exposition after a run.
	MetricsFile string `yaml:"metrics_file" env:"TRACESIM_METRICS_FILE"`

	Log       LogConfig      `yaml:"log"`
	Resources ResourceConfig `yaml:"resources"`
	Storage   StorageConfig  `yaml:"storage"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" env:"TRACESIM_LOG_LEVEL"`
	JSON  bool   `yaml:"json" env:"TRACESIM_LOG_JSON"`
}

// ResourceConfig bounds a run.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes" env:"TRACESIM_MEMORY_LIMIT_BYTES"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec" env:"TRACESIM_IO_LIMIT_BYTES_PER_SEC"`
}

// StorageConfig configures object-store backends.
type StorageConfig struct {
	S3    S3Config    `yaml:"s3"`
	MinIO MinIOConfig `yaml:"minio"`
}

// S3Config configures s3:// locations.
type S3Config struct {
	Region       string `yaml:"region" env:"TRACESIM_S3_REGION"`
	Endpoint     string `yaml:"endpoint" env:"TRACESIM_S3_ENDPOINT"`
	UsePathStyle bool   `yaml:"use_path_style" env:"TRACESIM_S3_USE_PATH_STYLE"`
	PartSizeMB   int64  `yaml:"part_size_mb" env:"TRACESIM_S3_PART_SIZE_MB"`
	Concurrency  int    `yaml:"concurrency" env:"TRACESIM_S3_CONCURRENCY"`
}

// MinIOConfig configures minio:// locations.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"TRACESIM_MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"TRACESIM_MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"TRACESIM_MINIO_SECRET_KEY"`
	Secure    bool   `yaml:"secure" env:"TRACESIM_MINIO_SECURE"`
	Region    string `yaml:"region" env:"TRACESIM_MINIO_REGION"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:    "data",
		ResultsDir: "results",
		Workers:    runtime.NumCPU(),
		Threshold:  1e-2,
		Precision:  6,
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			MinIO: MinIOConfig{
				Endpoint: "localhost:9000",
			},
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file format: %s", ext)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overrides target with the environment variables named in its
// env tags. Unset variables leave fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if math.IsNaN(float64(c.Threshold)) || math.IsInf(float64(c.Threshold), 0) || c.Threshold < 0 {
		return fmt.Errorf("threshold must be finite and non-negative, got %v", c.Threshold)
	}
	if c.Precision < -1 {
		return fmt.Errorf("precision must be -1 (shortest) or non-negative, got %d", c.Precision)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.ResultsDir == "" {
		return errors.New("results_dir is required")
	}
	if c.Resources.MemoryLimitBytes < 0 {
		return fmt.Errorf("resources.memory_limit_bytes must be non-negative, got %d", c.Resources.MemoryLimitBytes)
	}
	if c.Resources.IOLimitBytesPerSec < 0 {
		return fmt.Errorf("resources.io_limit_bytes_per_sec must be non-negative, got %d", c.Resources.IOLimitBytesPerSec)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	return nil
}

// CatalogPath returns the path of datasets.lst.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "datasets.lst")
}

// ResourceLimits converts the resource limits.
func (c *Config) ResourceLimits() resource.Config {
	return resource.Config{
		MemoryLimitBytes:   c.Resources.MemoryLimitBytes,
		IOLimitBytesPerSec: c.Resources.IOLimitBytesPerSec,
	}
}

// StorageBackends converts the object-store settings.
func (c *Config) StorageBackends() storage.Config {
	return storage.Config{
		S3: s3.Config{
			Region:       c.Storage.S3.Region,
			Endpoint:     c.Storage.S3.Endpoint,
			UsePathStyle: c.Storage.S3.UsePathStyle,
			Upload: s3.UploadConfig{
				PartSize:    c.Storage.S3.PartSizeMB << 20,
				Concurrency: c.Storage.S3.Concurrency,
			},
		},
		MinIO: minio.Config{
			Endpoint:  c.Storage.MinIO.Endpoint,
			AccessKey: c.Storage.MinIO.AccessKey,
			SecretKey: c.Storage.MinIO.SecretKey,
			Secure:    c.Storage.MinIO.Secure,
			Region:    c.Storage.MinIO.Region,
		},
	}
}
