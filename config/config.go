// Package config loads matprop settings from YAML with environment overrides.
package config

import (
	"context"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/matprop/artifact"
	minioartifact "github.com/YuminosukeSato/matprop/artifact/minio"
	"github.com/YuminosukeSato/matprop/dataset"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// Environment variables that override file settings.
const (
	EnvLogLevel    = "MATPROP_LOG_LEVEL"
	EnvStorageRoot = "MATPROP_STORAGE_ROOT"
)

// Storage backends.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendMinio  = "minio"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel      string        `yaml:"log_level"`
	FormulaColumn string        `yaml:"formula_column"`
	Targets       []string      `yaml:"targets"`
	PreviewRows   int           `yaml:"preview_rows"`
	RandomSeed    int64         `yaml:"random_seed"`
	Storage       StorageConfig `yaml:"storage"`
}

// StorageConfig selects where artifacts and datasets live.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Root    string      `yaml:"root"`
	Minio   MinioConfig `yaml:"minio"`
}

// MinioConfig configures the S3-compatible backend. Credential fields may
// reference environment variables as ${NAME}.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

// DefaultTargets are the properties trained and served out of the box.
var DefaultTargets = []string{"d33 (pC/N)", "Tc (C)"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		FormulaColumn: dataset.DefaultFormulaColumn,
		Targets:       append([]string(nil), DefaultTargets...),
		PreviewRows:   dataset.DefaultPreviewRows,
		RandomSeed:    42,
		Storage: StorageConfig{
			Backend: BackendLocal,
			Root:    "saved_models",
			Minio:   MinioConfig{Bucket: "matprop"},
		},
	}
}

// Load reads path on top of Default. An empty path means defaults only.
// Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvStorageRoot); v != "" {
		c.Storage.Root = v
	}
	c.Storage.Root = os.ExpandEnv(c.Storage.Root)
	c.Storage.Minio.Endpoint = os.ExpandEnv(c.Storage.Minio.Endpoint)
	c.Storage.Minio.AccessKey = os.ExpandEnv(c.Storage.Minio.AccessKey)
	c.Storage.Minio.SecretKey = os.ExpandEnv(c.Storage.Minio.SecretKey)
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.FormulaColumn) == "" {
		return errors.NewValidationError("formula_column", "must not be empty", c.FormulaColumn)
	}
	if len(c.Targets) == 0 {
		return errors.NewValidationError("targets", "at least one target is required", c.Targets)
	}
	seen := make(map[string]string, len(c.Targets))
	for _, t := range c.Targets {
		if strings.TrimSpace(t) == "" {
			return errors.NewValidationError("targets", "target names must not be empty", c.Targets)
		}
		canon := artifact.Canonical(t)
		if prev, dup := seen[canon]; dup {
			return errors.NewValidationError("targets", "targets "+prev+" and "+t+" share an artifact name", c.Targets)
		}
		seen[canon] = t
	}
	if c.PreviewRows <= 0 {
		return errors.NewValidationError("preview_rows", "must be positive", c.PreviewRows)
	}
	return c.Storage.Validate()
}

// Validate checks the storage section.
func (s StorageConfig) Validate() error {
	switch s.Backend {
	case BackendMemory:
	case BackendLocal:
		if s.Root == "" {
			return errors.NewValidationError("storage.root", "required for the local backend", s.Root)
		}
	case BackendMinio:
		if s.Minio.Endpoint == "" {
			return errors.NewValidationError("storage.minio.endpoint", "required for the minio backend", s.Minio.Endpoint)
		}
		if s.Minio.Bucket == "" {
			return errors.NewValidationError("storage.minio.bucket", "required for the minio backend", s.Minio.Bucket)
		}
	default:
		return errors.NewValidationError("storage.backend", "must be local, memory or minio", s.Backend)
	}
	return nil
}

// Open connects to the configured backend.
func (s StorageConfig) Open(ctx context.Context) (artifact.Store, error) {
	switch s.Backend {
	case BackendMemory:
		return artifact.NewMemoryStore(), nil
	case BackendLocal:
		return artifact.NewLocalStore(s.Root), nil
	case BackendMinio:
		return minioartifact.Dial(ctx, minioartifact.Options{
			Endpoint:  s.Minio.Endpoint,
			AccessKey: s.Minio.AccessKey,
			SecretKey: s.Minio.SecretKey,
			Bucket:    s.Minio.Bucket,
			Prefix:    s.Minio.Prefix,
			Secure:    s.Minio.Secure,
		})
	}
	return nil, errors.NewValidationError("storage.backend", "must be local, memory or minio", s.Backend)
}

// ParseLevel maps a level name onto log.Level.
func ParseLevel(s string) (log.Level, error) {
	return log.ToLogLevel(s)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return l
}
