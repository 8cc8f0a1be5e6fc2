// Package config loads colonyledger settings from an optional YAML file and
// environment variables. Environment variables override file values.
package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// StorageDriver identifies a concrete repository implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageS3       StorageDriver = "s3"       // S3 / MinIO objects
	StorageFile     StorageDriver = "file"     // JSON files in a local directory
)

// Config holds all configuration for colonyledger.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects and configures the repository backend.
type StorageConfig struct {
	Driver      StorageDriver `yaml:"driver" env:"COLONYLEDGER_STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath  string        `yaml:"sqlite_path" env:"COLONYLEDGER_SQLITE_PATH" env-default:"colonyledger.db"`
	PostgresDSN string        `yaml:"-" env:"COLONYLEDGER_POSTGRES_DSN"` // Secret - not in YAML
	FileDir     string        `yaml:"file_dir" env:"COLONYLEDGER_FILE_DIR" env-default:"colonyledger-data"`
	S3          S3Config      `yaml:"s3"`
}

// S3Config configures the S3 backend. Credentials default to the AWS chain.
type S3Config struct {
	Bucket    string `yaml:"bucket" env:"COLONYLEDGER_S3_BUCKET"`
	Region    string `yaml:"region" env:"COLONYLEDGER_S3_REGION" env-default:"us-east-1"`
	Prefix    string `yaml:"prefix" env:"COLONYLEDGER_S3_PREFIX" env-default:"colonyledger"`
	Endpoint  string `yaml:"endpoint" env:"COLONYLEDGER_S3_ENDPOINT"`
	PathStyle bool   `yaml:"path_style" env:"COLONYLEDGER_S3_PATH_STYLE" env-default:"false"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"COLONYLEDGER_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"COLONYLEDGER_LOG_FORMAT" env-default:"console"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"COLONYLEDGER_METRICS_NAMESPACE" env-default:"colonyledger"`
	// Textfile, when set, receives the collected metrics in text exposition
	// format after every command (node_exporter textfile collector).
	Textfile string `yaml:"textfile" env:"COLONYLEDGER_METRICS_TEXTFILE"`
}

// Load reads configuration from path (when non-empty) and the environment.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements cleanenv cannot express.
func (c *Config) Validate() error {
	c.Storage.Driver = StorageDriver(strings.ToLower(string(c.Storage.Driver)))
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StorageFile:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("COLONYLEDGER_POSTGRES_DSN required for postgres driver")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("COLONYLEDGER_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %s", c.Storage.Driver)
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
