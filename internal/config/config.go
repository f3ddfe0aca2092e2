// Package config defines the configuration structures of deid-reconcile.
// No I/O or parsing logic lives here, only plain data types and validation.
//
// Category lists, tie-break thresholds and validation rules are fixed domain
// policy and deliberately have no configuration keys.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig holds annotate-run tunables.
type PipelineConfig struct {
	// Concurrency bounds the number of windows extracted in parallel.
	Concurrency int `mapstructure:"concurrency"`
	// Progress enables the stderr progress bar.
	Progress bool `mapstructure:"progress"`
	// PoolDump is the optional path of the JSON candidate-pool audit file.
	PoolDump string `mapstructure:"pool_dump"`
	// WarnNonNFC logs windows whose text is not in Unicode NFC form.
	WarnNonNFC bool `mapstructure:"warn_non_nfc"`
}

// EvaluationConfig holds scoring parameters.
type EvaluationConfig struct {
	// NormCategories restricts normalization-aware scoring.
	NormCategories []string `mapstructure:"norm_categories"`
	// ReportDir receives the xlsx workbooks when no explicit path is given.
	ReportDir string `mapstructure:"report_dir"`
}

// AugmentConfig holds the synthetic sample counts per generator.  A zero
// count disables the generator.
type AugmentConfig struct {
	Phone        int  `mapstructure:"phone"`
	POBox        int  `mapstructure:"po_box"`
	Duration     int  `mapstructure:"duration"`
	Set          int  `mapstructure:"set"`
	Organization int  `mapstructure:"organization"`
	Country      int  `mapstructure:"country"`
	Noise        bool `mapstructure:"noise"`
}

// DatasetConfig holds segmentation and augmentation parameters.
type DatasetConfig struct {
	MaxLen       int           `mapstructure:"max_len"`
	Overlap      int           `mapstructure:"overlap"`
	SliceOverlap int           `mapstructure:"slice_overlap"`
	Seed         int64         `mapstructure:"seed"`
	TestRatio    float64       `mapstructure:"test_ratio"`
	Augment      AugmentConfig `mapstructure:"augment"`
}

// DatabaseConfig holds the PostgreSQL annotation sink parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the libpq connection string for the database section.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// KafkaConfig holds the finalized-annotation publisher parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks string        `mapstructure:"required_acks"` // "none" | "one" | "all"; empty means "one"
	Compression  string        `mapstructure:"compression"` // "none" | "gzip" | "snappy" | "lz4" | "zstd"
}

// StorageConfig holds MinIO / S3-compatible artifact storage parameters.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// MetricsConfig holds prometheus parameters.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	// TextfilePath, when set, receives the registry in node-exporter textfile
	// format at the end of each run.
	TextfilePath string `mapstructure:"textfile_path"`
	// ListenAddr, when set, serves /metrics for the life of the process.
	ListenAddr string `mapstructure:"listen_addr"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Log        logging.LogConfig `mapstructure:"log"`
	Pipeline   PipelineConfig    `mapstructure:"pipeline"`
	Evaluation EvaluationConfig  `mapstructure:"evaluation"`
	Dataset    DatasetConfig     `mapstructure:"dataset"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and returns
// the first problem found.  Sink sections are only checked when enabled.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}

	for _, name := range c.Evaluation.NormCategories {
		if _, ok := phi.ParseCategory(name); !ok {
			return fmt.Errorf("evaluation.norm_categories: unknown category %q", name)
		}
	}

	if c.Dataset.MaxLen < 1 {
		return fmt.Errorf("dataset.max_len must be >= 1, got %d", c.Dataset.MaxLen)
	}
	if c.Dataset.Overlap < 0 || c.Dataset.Overlap >= c.Dataset.MaxLen {
		return fmt.Errorf("dataset.overlap %d must be in [0, max_len)", c.Dataset.Overlap)
	}
	if c.Dataset.SliceOverlap < 0 || c.Dataset.SliceOverlap >= c.Dataset.MaxLen {
		return fmt.Errorf("dataset.slice_overlap %d must be in [0, max_len)", c.Dataset.SliceOverlap)
	}
	if c.Dataset.TestRatio < 0 || c.Dataset.TestRatio >= 1 {
		return fmt.Errorf("dataset.test_ratio %v must be in [0, 1)", c.Dataset.TestRatio)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
		switch strings.ToLower(c.Kafka.RequiredAcks) {
		case "", "none", "one", "all":
		default:
			return fmt.Errorf("kafka.required_acks %q is invalid; expected none|one|all", c.Kafka.RequiredAcks)
		}
		switch c.Kafka.Compression {
		case "", "none", "gzip", "snappy", "lz4", "zstd":
		default:
			return fmt.Errorf("kafka.compression %q is invalid", c.Kafka.Compression)
		}
	}

	if c.Storage.Enabled {
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.endpoint is required")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required")
		}
	}

	return nil
}

//Personal.AI order the ending
