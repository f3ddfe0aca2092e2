package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultConcurrency = 4

	DefaultMaxLen       = 128
	DefaultOverlap      = 50
	DefaultSliceOverlap = 30
	DefaultSeed         = 1025
	DefaultTestRatio    = 0.1

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "deid"
	DefaultDBMaxConns = 8

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "deid.annotations"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "deid-artifacts"

	DefaultMetricsNamespace = "deidrecon"
)

// DefaultNormCategories are the categories scored by evaluate-norm.
var DefaultNormCategories = []string{"TIME", "DURATION", "SET", "DATE"}

// ApplyDefaults fills every zero-value field in cfg.  Fields already set are
// left unchanged so explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = DefaultConcurrency
	}

	// ── Evaluation ────────────────────────────────────────────────────────────
	if len(cfg.Evaluation.NormCategories) == 0 {
		cfg.Evaluation.NormCategories = append([]string(nil), DefaultNormCategories...)
	}
	if cfg.Evaluation.ReportDir == "" {
		cfg.Evaluation.ReportDir = "."
	}

	// ── Dataset ───────────────────────────────────────────────────────────────
	if cfg.Dataset.MaxLen == 0 {
		cfg.Dataset.MaxLen = DefaultMaxLen
	}
	if cfg.Dataset.Overlap == 0 {
		cfg.Dataset.Overlap = DefaultOverlap
	}
	if cfg.Dataset.SliceOverlap == 0 {
		cfg.Dataset.SliceOverlap = DefaultSliceOverlap
	}
	if cfg.Dataset.Seed == 0 {
		cfg.Dataset.Seed = DefaultSeed
	}
	if cfg.Dataset.TestRatio == 0 {
		cfg.Dataset.TestRatio = DefaultTestRatio
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = "all"
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = DefaultMinIOBucket
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
