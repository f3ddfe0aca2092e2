package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
log:
  level: debug
  format: json
pipeline:
  concurrency: 2
  pool_dump: pool.json
evaluation:
  norm_categories: [DATE, TIME]
dataset:
  max_len: 256
database:
  enabled: true
  host: db.local
  user: deid
  db_name: deid
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: annotations
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.Equal(t, "pool.json", cfg.Pipeline.PoolDump)
	assert.Equal(t, []string{"DATE", "TIME"}, cfg.Evaluation.NormCategories)
	assert.Equal(t, 256, cfg.Dataset.MaxLen)
	assert.Equal(t, DefaultOverlap, cfg.Dataset.Overlap)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log: ["))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "pipeline:\n  concurrency: -1\n"))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DEIDRECON_PIPELINE_CONCURRENCY", "9")
	t.Setenv("DEIDRECON_DATABASE_HOST", "db-host")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Pipeline.Concurrency)
	assert.Equal(t, "db-host", cfg.Database.Host)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DEIDRECON_LOG_LEVEL", "warn")
	t.Setenv("DEIDRECON_DATASET_MAX_LEN", "64")
	t.Setenv("DEIDRECON_DATASET_OVERLAP", "10")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Dataset.MaxLen)
	assert.Equal(t, 10, cfg.Dataset.Overlap)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLen, cfg.Dataset.MaxLen)
}

func TestConfigKeys_IncludesNestedLeaves(t *testing.T) {
	keys := configKeys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, keys, "log.level")
	assert.Contains(t, keys, "dataset.augment.phone")
	assert.Contains(t, keys, "database.conn_max_lifetime")
	assert.NotContains(t, keys, "dataset.augment")
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_InvokesOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := validConfigYAML + "metrics:\n  namespace: watched\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "watched", cfg.Metrics.Namespace)
	case <-time.After(5 * time.Second):
		t.Skip("fsnotify event not delivered on this filesystem")
	}
}

//Personal.AI order the ending
