package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "review.db", cfg.Store.SQLitePath)
	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Review.BlockOnErrors)
	assert.Equal(t, "millions", cfg.Review.PDFUnit)
	assert.Equal(t, 5, cfg.Review.MaxRetries)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  sqlite_path: /tmp/sessions.db
log:
  level: debug
  format: console
review:
  block_on_errors: true
  pdf_unit: ""
batch:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/sessions.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Review.BlockOnErrors)
	assert.Equal(t, "", cfg.Review.PDFUnit)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, 5, cfg.Review.MaxRetries)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REVIEW_STORE_DRIVER", "postgres")
	t.Setenv("REVIEW_REVIEW_BLOCK_ON_ERRORS", "true")
	t.Setenv("REVIEW_BATCH_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Review.BlockOnErrors)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REVIEW_STORE_DRIVER", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Store:  StoreConfig{Driver: " SQLite "},
		Review: ReviewConfig{MaxRetries: 1},
		Batch:  BatchConfig{Concurrency: 1},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	cfg.Review.MaxRetries = 0
	assert.Error(t, cfg.Validate())
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
