package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, "input.bib", cfg.InputPath)
	assert.Equal(t, "cleaned.bib", cfg.OutputPath)
	assert.Equal(t, 0.80, cfg.MatchThreshold)
	assert.Equal(t, 4, cfg.Clean.Concurrency)
	assert.Equal(t, "https://api.crossref.org", cfg.CrossRef.BaseURL)
	assert.Equal(t, 5, cfg.CrossRef.Rows)
	assert.Equal(t, 3, cfg.CrossRef.Retry.MaxAttempts)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, 720, cfg.Cache.TTLHours)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	cfg := loadFrom(t, `
input_path: refs.bib
match_threshold: 0.9
crossref:
  mailto: librarian@example.edu
  rows: 10
cache:
  driver: postgres
  database_url: postgres://localhost/cache
`)

	assert.Equal(t, "refs.bib", cfg.InputPath)
	assert.Equal(t, 0.9, cfg.MatchThreshold)
	assert.Equal(t, "librarian@example.edu", cfg.CrossRef.Mailto)
	assert.Equal(t, 10, cfg.CrossRef.Rows)
	assert.Equal(t, "postgres", cfg.Cache.Driver)
	assert.Equal(t, "postgres://localhost/cache", cfg.Cache.DatabaseURL)
	assert.Equal(t, "cleaned.bib", cfg.OutputPath, "unset keys keep defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLEANBIB_MATCH_THRESHOLD", "0.95")
	t.Setenv("CLEANBIB_CACHE_DRIVER", "off")

	cfg := loadFrom(t, "")

	assert.Equal(t, 0.95, cfg.MatchThreshold)
	assert.Equal(t, "off", cfg.Cache.Driver)
}

func TestLoad_RejectsThresholdOutOfRange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("match_threshold: 1.5\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
