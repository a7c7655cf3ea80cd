package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ZEN_LOG_LEVEL", "")
	t.Setenv("ZEN_MAX_FILE_BYTES", "")
	t.Setenv("ZEN_CACHE_DIR", "")
	t.Setenv("ZEN_NO_CACHE", "")

	cfg := Load()
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, int64(64*1024*1024), cfg.MaxFileBytes)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.False(t, cfg.NoCache)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ZEN_LOG_LEVEL", "DEBUG")
	t.Setenv("ZEN_MAX_FILE_BYTES", "1024")
	t.Setenv("ZEN_CACHE_DIR", "/tmp/zen-test.db")
	t.Setenv("ZEN_NO_CACHE", "1")

	cfg := Load()
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, int64(1024), cfg.MaxFileBytes)
	assert.Equal(t, "/tmp/zen-test.db", cfg.CacheDir)
	assert.True(t, cfg.NoCache)
}

func TestLoad_InvalidMaxBytesFallsBackToDefault(t *testing.T) {
	t.Setenv("ZEN_MAX_FILE_BYTES", "not-a-number")
	cfg := Load()
	assert.Equal(t, int64(64*1024*1024), cfg.MaxFileBytes)
}

func TestLogLevelNumber(t *testing.T) {
	assert.Equal(t, 0, LogLevelNumber("DEBUG"))
	assert.Equal(t, 1, LogLevelNumber("INFO"))
	assert.Equal(t, 2, LogLevelNumber("WARN"))
	assert.Equal(t, 3, LogLevelNumber("ERROR"))
	assert.Equal(t, 1, LogLevelNumber("unknown"))
}
