// Package config loads process configuration from environment variables,
// with .env support via github.com/joho/godotenv: one flat struct,
// os.Getenv reads, defaults for anything unset.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the interpreter's process-wide configuration.
type Config struct {
	LogLevel     string // DEBUG|INFO|WARN|ERROR
	MaxFileBytes int64  // read from ZEN_MAX_FILE_BYTES; the file loaders do not consult it and apply their own fixed 64 MiB cap
	CacheDir     string // sqlite file-reference cache location
	NoCache      bool
}

// LoadDotEnv loads a .env file from the current directory if present.
// Missing files are not an error; .env is optional.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() *Config {
	cfg := &Config{
		LogLevel:     os.Getenv("ZEN_LOG_LEVEL"),
		MaxFileBytes: 64 * 1024 * 1024,
		CacheDir:     os.Getenv("ZEN_CACHE_DIR"),
		NoCache:      os.Getenv("ZEN_NO_CACHE") != "",
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}

	if maxBytesStr := os.Getenv("ZEN_MAX_FILE_BYTES"); maxBytesStr != "" {
		if n, err := strconv.ParseInt(maxBytesStr, 10, 64); err == nil && n > 0 {
			cfg.MaxFileBytes = n
		}
	}

	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.CacheDir = filepath.Join(home, ".zen", "cache.db")
		} else {
			cfg.CacheDir = ".zen-cache.db"
		}
	}

	return cfg
}

// LogLevelNumber maps the DEBUG..ERROR names onto the 0..3 integer code
// logSetLevel expects.
func LogLevelNumber(name string) int {
	switch name {
	case "DEBUG":
		return 0
	case "WARN":
		return 2
	case "ERROR":
		return 3
	default:
		return 1 // INFO
	}
}
