// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	PresetFile   string
	CatalogFile  string
	ExportDir    string
	CaptureCmd   string
	CaptureDir   string
	LogLevel     slog.Level
	LogFile      string
	FetchTimeout time.Duration
	FetchMaxSize int64
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:         "8080",
		PresetFile:   "/data/presets.json",
		ExportDir:    "/data/exports",
		CaptureDir:   "/data/captures",
		LogLevel:     slog.LevelInfo,
		FetchTimeout: 30 * time.Second,
		FetchMaxSize: 50 << 20,
	}
}

// Load reads .env files (if any) and then the environment on top of Default.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("PRESET_FILE", &c.PresetFile)
	str("CATALOG_FILE", &c.CatalogFile)
	str("EXPORT_DIR", &c.ExportDir)
	str("CAPTURE_CMD", &c.CaptureCmd)
	str("CAPTURE_DIR", &c.CaptureDir)
	str("LOG_FILE", &c.LogFile)

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if v := getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v := getenv("FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("FETCH_MAX_BYTES: invalid value %q", v)
		}
		c.FetchMaxSize = n
	}
	return c, nil
}
