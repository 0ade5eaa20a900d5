// Package config loads runtime settings from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Date fields a date range can be applied to.
const (
	DateFieldUpdate = "update"
	DateFieldCreate = "create"
)

// Config holds all configuration values.
type Config struct {
	// Logging
	LogFile  string
	LogLevel slog.Level

	// Filtering
	Timezone  string // IANA name, "" or "Local" for the host zone
	DateField string // DateFieldUpdate or DateFieldCreate

	// HTML export
	EmbedImages bool
	CodeStyle   string // chroma style, "" disables highlighting
	Title       string
}

// fileConfig is the YAML shape. Pointers distinguish unset keys.
type fileConfig struct {
	LogFile     *string `yaml:"log_file"`
	LogLevel    *string `yaml:"log_level"`
	Timezone    *string `yaml:"timezone"`
	DateField   *string `yaml:"date_field"`
	EmbedImages *bool   `yaml:"embed_images"`
	CodeStyle   *string `yaml:"code_style"`
	Title       *string `yaml:"title"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFile:     filepath.Join(os.TempDir(), "rikkaview.log"),
		LogLevel:    slog.LevelInfo,
		DateField:   DateFieldUpdate,
		EmbedImages: true,
		CodeStyle:   "github",
		Title:       "RikkaHub conversations",
	}
}

// Load reads configuration from environment variables.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads the YAML file at path and then applies environment
// variables on top, so the environment always wins.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyFile(fc)
	cfg.applyEnv()

	return cfg, cfg.Validate()
}

func (c *Config) applyFile(fc fileConfig) {
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	if fc.LogLevel != nil {
		c.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	if fc.Timezone != nil {
		c.Timezone = *fc.Timezone
	}
	if fc.DateField != nil {
		c.DateField = strings.ToLower(*fc.DateField)
	}
	if fc.EmbedImages != nil {
		c.EmbedImages = *fc.EmbedImages
	}
	if fc.CodeStyle != nil {
		c.CodeStyle = *fc.CodeStyle
	}
	if fc.Title != nil {
		c.Title = *fc.Title
	}
}

func (c *Config) applyEnv() {
	c.LogFile = getEnv("RIKKAVIEW_LOG_FILE", c.LogFile)
	if lvl := os.Getenv("RIKKAVIEW_LOG_LEVEL"); lvl != "" {
		c.LogLevel = parseLogLevel(lvl)
	}
	c.Timezone = getEnv("RIKKAVIEW_TIMEZONE", c.Timezone)
	c.DateField = strings.ToLower(getEnv("RIKKAVIEW_DATE_FIELD", c.DateField))
	if v := os.Getenv("RIKKAVIEW_EMBED_IMAGES"); v != "" {
		c.EmbedImages = parseBool(v, c.EmbedImages)
	}
	c.CodeStyle = getEnv("RIKKAVIEW_CODE_STYLE", c.CodeStyle)
	c.Title = getEnv("RIKKAVIEW_TITLE", c.Title)
}

// Validate checks values that cannot be repaired silently.
func (c Config) Validate() error {
	switch c.DateField {
	case DateFieldUpdate, DateFieldCreate:
	default:
		return fmt.Errorf("invalid date field %q: want %q or %q", c.DateField, DateFieldUpdate, DateFieldCreate)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
