package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"RIKKAVIEW_LOG_FILE", "RIKKAVIEW_LOG_LEVEL", "RIKKAVIEW_TIMEZONE", "RIKKAVIEW_DATE_FIELD",
		"RIKKAVIEW_EMBED_IMAGES", "RIKKAVIEW_CODE_STYLE", "RIKKAVIEW_TITLE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DateFieldUpdate, cfg.DateField)
	assert.True(t, cfg.EmbedImages)
	assert.Equal(t, "github", cfg.CodeStyle)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RIKKAVIEW_LOG_LEVEL", "debug")
	t.Setenv("RIKKAVIEW_TIMEZONE", "UTC")
	t.Setenv("RIKKAVIEW_DATE_FIELD", "CREATE")
	t.Setenv("RIKKAVIEW_EMBED_IMAGES", "off")
	t.Setenv("RIKKAVIEW_CODE_STYLE", "monokai")
	t.Setenv("RIKKAVIEW_TITLE", "My chats")

	cfg := Load()
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, DateFieldCreate, cfg.DateField)
	assert.False(t, cfg.EmbedImages)
	assert.Equal(t, "monokai", cfg.CodeStyle)
	assert.Equal(t, "My chats", cfg.Title)
}

func TestLoadFile(t *testing.T) {
	for _, k := range []string{"RIKKAVIEW_TITLE", "RIKKAVIEW_EMBED_IMAGES", "RIKKAVIEW_DATE_FIELD", "RIKKAVIEW_TIMEZONE", "RIKKAVIEW_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("RIKKAVIEW_CODE_STYLE", "dracula")

	path := filepath.Join(t.TempDir(), "rikkaview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
title: From file
code_style: github
embed_images: false
date_field: create
timezone: Asia/Shanghai
log_level: warn
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "From file", cfg.Title)
	assert.Equal(t, "dracula", cfg.CodeStyle, "environment overrides the file")
	assert.False(t, cfg.EmbedImages)
	assert.Equal(t, DateFieldCreate, cfg.DateField)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestLoadFile_Errors(t *testing.T) {
	t.Setenv("RIKKAVIEW_DATE_FIELD", "")
	t.Setenv("RIKKAVIEW_TIMEZONE", "")
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("title: [unclosed"), 0644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("date_field: modified"), 0644))
	_, err = LoadFile(invalid)
	assert.ErrorContains(t, err, "invalid date field")

	zone := filepath.Join(dir, "zone.yaml")
	require.NoError(t, os.WriteFile(zone, []byte("timezone: Mars/Olympus"), 0644))
	_, err = LoadFile(zone)
	assert.ErrorContains(t, err, "invalid timezone")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn, slog.LevelDebug)

	logger.Debug("detail", "node", 3)
	logger.Warn("degraded message row", "conversation", "c1")

	assert.NotContains(t, stderr.String(), "detail")
	assert.Contains(t, stderr.String(), "degraded message row")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"detail"`)
	assert.Contains(t, lines[1], `"conversation":"c1"`)
}

func TestSetupLogger_FallsBackToStderr(t *testing.T) {
	logger, cleanup := SetupLogger(filepath.Join(t.TempDir(), "no", "such", "dir", "x.log"), slog.LevelError, slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
