package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := GetLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := GetLevel("shout")
	assert.ErrorIs(t, err, ErrUnknownLogLevel)
}

func TestGetFormat(t *testing.T) {
	got, err := GetFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)

	got, err = GetFormat("TEXT")
	require.NoError(t, err)
	assert.Equal(t, FormatText, got)

	_, err = GetFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownLogFormat)
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "warn", Format: "text"}
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "info", Format: "json"}
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hello", "k", "v")
	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	assert.Contains(t, line, `"msg":"hello"`)
}

func TestNewLoggerRejectsBadConfig(t *testing.T) {
	cfg := &Config{Level: "shout", Format: "text"}
	_, err := cfg.NewLogger(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownLogLevel)
}
