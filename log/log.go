// Package log configures slog handlers for the command line tools.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Format represents the log output format.
type Format string

const (
	// FormatText outputs human readable key=value logs.
	FormatText Format = "text"
	// FormatJSON outputs logs as JSON objects.
	FormatJSON Format = "json"
)

var (
	// ErrUnknownLogLevel indicates an unrecognized log level string.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

// Config holds CLI flag values for log configuration. Register the flags
// with RegisterFlags, then build a logger with NewLogger.
type Config struct {
	Level  string
	Format string
}

// NewConfig returns a Config with the default level and format.
func NewConfig() *Config {
	return &Config{Level: "info", Format: string(FormatText)}
}

// RegisterFlags adds logging flags to the given flag set.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, "log-level", c.Level,
		"log level, one of: debug, info, warn, error")
	flags.StringVar(&c.Format, "log-format", c.Format,
		"log format, one of: text, json")
}

// NewLogger creates a logger writing to w using the configured level and
// format.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := GetLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := GetFormat(c.Format)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}

// GetLevel parses a log level string into the corresponding slog level.
func GetLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
}

// GetFormat parses a log format string.
func GetFormat(format string) (Format, error) {
	switch strings.ToLower(format) {
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLogFormat, format)
}
