// Package logging configures structured logging for the proxy.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mamba-hq/mamba/pkg/config"
)

// New builds a slog.Logger from the logging configuration. The returned
// logger redacts bearer tokens and API-key-shaped attribute values.
//
// Format "json" uses slog.JSONHandler; "text" uses slog.TextHandler.
// The writer defaults to stdout.
func New(cfg *config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text", "TEXT":
		handler = slog.NewTextHandler(w, opts)
	case "json", "JSON", "":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return slog.New(handler), nil
}

// Setup builds the logger and installs it as the process default.
func Setup(cfg *config.LoggingConfig) (*slog.Logger, error) {
	logger, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// parseLevel parses a log level string into slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
