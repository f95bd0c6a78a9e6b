// Package logger configures the process wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// ParseLevel maps debug, warn and error to their slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a logger writing to w. The format is json or text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup installs a stderr logger as the default and returns it.
func Setup(level, format string) *slog.Logger {
	defaultLogger = New(os.Stderr, level, format)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// L returns the default logger, setting one up from SDKNN_LOG_LEVEL and
// SDKNN_LOG_FORMAT if Setup has not been called.
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup(os.Getenv("SDKNN_LOG_LEVEL"), os.Getenv("SDKNN_LOG_FORMAT"))
	}
	return defaultLogger
}
