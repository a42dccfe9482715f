// Package logging provides structured logging setup for house-calendar.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the default slog logger and returns it.
// Dev mode uses human-readable text at debug level; prod uses JSON.
func Setup(devMode bool) *slog.Logger {
	logger := New(os.Stdout, devMode)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w without installing it.
func New(w io.Writer, devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
