// Package logging wraps log/slog the way the teacher's
// internal/infrastructure/logger package does: a thin structured
// logger with level configuration and a package-level default used by
// the engine's hot path.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger at the given level ("debug", "info",
// "warn", "error"; anything else defaults to "info").
func New(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})
	return slog.New(handler)
}

// Default returns an info-level logger and installs it as slog's
// package-level default.
func Default() *slog.Logger {
	l := New("info")
	slog.SetDefault(l)
	return l
}
