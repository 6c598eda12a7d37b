// Package log wires slog with a component convention shared by the server
// and the worker binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text slog handler at the level named by LOG_LEVEL
// (debug, info, warn, error; default info) and returns the root logger.
func Setup() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
	slog.SetDefault(logger)
	return logger
}

// ForComponent returns a child logger tagged with a component attribute.
func ForComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
