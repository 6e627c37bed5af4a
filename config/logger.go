package config

import (
	"log/slog"
	"os"
)

// NewLogger returns the service logger. Production (GO_ENV=production)
// writes JSON for log shipping; everything else writes text for local
// readability. LOG_LEVEL may be debug, info, warn or error (default info).
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}
	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "admission-scheduling")
}

func logLevel(s string) slog.Level {
	switch s {
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
