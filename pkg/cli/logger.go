package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/japaniel/jlptdeck/pkg/config"
)

// newLogger creates a *slog.Logger from LogConfig and installs it as the
// default.
//
// Format "json" produces structured JSON output; "text" (default) produces
// human-readable output. Level is one of debug, info, warn, error.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
