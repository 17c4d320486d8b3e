package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/quaestor/pkg/config"
)

// Setup builds the root slog logger from the logging configuration,
// installs it as the process default, and returns it. A nil writer
// logs to stdout.
func Setup(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json", "":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: want json or text", cfg.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ForComponent returns the default logger scoped to one component.
// Component names follow the package naming: "gateway", "router",
// "ledger", "config.watcher".
func ForComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// ParseLevel maps a config level string to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: want debug, info, warn, or error", level)
	}
}
