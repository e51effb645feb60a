package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction. It mirrors the logging section of
// internal/config.Config so this package has no dependency on it (avoids
// an import cycle, since config errors are themselves logged).
type Config struct {
	Level  string
	Format string
	Output string
}

// Logger wraps slog.Logger with warnbridge-specific defaults.
//
// Thread Safety: all methods are safe for concurrent use from multiple
// goroutines, including the dispatch workers and scheduler.
type Logger struct {
	*slog.Logger
}

// New creates a Logger configured per cfg.
//
// Parameters:
//   - cfg: logging configuration
//   - version: build version, attached to every log line
func New(cfg Config, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "warnbridge"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel converts a string log level to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a derived Logger carrying additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a bootstrap logger for use before configuration loads.
func Default() *Logger {
	return New(Config{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
