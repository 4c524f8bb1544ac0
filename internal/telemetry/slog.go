// slog.go wires the process-wide structured logger. Planivo logs through the
// slog default logger everywhere (handlers, engine, jobs), so configuration
// happens exactly once at startup and nothing carries a *slog.Logger around.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a config level string to a slog.Level. Unknown or empty
// strings fall back to info.
func ParseLevel(level string) slog.Level {
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

// NewHandler builds the slog handler for the given format ("json" for
// production, anything else is human-readable text) and level. Source
// locations are attached only at debug level; they cost an extra frame walk
// per record.
func NewHandler(w io.Writer, format, level string) slog.Handler {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetupLogger installs the configured handler as the slog default. Every
// record carries a service attribute so Planivo lines are filterable when
// multiple services share a log stream.
func SetupLogger(format, level string) {
	logger := slog.New(NewHandler(os.Stdout, format, level)).With("service", "planivo")
	slog.SetDefault(logger)
	slog.Info("logging configured", "format", format, "level", ParseLevel(level).String())
}
