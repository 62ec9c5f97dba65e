// Package logging builds the structured JSON loggers every kauppa process
// uses. Records carry the service name and version; debug loggers also
// record the source location.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a JSON logger writing to stderr.
func New(service, version, level string) *slog.Logger {
	return NewWithWriter(os.Stderr, service, version, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service, version, level string) *slog.Logger {
	lvl := ParseLevel(level)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("version", version),
	)
}

// SetDefault installs a New logger as the process default and returns it.
func SetDefault(service, version, level string) *slog.Logger {
	logger := New(service, version, level)
	slog.SetDefault(logger)
	return logger
}
