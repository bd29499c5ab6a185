package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide structured logger. JSON on stdout so
// the collector can ship it anywhere; every record carries the service
// name for fan-in with the consumer's logs.
func NewLogger(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	})
	return slog.New(handler).With("service", "accessible-dispatch")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
