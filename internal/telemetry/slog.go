package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the default slog logger from the configured format
// and level.
//
// format: "json" selects the JSON handler, anything else the text handler.
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to "info".
//
// Logs go to stderr so command output on stdout stays machine readable.
func SetupLogger(format, level string) {
	lvl := ParseLevel(level)
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, lvl)))
	slog.Debug("logger initialised", "format", format, "level", lvl.String())
}

// ParseLevel maps a configured level name onto a slog level
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

// NewHandler builds the handler SetupLogger installs, writing to w
func NewHandler(w io.Writer, format string, lvl slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
