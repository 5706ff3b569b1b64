package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler level and format for the process logger.
type Config struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	Output io.Writer
}

// New builds a *slog.Logger from cfg. Unknown levels fall back to info,
// unknown formats to text.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
