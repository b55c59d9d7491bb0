// Package logger provides structured logging setup for Maestro.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tbellamy/maestro/internal/config"
)

// New creates a *slog.Logger from the given Logging config, plus a
// Closer that flushes buffered records on shutdown. Output goes to
// stdout with a "service" attribute on every record; format is "json"
// (default) or "text".
func New(cfg config.Logging) (*slog.Logger, Closer) {
	handler := newHandler(os.Stdout, cfg)

	closer := Closer(nopCloser{})
	if cfg.Async {
		async := NewAsyncHandler(handler, asyncQueueSize, asyncWorkers)
		handler = async
		closer = async
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

func newHandler(w io.Writer, cfg config.Logging) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
