package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-logr/logr"
)

func Context(ctx context.Context, logger *slog.Logger) context.Context {
	return logr.NewContextWithSlogLogger(ctx, logger)
}

// FromContext returns the logger carried by `ctx`, or the default logger
// when there is none.
func FromContext(ctx context.Context) (logger *slog.Logger) {
	if logger = logr.FromContextAsSlogLogger(ctx); logger == nil {
		logger = slog.Default()
	}
	return
}

// New returns a JSON logger writing to `w` at the named level ("debug",
// "info", "warn", "error"; empty means info).
func New(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); level != "" && err != nil {
		return nil, fmt.Errorf("parsing log level `%s`: %w", level, err)
	}
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}),
	), nil
}
