package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/devpulse/devpulse/internal/config"
)

// New constructs a slog.Logger configured according to the provided
// settings. Operational narration goes to stdout; warnings and errors
// go to stderr.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	handler, err := newSplitHandler(os.Stdout, os.Stderr, cfg)
	if err != nil {
		return nil, err
	}

	return slog.New(handler), nil
}

// splitHandler routes records at warn and above to one handler and
// everything else to another.
type splitHandler struct {
	out slog.Handler
	err slog.Handler
}

func newSplitHandler(out, errOut io.Writer, cfg config.LoggingConfig) (*splitHandler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json":
		return &splitHandler{
			out: slog.NewJSONHandler(out, opts),
			err: slog.NewJSONHandler(errOut, opts),
		}, nil
	case "text":
		return &splitHandler{
			out: slog.NewTextHandler(out, opts),
			err: slog.NewTextHandler(errOut, opts),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}

func (h *splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return h.err.Enabled(ctx, level)
	}
	return h.out.Enabled(ctx, level)
}

func (h *splitHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn {
		return h.err.Handle(ctx, record)
	}
	return h.out.Handle(ctx, record)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{
		out: h.out.WithAttrs(attrs),
		err: h.err.WithAttrs(attrs),
	}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{
		out: h.out.WithGroup(name),
		err: h.err.WithGroup(name),
	}
}
