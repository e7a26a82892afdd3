// Package logging builds the slog loggers used across shopkeeper. Every
// record carries the service name and version, plus the trace and span ids
// of the active OpenTelemetry span when there is one.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Options configures New. Zero values mean JSON output at info level on
// stderr.
type Options struct {
	Service string
	Version string
	Format  string // "json" or "text"
	Level   string // "debug", "info", "warn" or "error"
	Output  io.Writer
}

var levels = map[string]slog.Level{
	"":        slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New returns a logger for opts. Unknown formats and levels are errors.
func New(opts Options) (*slog.Logger, error) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(opts.Level))]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", opts.Level)
	}
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		base = slog.NewJSONHandler(w, ho)
	case "text":
		base = slog.NewTextHandler(w, ho)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	base = base.WithAttrs([]slog.Attr{
		slog.String("service", opts.Service),
		slog.String("version", opts.Version),
	})
	return slog.New(spanHandler{base}), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// spanHandler appends trace_id and span_id from the record's context.
type spanHandler struct {
	slog.Handler
}

func (h spanHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanHandler{h.Handler.WithAttrs(attrs)}
}

func (h spanHandler) WithGroup(name string) slog.Handler {
	return spanHandler{h.Handler.WithGroup(name)}
}

// LogError logs err at error level. Coded errors add their code and context.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []any{slog.String("error", err.Error())}
	if oe, ok := oops.AsOops(err); ok {
		if code, _ := oe.Code().(string); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		if c := oe.Context(); len(c) > 0 {
			attrs = append(attrs, slog.Any("context", c))
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
