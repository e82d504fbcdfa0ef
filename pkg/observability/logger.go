package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrPath    = "path"
)

type pathKey struct{}

// WithPath returns ctx tagged with the source file being processed. Records
// logged through a TracingHandler with that context carry a path attribute.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

// PathFromContext returns the file path stored by WithPath.
func PathFromContext(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(pathKey{}).(string)

	return path, ok && path != ""
}

// TracingHandler is an [slog.Handler] that stamps records with the active
// span (trace_id, span_id) and the file in progress.
// The service, mode and env attributes are attached once, before any group.
type TracingHandler struct {
	next slog.Handler
}

// NewTracingHandler wraps next for the given service and run mode.
func NewTracingHandler(next slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := make([]slog.Attr, 0, 3) //nolint:mnd // service, mode, env.
	attrs = append(attrs, slog.String(attrService, service), slog.String(attrMode, string(appMode)))

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{next: next.WithAttrs(attrs)}
}

// Enabled reports whether the wrapped handler accepts level.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.next.Enabled(ctx, level)
}

// Handle stamps the record from ctx and passes it on.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if path, ok := PathFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrPath, path))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.next.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{next: th.next.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{next: th.next.WithGroup(name)}
}
