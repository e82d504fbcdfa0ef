package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relimport/pkg/observability"
)

func newJSONLogger(buf *bytes.Buffer, env string, mode observability.AppMode) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, "relimport", env, mode))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_SpanAndServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, "ci", observability.ModeCLI)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "fix completed")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "relimport", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "cli", record["mode"])
	assert.NotContains(t, record, "path")
}

func TestTracingHandler_NoSpanNoEnv(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newJSONLogger(&buf, "", observability.ModeMCP).InfoContext(context.Background(), "serving")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "mcp", record["mode"])
}

func TestTracingHandler_PathFromContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := observability.WithPath(context.Background(), "src/x/y.ts")
	newJSONLogger(&buf, "", observability.ModeCLI).WarnContext(ctx, "alias not resolved", "alias", "@/a")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "src/x/y.ts", record["path"])
	assert.Equal(t, "@/a", record["alias"])
}

func TestPathFromContext(t *testing.T) {
	t.Parallel()

	_, ok := observability.PathFromContext(context.Background())
	assert.False(t, ok)

	_, ok = observability.PathFromContext(observability.WithPath(context.Background(), ""))
	assert.False(t, ok)

	path, ok := observability.PathFromContext(observability.WithPath(context.Background(), "a.ts"))
	assert.True(t, ok)
	assert.Equal(t, "a.ts", path)
}

func TestTracingHandler_GroupsKeepServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, "", observability.ModeCLI).With("op", "fix").WithGroup("rewrite")
	logger.InfoContext(context.Background(), "rewritten", "line", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "relimport", record["service"])
	assert.Equal(t, "fix", record["op"])

	group, ok := record["rewrite"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["line"], 0)
}
