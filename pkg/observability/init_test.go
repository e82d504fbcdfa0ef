package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relimport/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "relimport", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "api-key=secret")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg := observability.DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, map[string]string{"api-key": "secret"}, cfg.OTLPHeaders)
	assert.True(t, cfg.OTLPInsecure)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", nil},
		{"single", "a=1", map[string]string{"a": "1"}},
		{"multiple with spaces", " a = 1 , b=2", map[string]string{"a": "1", "b": "2"}},
		{"no pairs", "garbage", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "fix")
	span.End()

	assert.NotNil(t, ctx)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WritesMetricsTextfileOnShutdown(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "relimport.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path
	cfg.ServiceVersion = "1.2.3"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	metrics, err := observability.NewRunMetrics(providers.Meter)
	require.NoError(t, err)

	metrics.RecordFile(context.Background(), observability.FileStats{Lang: "TypeScript", Changed: true, Rewrites: 2})

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "relimport_files_scanned")
	assert.Contains(t, body, "relimport_rewrites")
	assert.Contains(t, body, `lang="TypeScript"`)
}

func TestInit_TextfileIntoMissingDirectoryFailsOnShutdown(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "missing", "relimport.prom")

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	require.Error(t, providers.Shutdown(context.Background()))
}

func TestNewLogger_RespectsLevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelWarn
	cfg.LogWriter = &buf

	logger := observability.NewLogger(cfg)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown", "path", "src/a.ts")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "src/a.ts", record["path"])
	assert.Equal(t, "relimport", record["service"])
	assert.Equal(t, "cli", record["mode"])
}

func TestNewTextfileWriter_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := observability.NewTextfileWriter("")
	require.ErrorIs(t, err, observability.ErrTextfilePath)
}
