package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ErrTextfilePath is returned for an empty textfile destination.
var ErrTextfilePath = errors.New("metrics textfile path is empty")

// TextfileWriter exports OTel metrics in the Prometheus text format to a file,
// for the node_exporter textfile collector. Each writer owns an independent
// registry so repeated construction never conflicts.
type TextfileWriter struct {
	path     string
	registry *prometheus.Registry
	exporter *promexporter.Exporter
}

// NewTextfileWriter creates a writer targeting path.
func NewTextfileWriter(path string) (*TextfileWriter, error) {
	if path == "" {
		return nil, ErrTextfilePath
	}

	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileWriter{path: path, registry: registry, exporter: exporter}, nil
}

// Reader is the metric reader to attach to a MeterProvider.
func (tw *TextfileWriter) Reader() sdkmetric.Reader {
	return tw.exporter
}

// Path is the destination file.
func (tw *TextfileWriter) Path() string {
	return tw.path
}

// Write gathers the current metrics and atomically replaces the textfile.
func (tw *TextfileWriter) Write() error {
	err := prometheus.WriteToTextfile(tw.path, tw.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", tw.path, err)
	}

	return nil
}
