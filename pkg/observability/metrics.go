package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesScanned  = "relimport.files.scanned"
	metricFilesChanged  = "relimport.files.changed"
	metricFilesSkipped  = "relimport.files.skipped"
	metricRewrites      = "relimport.rewrites"
	metricWarnings      = "relimport.warnings"
	metricRunDuration   = "relimport.operation.duration"
	metricFixOperations = "relimport.operations"

	attrLang   = "lang"
	attrOp     = "op"
	attrStatus = "status"

	// StatusOK and StatusError label operation outcomes.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 120s: single-file fixes through
// large monorepo walks.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// metricBuilder accumulates instrument creation errors so a set of
// instruments needs a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// RunMetrics holds the OTel instruments recorded by fix runs and MCP calls.
type RunMetrics struct {
	filesScanned metric.Int64Counter
	filesChanged metric.Int64Counter
	filesSkipped metric.Int64Counter
	rewrites     metric.Int64Counter
	warnings     metric.Int64Counter
	operations   metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := &metricBuilder{meter: mt}

	rm := &RunMetrics{
		filesScanned: b.counter(metricFilesScanned, "Source files scanned", "{file}"),
		filesChanged: b.counter(metricFilesChanged, "Source files with rewritten imports", "{file}"),
		filesSkipped: b.counter(metricFilesSkipped, "Source files skipped by size", "{file}"),
		rewrites:     b.counter(metricRewrites, "Alias imports rewritten", "{import}"),
		warnings:     b.counter(metricWarnings, "Alias imports or files that failed", "{warning}"),
		operations:   b.counter(metricFixOperations, "Completed operations by outcome", "{operation}"),
		duration: b.histogram(metricRunDuration, "Operation duration in seconds", "s",
			durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// FileStats is what one processed file contributes to the counters.
type FileStats struct {
	Lang     string
	Changed  bool
	Rewrites int
	Warnings int
}

// RecordFile records one processed file. Safe to call on a nil receiver.
func (rm *RunMetrics) RecordFile(ctx context.Context, stats FileStats) {
	if rm == nil {
		return
	}

	langAttrs := metric.WithAttributes(attribute.String(attrLang, stats.Lang))

	rm.filesScanned.Add(ctx, 1, langAttrs)

	if stats.Changed {
		rm.filesChanged.Add(ctx, 1, langAttrs)
	}

	rm.rewrites.Add(ctx, int64(stats.Rewrites), langAttrs)
	rm.warnings.Add(ctx, int64(stats.Warnings), langAttrs)
}

// RecordSkipped records files the walker skipped. Safe to call on a nil receiver.
func (rm *RunMetrics) RecordSkipped(ctx context.Context, count int) {
	if rm == nil || count == 0 {
		return
	}

	rm.filesSkipped.Add(ctx, int64(count))
}

// RecordOperation records a finished operation with its outcome and duration.
// Safe to call on a nil receiver.
func (rm *RunMetrics) RecordOperation(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.operations.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, duration.Seconds(), attrs)
}
