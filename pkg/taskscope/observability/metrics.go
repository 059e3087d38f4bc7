package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records observer metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEnvelope records one observed envelope and whether the active
	// filter matched it.
	RecordEnvelope(ctx context.Context, matched bool)

	// RecordEnvelopeSkipped records a malformed envelope that was skipped.
	RecordEnvelopeSkipped(ctx context.Context)

	// RecordCompletion records a terminal transition with the time elapsed
	// since first capture.
	RecordCompletion(ctx context.Context, state string, sinceCaptured time.Duration)

	// RecordFetch records one result-store lookup with its attempt count
	// and error status.
	RecordFetch(ctx context.Context, attempts int, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	envelopes        metric.Int64Counter
	envelopesSkipped metric.Int64Counter
	completions      metric.Int64Counter
	completionLag    metric.Float64Histogram
	fetchAttempts    metric.Int64Counter
	fetchLatency     metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("taskscope")

	envelopes, err := meter.Int64Counter("taskscope.envelopes.observed",
		metric.WithDescription("Number of envelopes observed on the bus"),
	)
	if err != nil {
		return nil, err
	}

	envelopesSkipped, err := meter.Int64Counter("taskscope.envelopes.skipped",
		metric.WithDescription("Number of malformed envelopes skipped"),
	)
	if err != nil {
		return nil, err
	}

	completions, err := meter.Int64Counter("taskscope.tasks.completed",
		metric.WithDescription("Number of tasks reaching a terminal state"),
	)
	if err != nil {
		return nil, err
	}

	completionLag, err := meter.Float64Histogram("taskscope.tasks.completion_lag_ms",
		metric.WithDescription("Time from first capture to terminal state in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fetchAttempts, err := meter.Int64Counter("taskscope.fetch.attempts",
		metric.WithDescription("Number of result-store lookup attempts"),
	)
	if err != nil {
		return nil, err
	}

	fetchLatency, err := meter.Float64Histogram("taskscope.fetch.latency_ms",
		metric.WithDescription("Result-store lookup latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		envelopes:        envelopes,
		envelopesSkipped: envelopesSkipped,
		completions:      completions,
		completionLag:    completionLag,
		fetchAttempts:    fetchAttempts,
		fetchLatency:     fetchLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEnvelope records one observed envelope.
func (m *otelMetrics) RecordEnvelope(ctx context.Context, matched bool) {
	m.envelopes.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("matched", matched),
	))
}

// RecordEnvelopeSkipped records a skipped envelope.
func (m *otelMetrics) RecordEnvelopeSkipped(ctx context.Context) {
	m.envelopesSkipped.Add(ctx, 1)
}

// RecordCompletion records a terminal transition.
func (m *otelMetrics) RecordCompletion(ctx context.Context, state string, sinceCaptured time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("state", state),
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.completionLag.Record(ctx, float64(sinceCaptured.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordFetch records one result-store lookup.
func (m *otelMetrics) RecordFetch(ctx context.Context, attempts int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("error", err != nil),
	}
	m.fetchAttempts.Add(ctx, int64(attempts), metric.WithAttributes(attrs...))
	m.fetchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
