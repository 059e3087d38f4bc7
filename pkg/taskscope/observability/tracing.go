package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("taskscope")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCaptureSpan starts a span covering one capture session.
	StartCaptureSpan(ctx context.Context, sessionID, filter string) (context.Context, trace.Span)

	// StartFetchSpan starts a span covering one blocking fetch pass.
	StartFetchSpan(ctx context.Context, pending int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// Configure the global tracer provider before calling this:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCaptureSpan starts a span covering one capture session.
func (m *otelSpanManager) StartCaptureSpan(ctx context.Context, sessionID, filter string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "taskscope.capture",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.filter", filter),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

// StartFetchSpan starts a span covering one blocking fetch pass.
func (m *otelSpanManager) StartFetchSpan(ctx context.Context, pending int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "taskscope.fetch",
		trace.WithAttributes(
			attribute.Int("fetch.pending", pending),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
