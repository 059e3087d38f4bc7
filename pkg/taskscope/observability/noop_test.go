package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestNoopImplementationsDoNotPanic(t *testing.T) {
	ctx := context.Background()

	var m MetricsRecorder = NoopMetrics{}
	m.RecordEnvelope(ctx, true)
	m.RecordEnvelopeSkipped(ctx)
	m.RecordCompletion(ctx, "SUCCESS", time.Second)
	m.RecordFetch(ctx, 1, time.Millisecond, errors.New("x"))

	var s SpanManager = NoopSpanManager{}
	spanCtx, span := s.StartCaptureSpan(ctx, "session", "orders.#")
	s.AddSpanEvent(spanCtx, "event", attribute.String("k", "v"))
	s.EndSpanWithError(span, errors.New("x"))

	_, fetchSpan := s.StartFetchSpan(ctx, 3)
	s.EndSpanWithError(fetchSpan, nil)
}
