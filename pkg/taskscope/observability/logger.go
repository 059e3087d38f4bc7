// Package observability provides structured logging, metrics and tracing
// for the observer: slog for logs, OpenTelemetry for metrics and spans.
// Everything is opt-in and has a no-op form when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger carrying the capture-session fields.
func EnrichLogger(logger *slog.Logger, sessionID, filter string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("filter", filter),
	)
}

// LogCaptureStart logs the start of a capture session. The logger should
// already carry the session fields; see EnrichLogger.
func LogCaptureStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("capture session starting")
}

// LogCaptureStop logs the end of a capture session.
func LogCaptureStop(logger *slog.Logger, captured int) {
	if logger == nil {
		return
	}
	logger.Info("capture session stopped",
		slog.Int("tasks_tracked", captured),
	)
}

// LogTaskCaptured logs the first observation of a task.
func LogTaskCaptured(logger *slog.Logger, id, name, routingKey string) {
	if logger == nil {
		return
	}
	logger.Debug("task captured",
		slog.String("task_id", id),
		slog.String("task", name),
		slog.String("routing_key", routingKey),
	)
}

// LogTaskCompleted logs a terminal transition.
func LogTaskCompleted(logger *slog.Logger, id, state string, sinceCapturedMs float64) {
	if logger == nil {
		return
	}
	logger.Info("task completed",
		slog.String("task_id", id),
		slog.String("state", state),
		slog.Float64("since_captured_ms", sinceCapturedMs),
	)
}

// LogEnvelopeSkipped logs a malformed envelope that was skipped.
func LogEnvelopeSkipped(logger *slog.Logger, routingKey string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("envelope skipped",
		slog.String("routing_key", routingKey),
		slog.String("error", err.Error()),
	)
}

// LogStoreError logs a result-store lookup failure (non-fatal, the entry
// stays pending).
func LogStoreError(logger *slog.Logger, id string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("result store lookup failed",
		slog.String("task_id", id),
		slog.String("error", err.Error()),
	)
}

// LogFetchDone logs the end of a blocking fetch pass.
func LogFetchDone(logger *slog.Logger, resolved, unresolved int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("result fetch finished",
		slog.Int("resolved", resolved),
		slog.Int("unresolved", unresolved),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation. The returned
// function reports the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
