package taskscope

import (
	"log/slog"
	"time"

	"github.com/taskscope/taskscope/pkg/taskscope/errors"
	"github.com/taskscope/taskscope/pkg/taskscope/observability"
)

// observerConfig holds configuration for an Observer.
type observerConfig struct {
	logger       *slog.Logger
	metrics      observability.MetricsRecorder
	spans        observability.SpanManager
	retry        errors.RetryConfig
	pollInterval time.Duration
	capacity     int
	retainParams bool
}

// defaultObserverConfig returns the default observer configuration.
func defaultObserverConfig() observerConfig {
	return observerConfig{
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
		retry:        errors.DefaultRetry,
		pollInterval: time.Second,
		retainParams: true,
	}
}

// Option configures an Observer.
type Option func(*observerConfig)

// WithLogger sets the structured logger. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *observerConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *observerConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans sets the trace span manager.
// Default: observability.NoopSpanManager{}.
func WithSpans(s observability.SpanManager) Option {
	return func(c *observerConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithRetry sets the retry policy used when awaiting outcomes.
// Default: errors.DefaultRetry (unlimited attempts, exponential backoff,
// stopped by the caller's context).
func WithRetry(cfg errors.RetryConfig) Option {
	return func(c *observerConfig) {
		c.retry = cfg
	}
}

// WithPollInterval sets the cadence at which pending tasks are checked
// against the result store in the background.
// Default: 1s.
func WithPollInterval(d time.Duration) Option {
	return func(c *observerConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithCapacity bounds the number of tracked tasks. When exceeded, the
// oldest completed tasks are evicted first; tasks still awaiting an
// outcome are never evicted.
// Default: registry.DefaultCapacity.
func WithCapacity(n int) Option {
	return func(c *observerConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithRetainParams controls whether captured call arguments are kept.
// Default: true.
func WithRetainParams(retain bool) Option {
	return func(c *observerConfig) {
		c.retainParams = retain
	}
}
