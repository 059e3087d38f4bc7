package taskscope

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/taskscope/taskscope/pkg/taskscope/bus"
	"github.com/taskscope/taskscope/pkg/taskscope/errors"
	"github.com/taskscope/taskscope/pkg/taskscope/observability"
	"github.com/taskscope/taskscope/pkg/taskscope/pattern"
	"github.com/taskscope/taskscope/pkg/taskscope/registry"
	"github.com/taskscope/taskscope/pkg/taskscope/resultstore"
)

// ErrObserverClosed is returned by operations on a closed Observer.
var ErrObserverClosed = stderrors.New("taskscope: observer closed")

// errOutcomeNotReady drives the await loop: a not-ready answer from the
// result store is a transient condition, retried under backoff.
var errOutcomeNotReady = stderrors.New("outcome not ready")

// Observer correlates task-dispatch events observed on a bus with their
// eventual outcomes in a result store.
//
// An Observer runs at most one capture session at a time. Capture starts
// a session with a routing-key filter; every matching dispatch event is
// tracked as PENDING until its outcome appears in the store, found either
// by the background poller or by a blocking AwaitResults call. Snapshots
// are point-in-time copies and never block capture.
//
// All methods are safe for concurrent use.
type Observer struct {
	stream bus.Stream
	store  resultstore.Store
	reg    *registry.Registry
	cfg    observerConfig

	// filter is swapped atomically so the capture loop never blocks on a
	// session transition.
	filter atomic.Pointer[pattern.Filter]

	// kick nudges the poll loop ahead of its next tick. Snapshot reads send
	// on it so partial completions surface between ticks.
	kick chan struct{}

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
}

// New creates an Observer over the given event stream and result store.
func New(stream bus.Stream, store resultstore.Store, opts ...Option) *Observer {
	cfg := defaultObserverConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	o := &Observer{
		stream: stream,
		store:  store,
		reg: registry.New(registry.Config{
			Capacity:     cfg.capacity,
			RetainParams: cfg.retainParams,
		}),
		cfg:  cfg,
		kick: make(chan struct{}, 1),
	}
	o.filter.Store(pattern.Compile(""))
	return o
}

// Capture starts a capture session with the given routing-key filter
// expression and replaces any session already running. Tasks tracked by
// the previous session remain tracked; only the subscription and the
// filter are renewed. An empty expression starts a session that matches
// nothing.
//
// ctx bounds session setup only. The session itself runs until it is
// replaced by another Capture call or the Observer is closed.
func (o *Observer) Capture(ctx context.Context, expression string) error {
	if o.closed.Load() {
		return ErrObserverClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filter := pattern.Compile(expression)
	sessionID := uuid.NewString()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopSessionLocked()

	sessionCtx, cancel := context.WithCancel(context.Background())
	events, err := o.stream.Subscribe(sessionCtx)
	if err != nil {
		cancel()
		return err
	}

	o.filter.Store(filter)
	o.sessionID = sessionID
	o.cancel = cancel

	logger := observability.EnrichLogger(o.cfg.logger, sessionID, filter.Expression())
	observability.LogCaptureStart(logger)

	spanCtx, span := o.cfg.spans.StartCaptureSpan(sessionCtx, sessionID, filter.Expression())

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.captureLoop(spanCtx, events, logger)
		o.cfg.spans.EndSpanWithError(span, nil)
		observability.LogCaptureStop(logger, o.reg.Len())
	}()
	go func() {
		defer o.wg.Done()
		o.pollLoop(sessionCtx, logger)
	}()
	return nil
}

// SetFilter swaps the routing-key filter of the running session without
// restarting it. Tasks already tracked stay tracked even when the new
// filter would not have matched them.
func (o *Observer) SetFilter(expression string) {
	o.filter.Store(pattern.Compile(expression))
}

// Filter returns the active filter expression.
func (o *Observer) Filter() string {
	return o.filter.Load().Expression()
}

// SessionID returns the identifier of the most recent capture session,
// empty before the first Capture call.
func (o *Observer) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// captureLoop consumes the subscription until the session ends.
func (o *Observer) captureLoop(ctx context.Context, events <-chan bus.Envelope, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-events:
			if !ok {
				return
			}
			o.handleEnvelope(ctx, env, logger)
		}
	}
}

// handleEnvelope applies the filter and records a match as PENDING.
func (o *Observer) handleEnvelope(ctx context.Context, env bus.Envelope, logger *slog.Logger) {
	if env.Err != nil {
		observability.LogEnvelopeSkipped(logger, env.RoutingKey, env.Err)
		o.cfg.metrics.RecordEnvelopeSkipped(ctx)
		return
	}

	matched := o.filter.Load().Matches(env.RoutingKey)
	o.cfg.metrics.RecordEnvelope(ctx, matched)
	if !matched {
		return
	}

	created := o.reg.Upsert(env.ID, env.Name, env.RoutingKey, env.Args, env.Kwargs, env.Retries)
	if created {
		observability.LogTaskCaptured(logger, env.ID, env.Name, env.RoutingKey)
		o.cfg.spans.AddSpanEvent(ctx, "task.captured",
			attribute.String("task.id", env.ID),
			attribute.String("task.routing_key", env.RoutingKey),
		)
	}
}

// pollLoop checks pending tasks against the result store at the
// configured cadence, or sooner when a snapshot read kicks it. Each check
// is a single non-blocking lookup; store failures leave the entry pending
// for the next pass.
func (o *Observer) pollLoop(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(o.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-o.kick:
		}

		gen := o.reg.Generation()
		for _, id := range o.reg.PendingIDs() {
			oc, err := o.store.GetOutcome(ctx, id)
			if err != nil {
				observability.LogStoreError(logger, id, err)
				continue
			}
			if oc.Ready() {
				o.resolve(ctx, id, gen, oc, logger)
			}
		}
	}
}

// kickPoll nudges the poll loop without blocking.
func (o *Observer) kickPoll() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// resolve records a terminal outcome for one tracked task.
func (o *Observer) resolve(ctx context.Context, id string, gen uint64, oc resultstore.Outcome, logger *slog.Logger) {
	state, outcome := toRegistryOutcome(oc)
	task, ok := o.reg.Complete(id, gen, state, outcome)
	if !ok {
		return
	}
	lag := task.CompletedAt.Sub(task.CapturedAt)
	observability.LogTaskCompleted(logger, id, string(state), float64(lag.Milliseconds()))
	o.cfg.metrics.RecordCompletion(ctx, string(state), lag)
}

// AwaitResults blocks until every currently pending task has a terminal
// outcome, then returns the resolved tasks in capture order. Lookups run
// under the configured retry policy, so with the default policy the only
// way out of an unresolved task is ctx cancellation.
//
// A failed lookup for one task never blocks the others: the pass moves on
// to the next pending task and the per-task errors come back joined, with
// the tasks that did resolve recorded as usual. Only ctx cancellation
// ends the pass early.
//
// includeSuccess and includeError select which resolved tasks are
// returned: successes, failures and revocations, or both. Resolution
// happens regardless; the toggles only shape the returned slice.
func (o *Observer) AwaitResults(ctx context.Context, includeSuccess, includeError bool) ([]registry.Task, error) {
	if o.closed.Load() {
		return nil, ErrObserverClosed
	}

	gen := o.reg.Generation()
	pending := o.reg.PendingIDs()

	fetchCtx, span := o.cfg.spans.StartFetchSpan(ctx, len(pending))
	elapsed := observability.TimedOperation()
	resolved := 0

	var fetchErrs []error
	for _, id := range pending {
		oc, err := o.awaitOutcome(fetchCtx, id)
		if err != nil {
			fetchErrs = append(fetchErrs, fmt.Errorf("task %s: %w", id, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		o.resolve(fetchCtx, id, gen, oc, o.cfg.logger)
		resolved++
	}
	fetchErr := stderrors.Join(fetchErrs...)

	o.cfg.spans.EndSpanWithError(span, fetchErr)
	observability.LogFetchDone(o.cfg.logger, resolved, len(pending)-resolved, elapsed())
	if fetchErr != nil {
		return nil, fetchErr
	}

	states := terminalStates(includeSuccess, includeError)
	if len(states) == 0 {
		return nil, nil
	}
	return o.reg.Snapshot(o.cfg.retainParams, states...), nil
}

// awaitOutcome retries a single store lookup until the outcome is ready.
func (o *Observer) awaitOutcome(ctx context.Context, id string) (resultstore.Outcome, error) {
	result := errors.WithRetryContext(ctx, o.cfg.retry, func(ctx context.Context) (resultstore.Outcome, error) {
		oc, err := o.store.GetOutcome(ctx, id)
		if err != nil {
			return resultstore.NotReady, err
		}
		if !oc.Ready() {
			return resultstore.NotReady, errors.Transient(errOutcomeNotReady, id)
		}
		return oc, nil
	})
	o.cfg.metrics.RecordFetch(ctx, result.Attempts, result.Duration, result.Err)
	if result.Err != nil {
		return resultstore.NotReady, result.Err
	}
	return result.Value, nil
}

// Pending returns the tasks still awaiting an outcome, in capture order.
// Call arguments are included only when includeParams is set and the
// observer retains them.
func (o *Observer) Pending(includeParams bool) []registry.Task {
	o.kickPoll()
	return o.reg.Snapshot(includeParams && o.cfg.retainParams, registry.StatePending)
}

// Results returns the resolved tasks selected by the toggles, in capture
// order. includeSuccess selects successes; includeError selects failures
// and revocations.
func (o *Observer) Results(includeSuccess, includeError, includeParams bool) []registry.Task {
	o.kickPoll()
	states := terminalStates(includeSuccess, includeError)
	if len(states) == 0 {
		return nil
	}
	return o.reg.Snapshot(includeParams && o.cfg.retainParams, states...)
}

// Tasks returns every tracked task, in capture order.
func (o *Observer) Tasks(includeParams bool) []registry.Task {
	o.kickPoll()
	return o.reg.Snapshot(includeParams && o.cfg.retainParams)
}

// Len reports the number of tracked tasks.
func (o *Observer) Len() int {
	return o.reg.Len()
}

// Reset discards every tracked task. The capture session keeps running;
// lookups already in flight against the old population are discarded
// rather than applied to the fresh one.
func (o *Observer) Reset() {
	o.reg.Reset()
}

// Close stops the capture session and releases the stream. The result
// store is left open; the caller owns its lifecycle.
func (o *Observer) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	o.mu.Lock()
	o.stopSessionLocked()
	o.mu.Unlock()
	return o.stream.Close()
}

// stopSessionLocked tears down the running session. Caller holds o.mu.
func (o *Observer) stopSessionLocked() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	o.cancel = nil
	o.wg.Wait()
}

// terminalStates maps the result toggles onto registry states.
func terminalStates(includeSuccess, includeError bool) []registry.State {
	var states []registry.State
	if includeSuccess {
		states = append(states, registry.StateSuccess)
	}
	if includeError {
		states = append(states, registry.StateError, registry.StateRevoked)
	}
	return states
}

// toRegistryOutcome maps a store answer onto a registry transition.
func toRegistryOutcome(oc resultstore.Outcome) (registry.State, registry.Outcome) {
	switch oc.Status {
	case resultstore.StatusSuccess:
		return registry.StateSuccess, registry.Outcome{Value: oc.Value}
	case resultstore.StatusRevoked:
		return registry.StateRevoked, registry.Outcome{Reason: oc.Reason}
	default:
		return registry.StateError, registry.Outcome{Error: oc.Error, Traceback: oc.Traceback}
	}
}
