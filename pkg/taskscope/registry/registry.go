// Package registry tracks observed tasks and their lifecycle transitions.
//
// The registry is the single mutable resource shared between the capture
// loop and the result fetchers. All mutation goes through its methods, which
// serialize against each other; reads return consistent copies and never
// expose internal storage.
package registry

import (
	"encoding/json"
	"sync"
	"time"
)

// State is a task lifecycle state. SUCCESS, ERROR and REVOKED are terminal.
type State string

const (
	StatePending State = "PENDING"
	StateSuccess State = "SUCCESS"
	StateError   State = "ERROR"
	StateRevoked State = "REVOKED"
)

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateError, StateRevoked:
		return true
	}
	return false
}

// Outcome holds the eventual result of a task. Exactly one of the fields is
// meaningful depending on the terminal state: Value for SUCCESS, Error and
// Traceback for ERROR, Reason for REVOKED.
type Outcome struct {
	Value     json.RawMessage
	Error     string
	Traceback string
	Reason    string
}

// Task is a read-only view of one tracked entry. Snapshots return copies,
// so callers can hold onto them without racing the registry.
type Task struct {
	ID          string
	Name        string
	RoutingKey  string
	Args        json.RawMessage
	Kwargs      json.RawMessage
	Retries     int
	State       State
	Outcome     *Outcome
	CapturedAt  time.Time
	CompletedAt time.Time
}

// Pending reports whether the task has not reached a terminal state.
func (t Task) Pending() bool {
	return t.State == StatePending
}

// entry is the mutable stored form of a task.
type entry struct {
	task Task
}

// Config configures a Registry.
type Config struct {
	// Capacity bounds the number of tracked entries. When a new entry would
	// exceed it, the oldest terminal entries are evicted first. Pending
	// entries are never evicted. Zero or negative uses DefaultCapacity.
	Capacity int

	// RetainParams controls whether captured call arguments are stored.
	// When false, Args and Kwargs are dropped at capture time to bound
	// memory, and no snapshot can recover them.
	RetainParams bool
}

// DefaultCapacity bounds the registry when no capacity is configured.
const DefaultCapacity = 10_000

// Registry is an in-memory, insertion-ordered collection of tracked tasks
// keyed by task identifier. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	entries      map[string]*entry
	order        []string
	generation   uint64
	capacity     int
	retainParams bool
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		entries:      make(map[string]*entry),
		order:        make([]string, 0),
		capacity:     capacity,
		retainParams: cfg.RetainParams,
	}
}

// Upsert records an observed task. The first observation of an identifier
// creates a PENDING entry; later observations refresh the retry counter but
// never touch state, outcome or parameters. It reports whether a new entry
// was created.
func (r *Registry) Upsert(id, name, routingKey string, args, kwargs json.RawMessage, retries int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		if retries > e.task.Retries {
			e.task.Retries = retries
		}
		return false
	}

	t := Task{
		ID:         id,
		Name:       name,
		RoutingKey: routingKey,
		Retries:    retries,
		State:      StatePending,
		CapturedAt: time.Now().UTC(),
	}
	if r.retainParams {
		t.Args = cloneRaw(args)
		t.Kwargs = cloneRaw(kwargs)
	}

	r.entries[id] = &entry{task: t}
	r.order = append(r.order, id)
	r.evictLocked()
	return true
}

// Generation returns the current reset generation. Fetchers capture it
// before starting a lookup and pass it to Complete, so answers that arrive
// after a Reset are discarded instead of reinserted.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Complete transitions an entry to a terminal state and returns a copy of
// the updated task. It is a no-op returning false when the generation is
// stale, the identifier is unknown, the entry is already terminal, or state
// is not terminal.
func (r *Registry) Complete(id string, generation uint64, state State, outcome Outcome) (Task, bool) {
	if !state.Terminal() {
		return Task{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if generation != r.generation {
		return Task{}, false
	}
	e, ok := r.entries[id]
	if !ok || e.task.State.Terminal() {
		return Task{}, false
	}

	oc := outcome
	e.task.State = state
	e.task.Outcome = &oc
	e.task.CompletedAt = time.Now().UTC()

	view := e.task
	viewOutcome := oc
	view.Outcome = &viewOutcome
	return view, true
}

// Snapshot returns copies of the entries whose state is in states, in
// capture order. No states means every state. When includeParams is false
// the views omit Args and Kwargs regardless of what is stored.
func (r *Registry) Snapshot(includeParams bool, states ...State) []Task {
	wanted := make(map[State]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]Task, 0, len(r.order))
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok || (len(wanted) > 0 && !wanted[e.task.State]) {
			continue
		}
		t := e.task
		if t.Outcome != nil {
			oc := *t.Outcome
			t.Outcome = &oc
		}
		if !includeParams {
			t.Args = nil
			t.Kwargs = nil
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// PendingIDs returns the identifiers of non-terminal entries in capture
// order.
func (r *Registry) PendingIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.entries[id]; ok && !e.task.State.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of tracked entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reset atomically clears all entries and bumps the generation so in-flight
// lookups resolve into nothing.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*entry)
	r.order = r.order[:0]
	r.generation++
}

// evictLocked drops the oldest terminal entries until the registry fits its
// capacity. Pending entries are kept even when over capacity, since losing
// them would break correlation with the result store.
func (r *Registry) evictLocked() {
	if len(r.entries) <= r.capacity {
		return
	}

	kept := r.order[:0]
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		if len(r.entries) > r.capacity && e.task.State.Terminal() {
			delete(r.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
