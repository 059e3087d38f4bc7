package resultstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for testing and embedding. Unknown
// identifiers answer NotReady, matching how a real backend behaves before
// a worker records anything.
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes map[string]Outcome
	failures map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outcomes: make(map[string]Outcome),
		failures: make(map[string]error),
	}
}

// GetOutcome implements Store.
func (m *MemoryStore) GetOutcome(ctx context.Context, id string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return NotReady, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.failures[id]; ok {
		return NotReady, err
	}
	if oc, ok := m.outcomes[id]; ok {
		return oc, nil
	}
	return NotReady, nil
}

// SetOutcome records the outcome returned for id.
func (m *MemoryStore) SetOutcome(id string, oc Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, id)
	m.outcomes[id] = oc
}

// FailWith makes lookups for id return err, simulating an unreachable or
// misbehaving store.
func (m *MemoryStore) FailWith(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = err
}

// Forget removes any outcome or injected failure for id.
func (m *MemoryStore) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outcomes, id)
	delete(m.failures, id)
}
