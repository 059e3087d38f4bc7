// Package resultstore abstracts the key/value store that holds eventual
// task outcomes.
//
// The store answers a tri-state question per task identifier: not ready
// yet, succeeded with a value, or failed with a description. Revocation is
// a distinguished failure carrying only a reason. A task's own failure is
// never an error of the store; errors returned by GetOutcome always mean
// the store itself could not be consulted.
package resultstore

import (
	"context"
	"encoding/json"
)

// Status is the store's answer category for one identifier.
type Status string

const (
	// StatusNotReady means no terminal outcome has been recorded yet.
	StatusNotReady Status = "NOT_READY"

	// StatusSuccess means the task completed and produced a value.
	StatusSuccess Status = "SUCCESS"

	// StatusFailure means the task raised; Error and Traceback describe it.
	StatusFailure Status = "FAILURE"

	// StatusRevoked means the task was cancelled; only Reason is set.
	StatusRevoked Status = "REVOKED"
)

// Outcome is one answer from the store.
type Outcome struct {
	Status    Status
	Value     json.RawMessage // set for StatusSuccess
	Error     string          // set for StatusFailure: exception type and message
	Traceback string          // set for StatusFailure when the backend recorded one
	Reason    string          // set for StatusRevoked
}

// Ready reports whether the outcome is terminal.
func (o Outcome) Ready() bool {
	return o.Status != StatusNotReady
}

// NotReady is the answer for identifiers with no recorded outcome.
var NotReady = Outcome{Status: StatusNotReady}

// Store looks up task outcomes by identifier.
//
// Implementations must be non-blocking: when no outcome is recorded they
// return NotReady rather than waiting. Blocking-until-resolved is layered
// on top by the engine's retry wrapper. A non-nil error is always a store
// infrastructure problem, never a task failure.
type Store interface {
	GetOutcome(ctx context.Context, id string) (Outcome, error)
}
