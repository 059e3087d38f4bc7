// Package bus abstracts the topic exchange the observer listens to.
//
// A Stream yields envelopes published under routing keys. Subscriptions are
// ephemeral: each Subscribe call creates a fresh view that exists only
// until its context is cancelled, so a new capture session never inherits
// stale bindings. The bus does its own coarse delivery; fine-grained
// routing-key filtering belongs to the engine's pattern matcher.
package bus

import (
	"context"
	"encoding/json"
)

// Envelope is one task-dispatch event as observed on the exchange.
type Envelope struct {
	// ID is the task identifier, the correlation key against the result
	// store.
	ID string

	// Name is the logical task name.
	Name string

	// RoutingKey is the routing key the event was published under.
	RoutingKey string

	// Args and Kwargs are the captured call arguments, kept opaque.
	Args   json.RawMessage
	Kwargs json.RawMessage

	// Retries is the retry count the publisher recorded, zero for a first
	// dispatch.
	Retries int

	// Raw is the undecoded payload, kept for debugging.
	Raw []byte

	// Err is set when the payload could not be decoded. The envelope then
	// carries only RoutingKey and Raw; consumers log and skip it.
	Err error
}

// Stream is a subscribable view of the exchange.
type Stream interface {
	// Subscribe creates a fresh ephemeral subscription. Delivery stops and
	// the subscription is torn down when ctx is cancelled; the returned
	// channel is closed afterwards.
	Subscribe(ctx context.Context) (<-chan Envelope, error)

	// Close releases the stream and any underlying connection.
	Close() error
}

// wireMessage is the published JSON form of a dispatch event.
type wireMessage struct {
	ID      string          `json:"id"`
	Task    string          `json:"task"`
	Args    json.RawMessage `json:"args,omitempty"`
	Kwargs  json.RawMessage `json:"kwargs,omitempty"`
	Retries int             `json:"retries"`
}
