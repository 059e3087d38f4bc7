package bus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskscope/taskscope/pkg/taskscope/bus"
)

func receiveEnvelope(t *testing.T, ch <-chan bus.Envelope) bus.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
		return bus.Envelope{}
	}
}

func TestMemoryBus_PublishFansOut(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()

	ctx := context.Background()
	ch1, err := b.Subscribe(ctx)
	require.NoError(t, err)
	ch2, err := b.Subscribe(ctx)
	require.NoError(t, err)

	env := bus.Envelope{ID: "t1", Name: "orders.create", RoutingKey: "orders.create.42", Args: json.RawMessage(`[42]`)}
	require.NoError(t, b.Publish(ctx, env))

	got1 := receiveEnvelope(t, ch1)
	got2 := receiveEnvelope(t, ch2)
	assert.Equal(t, "t1", got1.ID)
	assert.Equal(t, "t1", got2.ID)
	assert.Equal(t, "orders.create.42", got1.RoutingKey)
}

func TestMemoryBus_CancelledSubscriptionStopsDelivery(t *testing.T) {
	b := bus.NewMemoryBus(1)
	defer b.Close()

	subCtx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(subCtx)
	require.NoError(t, err)
	cancel()

	// Give the teardown goroutine a moment to remove the subscription.
	// Publishing afterwards must not block even though nobody reads ch.
	require.Eventually(t, func() bool {
		done := make(chan struct{})
		go func() {
			_ = b.Publish(context.Background(), bus.Envelope{ID: "t1"})
			_ = b.Publish(context.Background(), bus.Envelope{ID: "t2"})
			close(done)
		}()
		select {
		case <-done:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 50*time.Millisecond)
	_ = ch
}

func TestMemoryBus_ClosedBusRefusesOperations(t *testing.T) {
	b := bus.NewMemoryBus(1)
	require.NoError(t, b.Close())

	_, err := b.Subscribe(context.Background())
	assert.ErrorIs(t, err, bus.ErrBusClosed)

	err = b.Publish(context.Background(), bus.Envelope{ID: "t1"})
	assert.ErrorIs(t, err, bus.ErrBusClosed)
}

func TestMemoryBus_SubscriptionsAreIndependent(t *testing.T) {
	b := bus.NewMemoryBus(8)
	defer b.Close()

	ctx1, cancel1 := context.WithCancel(context.Background())
	_, err := b.Subscribe(ctx1)
	require.NoError(t, err)
	cancel1()

	// A fresh subscription after the first ended still receives events.
	ch2, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), bus.Envelope{ID: "t2"}))
	assert.Equal(t, "t2", receiveEnvelope(t, ch2).ID)
}
