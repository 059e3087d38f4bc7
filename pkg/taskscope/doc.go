/*
Package taskscope observes asynchronous task execution in real time.

# Overview

taskscope is a Go library for watching a distributed task queue from the
outside. It subscribes to the broker's dispatch events, filters them by
routing key, tracks every matching task in memory, and correlates each
one with its eventual outcome in the result backend. Nothing is
persisted and nothing is mutated: the observer is a read-only lens on a
running system.

The library speaks the Celery wire conventions out of the box (topic
routing keys on the broker side, task-meta records on the result side)
but both sides are interfaces, so any transport that can yield dispatch
envelopes and answer outcome lookups will do.

# Basic Usage

Create an Observer over a bus and a result store, start a capture
session, then await the outcomes:

	obs := taskscope.New(stream, store,
	    taskscope.WithLogger(slog.Default()),
	)
	defer obs.Close()

	if err := obs.Capture(ctx, "orders.#"); err != nil {
	    log.Fatal(err)
	}

	// ... workload runs ...

	tasks, err := obs.AwaitResults(ctx, true, true)
	if err != nil {
	    log.Fatal(err)
	}
	for _, t := range tasks {
	    fmt.Println(t.ID, t.State)
	}

For the common Redis/Redis deployment, NewFromSettings wires both sides
from TASKSCOPE_* environment variables:

	settings, err := config.FromEnv()
	if err != nil {
	    log.Fatal(err)
	}
	obs, closeStore := taskscope.NewFromSettings(settings)
	defer closeStore()
	defer obs.Close()

# Filtering

Capture filters use AMQP topic syntax: "*" matches exactly one
dot-separated token, "#" matches zero or more, and whitespace separates
alternatives ("orders.# payments.*.settled"). An empty filter matches
nothing. The filter gates capture only; tasks already tracked survive a
filter change.

# Lifecycle

A tracked task is PENDING from first observation until its outcome
resolves to SUCCESS, ERROR or REVOKED. Transitions are forward-only:
once terminal, an entry never changes again, and a re-delivered dispatch
event never revives it. Reset discards the tracked population without
stopping the session; outcome lookups still in flight against the old
population are dropped, never applied to the new one.
*/
package taskscope
