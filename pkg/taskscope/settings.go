package taskscope

import (
	"github.com/taskscope/taskscope/pkg/taskscope/bus"
	"github.com/taskscope/taskscope/pkg/taskscope/config"
	"github.com/taskscope/taskscope/pkg/taskscope/resultstore"
)

// NewFromSettings wires an Observer against a Redis broker and result
// backend described by s. The Observer owns the connections it creates;
// Close releases the bus, and the returned store closer releases the
// result backend.
func NewFromSettings(s config.Settings, opts ...Option) (*Observer, func() error) {
	// Peek at the options so the bus shares the observer's logger.
	peek := defaultObserverConfig()
	for _, opt := range opts {
		opt(&peek)
	}

	stream := bus.NewRedisBus(bus.RedisConfig{
		Addr:     s.BrokerAddr,
		DB:       s.BrokerDB,
		Exchange: s.Exchange,
		Logger:   peek.logger,
	})
	store := resultstore.NewRedisStore(resultstore.RedisConfig{
		Addr:      s.ResultAddr,
		DB:        s.ResultDB,
		KeyPrefix: s.ResultKeyPrefix,
	})

	merged := append([]Option{
		WithCapacity(s.Capacity),
		WithRetainParams(s.RetainParams),
		WithPollInterval(s.PollInterval),
	}, opts...)

	return New(stream, store, merged...), store.Close
}
