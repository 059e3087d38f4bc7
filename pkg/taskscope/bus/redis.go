package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	tserrors "github.com/taskscope/taskscope/pkg/taskscope/errors"
)

// channelSeparator joins the exchange name and the routing key into a
// pub/sub channel name. It is not the routing-key token delimiter, so keys
// containing dots round-trip unambiguously.
const channelSeparator = "/"

// RedisConfig configures a RedisBus.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string

	// DB is the Redis database number.
	DB int

	// Password, if the server requires one.
	Password string

	// Exchange is the logical exchange name; dispatch events are published
	// on channels named "<exchange>/<routing-key>".
	Exchange string

	// Buffer is the delivery channel buffer per subscription.
	// Zero uses DefaultBuffer.
	Buffer int

	// Logger receives subscription lifecycle logs. Nil disables logging.
	Logger *slog.Logger
}

// RedisBus is a Stream over Redis pub/sub. Each Subscribe opens its own
// pattern subscription covering the whole exchange, torn down when the
// subscriber's context ends, so capture sessions never share or inherit
// bindings. Reconnection after broker hiccups is handled by the client;
// delivery pauses instead of failing.
type RedisBus struct {
	client   *redis.Client
	addr     string
	exchange string
	buffer   int
	logger   *slog.Logger
}

// NewRedisBus creates a bus over the given Redis broker.
func NewRedisBus(cfg RedisConfig) *RedisBus {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &RedisBus{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			DB:       cfg.DB,
			Password: cfg.Password,
		}),
		addr:     cfg.Addr,
		exchange: cfg.Exchange,
		buffer:   buffer,
		logger:   cfg.Logger,
	}
}

// Subscribe implements Stream. It confirms the pattern subscription with
// the broker before returning, so a transport problem surfaces here rather
// than as silence.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	pattern := b.exchange + channelSeparator + "*"
	ps := b.client.PSubscribe(ctx, pattern)

	// Receive forces the SUBSCRIBE round trip.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, &tserrors.TransportError{Op: "subscribe", Addr: b.addr, Err: err}
	}

	if b.logger != nil {
		b.logger.Debug("bus subscription opened",
			slog.String("pattern", pattern),
			slog.String("addr", b.addr),
		)
	}

	out := make(chan Envelope, b.buffer)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer func() {
			_ = ps.Close()
			if b.logger != nil {
				b.logger.Debug("bus subscription closed", slog.String("pattern", pattern))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- b.decode(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// decode turns a pub/sub message into an envelope. Decoding failures are
// carried in the envelope rather than dropped here, so the consumer can
// count and log them.
func (b *RedisBus) decode(msg *redis.Message) Envelope {
	routingKey := strings.TrimPrefix(msg.Channel, b.exchange+channelSeparator)
	raw := []byte(msg.Payload)

	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{
			RoutingKey: routingKey,
			Raw:        raw,
			Err:        &tserrors.DecodeError{Subject: "envelope", Err: err},
		}
	}
	if wire.ID == "" {
		return Envelope{
			RoutingKey: routingKey,
			Raw:        raw,
			Err:        &tserrors.DecodeError{Subject: "envelope", Err: errMissingID},
		}
	}

	return Envelope{
		ID:         wire.ID,
		Name:       wire.Task,
		RoutingKey: routingKey,
		Args:       wire.Args,
		Kwargs:     wire.Kwargs,
		Retries:    wire.Retries,
		Raw:        raw,
	}
}

// Publish sends a dispatch event under the given routing key. The observer
// itself never publishes; this exists for producers and tests that share
// the wire format.
func (b *RedisBus) Publish(ctx context.Context, routingKey string, env Envelope) error {
	payload, err := json.Marshal(wireMessage{
		ID:      env.ID,
		Task:    env.Name,
		Args:    env.Args,
		Kwargs:  env.Kwargs,
		Retries: env.Retries,
	})
	if err != nil {
		return &tserrors.DecodeError{Subject: "envelope", Err: err}
	}

	channel := b.exchange + channelSeparator + routingKey
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return &tserrors.TransportError{Op: "publish", Addr: b.addr, Err: err}
	}
	return nil
}

// Close implements Stream.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
