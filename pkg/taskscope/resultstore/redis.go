package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	tserrors "github.com/taskscope/taskscope/pkg/taskscope/errors"
)

// DefaultKeyPrefix is the key prefix Celery-compatible result backends use
// for task metadata.
const DefaultKeyPrefix = "celery-task-meta-"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string

	// DB is the Redis database number.
	DB int

	// Password, if the server requires one.
	Password string

	// KeyPrefix overrides DefaultKeyPrefix.
	KeyPrefix string
}

// RedisStore reads task outcomes from a Celery-compatible Redis result
// backend. It is safe for concurrent use.
type RedisStore struct {
	client *redis.Client
	addr   string
	prefix string
}

// NewRedisStore connects a store to the given Redis backend. The connection
// is lazy; failures surface as transport errors from GetOutcome.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			DB:       cfg.DB,
			Password: cfg.Password,
		}),
		addr:   cfg.Addr,
		prefix: prefix,
	}
}

// resultMeta is the backend's stored record for one task.
type resultMeta struct {
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	Traceback string          `json:"traceback"`
}

// excInfo is the structured form Result takes for failed tasks.
type excInfo struct {
	ExcType    string   `json:"exc_type"`
	ExcMessage []string `json:"exc_message"`
}

// GetOutcome implements Store. A missing key or a transient backend status
// both answer NotReady; only reachability and decoding problems return an
// error.
func (s *RedisStore) GetOutcome(ctx context.Context, id string) (Outcome, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return NotReady, nil
	}
	if err != nil {
		return NotReady, &tserrors.TransportError{Op: "get-outcome", Addr: s.addr, Err: err}
	}

	var meta resultMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return NotReady, &tserrors.DecodeError{Subject: "result meta", Err: err}
	}

	switch meta.Status {
	case "SUCCESS":
		return Outcome{Status: StatusSuccess, Value: meta.Result}, nil
	case "FAILURE":
		return Outcome{
			Status:    StatusFailure,
			Error:     describeException(meta.Result),
			Traceback: meta.Traceback,
		}, nil
	case "REVOKED":
		return Outcome{Status: StatusRevoked, Reason: describeException(meta.Result)}, nil
	default:
		// PENDING, RECEIVED, STARTED, RETRY: the task is still in flight.
		return NotReady, nil
	}
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// describeException turns the backend's stored exception record into a
// one-line description. Backends differ in how they serialize it, so this
// degrades from structured form to plain string to raw JSON.
func describeException(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var info excInfo
	if err := json.Unmarshal(raw, &info); err == nil && info.ExcType != "" {
		if len(info.ExcMessage) > 0 {
			return fmt.Sprintf("%s: %s", info.ExcType, strings.Join(info.ExcMessage, " "))
		}
		return info.ExcType
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	return string(raw)
}
