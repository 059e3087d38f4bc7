package resultstore_test

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tserrors "github.com/taskscope/taskscope/pkg/taskscope/errors"
	"github.com/taskscope/taskscope/pkg/taskscope/resultstore"
)

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *resultstore.RedisStore) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	store := resultstore.NewRedisStore(resultstore.RedisConfig{Addr: s.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return s, store
}

func TestRedisStore_MissingKeyIsNotReady(t *testing.T) {
	_, store := newRedisStore(t)

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusNotReady, oc.Status)
	assert.False(t, oc.Ready())
}

func TestRedisStore_TransientStatusIsNotReady(t *testing.T) {
	s, store := newRedisStore(t)
	require.NoError(t, s.Set("celery-task-meta-t1", `{"status":"STARTED","result":null}`))

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusNotReady, oc.Status)
}

func TestRedisStore_Success(t *testing.T) {
	s, store := newRedisStore(t)
	require.NoError(t, s.Set("celery-task-meta-t1", `{"status":"SUCCESS","result":{"order_id":42}}`))

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusSuccess, oc.Status)
	assert.JSONEq(t, `{"order_id":42}`, string(oc.Value))
}

func TestRedisStore_FailureDecodesException(t *testing.T) {
	s, store := newRedisStore(t)
	meta := `{"status":"FAILURE","result":{"exc_type":"ValueError","exc_message":["invalid order"]},"traceback":"Traceback (most recent call last): ..."}`
	require.NoError(t, s.Set("celery-task-meta-t1", meta))

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusFailure, oc.Status)
	assert.Equal(t, "ValueError: invalid order", oc.Error)
	assert.Contains(t, oc.Traceback, "Traceback")
}

func TestRedisStore_FailureWithPlainStringResult(t *testing.T) {
	s, store := newRedisStore(t)
	require.NoError(t, s.Set("celery-task-meta-t1", `{"status":"FAILURE","result":"boom"}`))

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "boom", oc.Error)
}

func TestRedisStore_RevokedCarriesReasonOnly(t *testing.T) {
	s, store := newRedisStore(t)
	meta := `{"status":"REVOKED","result":{"exc_type":"TaskRevokedError","exc_message":["terminated"]}}`
	require.NoError(t, s.Set("celery-task-meta-t1", meta))

	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusRevoked, oc.Status)
	assert.Equal(t, "TaskRevokedError: terminated", oc.Reason)
	assert.Empty(t, oc.Traceback)
}

func TestRedisStore_CorruptMetaIsDecodeError(t *testing.T) {
	s, store := newRedisStore(t)
	require.NoError(t, s.Set("celery-task-meta-t1", `{not json`))

	_, err := store.GetOutcome(context.Background(), "t1")
	require.Error(t, err)

	var decodeErr *tserrors.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.False(t, tserrors.IsRetryable(err))
}

func TestRedisStore_UnreachableIsTransportError(t *testing.T) {
	s, store := newRedisStore(t)
	s.Close()

	_, err := store.GetOutcome(context.Background(), "t1")
	require.Error(t, err)

	var transportErr *tserrors.TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.True(t, tserrors.IsRetryable(err))
}

func TestRedisStore_CustomKeyPrefix(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	store := resultstore.NewRedisStore(resultstore.RedisConfig{Addr: s.Addr(), KeyPrefix: "outcome:"})
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, s.Set("outcome:t1", `{"status":"SUCCESS","result":1}`))
	oc, err := store.GetOutcome(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, resultstore.StatusSuccess, oc.Status)
}
