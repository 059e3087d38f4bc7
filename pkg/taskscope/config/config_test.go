package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskscope/taskscope/pkg/taskscope/config"
)

func TestConfig_Accessors(t *testing.T) {
	c := config.New(map[string]any{
		"exchange":      "celery",
		"capacity":      5000,
		"capacity64":    int64(7000),
		"retain_params": false,
		"poll":          "250ms",
		"poll_seconds":  2,
		"bad_float":     1.5,
	})

	assert.Equal(t, "celery", c.String("exchange", "tasks"))
	assert.Equal(t, "tasks", c.String("missing", "tasks"))

	assert.Equal(t, 5000, c.Int("capacity", 1))
	assert.Equal(t, 7000, c.Int("capacity64", 1))
	assert.Equal(t, 1, c.Int("bad_float", 1))
	assert.Equal(t, 1, c.Int("exchange", 1))

	assert.False(t, c.Bool("retain_params", true))
	assert.True(t, c.Bool("missing", true))

	assert.Equal(t, 250*time.Millisecond, c.Duration("poll", time.Second))
	assert.Equal(t, 2*time.Second, c.Duration("poll_seconds", time.Second))
	assert.Equal(t, time.Second, c.Duration("missing", time.Second))

	assert.True(t, c.Has("exchange"))
	assert.False(t, c.Has("missing"))
}

func TestConfig_NilMap(t *testing.T) {
	c := config.New(nil)
	assert.Equal(t, "x", c.String("anything", "x"))
	assert.NotNil(t, c.Raw())
}

func TestFromYAML(t *testing.T) {
	c, err := config.FromYAML([]byte("exchange: celery\ncapacity: 500\npoll_interval: 2s\n"))
	require.NoError(t, err)

	s := config.SettingsFromConfig(c)
	assert.Equal(t, "celery", s.Exchange)
	assert.Equal(t, 500, s.Capacity)
	assert.Equal(t, 2*time.Second, s.PollInterval)
	// Result backend falls back to the broker address.
	assert.Equal(t, s.BrokerAddr, s.ResultAddr)
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte("exchange: [unclosed"))
	require.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	c, err := config.FromJSON([]byte(`{"exchange":"celery","capacity":500}`))
	require.NoError(t, err)
	assert.Equal(t, "celery", c.String("exchange", ""))
	// JSON numbers decode to float64; whole values still convert.
	assert.Equal(t, 500, c.Int("capacity", 0))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TASKSCOPE_BROKER_ADDR", "broker.internal:6379")
	t.Setenv("TASKSCOPE_EXCHANGE", "celery")
	t.Setenv("TASKSCOPE_RETAIN_PARAMS", "false")
	t.Setenv("TASKSCOPE_POLL_INTERVAL", "500ms")

	s, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "broker.internal:6379", s.BrokerAddr)
	assert.Equal(t, "celery", s.Exchange)
	assert.False(t, s.RetainParams)
	assert.Equal(t, 500*time.Millisecond, s.PollInterval)
	assert.Equal(t, 10000, s.Capacity)
	assert.Equal(t, "broker.internal:6379", s.ResultAddr)
}

func TestFromEnv_SeparateResultBackend(t *testing.T) {
	t.Setenv("TASKSCOPE_BROKER_ADDR", "broker:6379")
	t.Setenv("TASKSCOPE_RESULT_ADDR", "results:6380")

	s, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "results:6380", s.ResultAddr)
}
