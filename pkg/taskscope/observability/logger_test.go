package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichLoggerCarriesSessionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	enriched := EnrichLogger(logger, "sess-1", "orders.#")
	LogCaptureStart(enriched)
	LogCaptureStop(enriched, 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var start map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	assert.Equal(t, "capture session starting", start["msg"])
	assert.Equal(t, "sess-1", start["session_id"])
	assert.Equal(t, "orders.#", start["filter"])

	var stop map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &stop))
	assert.Equal(t, "sess-1", stop["session_id"])
	assert.Equal(t, float64(3), stop["tasks_tracked"])

	// The fields come from the enriched logger, not the helper: each key
	// appears once per record.
	assert.Equal(t, 1, strings.Count(lines[0], `"session_id"`))
	assert.Equal(t, 1, strings.Count(lines[0], `"filter"`))
}

func TestLogHelpersNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogCaptureStart(nil)
		LogCaptureStop(nil, 0)
		LogTaskCaptured(nil, "t1", "a", "a.1")
		LogTaskCompleted(nil, "t1", "SUCCESS", 1.5)
		LogEnvelopeSkipped(nil, "a.1", assert.AnError)
		LogStoreError(nil, "t1", assert.AnError)
		LogFetchDone(nil, 1, 0, 2.5)
	})
	assert.Nil(t, EnrichLogger(nil, "sess-1", "#"))
}
