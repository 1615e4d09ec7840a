package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "testsvc", Version: "v9.9.9"})

	logger := WithComponent("unit")
	logger.Info().Str(FieldEvent, "test.event").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "testsvc", entry["service"])
	assert.Equal(t, "v9.9.9", entry["version"])
	assert.Equal(t, "unit", entry["component"])
	assert.Equal(t, "test.event", entry["event"])
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "testsvc"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")
	ctx = ContextWithJobID(ctx, "job-1")

	logger := WithComponentFromContext(ctx, "unit")
	logger.Info().Msg("correlated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "sess-1", entry[FieldSessionID])
	assert.Equal(t, "job-1", entry[FieldJobID])
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "testsvc"})

	l := WithContext(context.Background(), Base())
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasRequestID := entry[FieldRequestID]
	assert.False(t, hasRequestID)
}
