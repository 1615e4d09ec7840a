package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: "grpc",
	})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestFeedbackAttributesSkipsEmpty(t *testing.T) {
	attrs := FeedbackAttributes("team", "")
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.String(FeedbackTypeKey, "team"), attrs[0])

	attrs = FeedbackAttributes("coordinator", "sess-1")
	assert.Len(t, attrs, 2)
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("timeout")
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Bool(ErrorKey, true), attrs[0])
	assert.Equal(t, attribute.String(ErrorTypeKey, "timeout"), attrs[1])
}
