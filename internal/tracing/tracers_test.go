package tracing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"
)

func TestNewTracer(t *testing.T) {
	t.Setenv("JAEGER_SERVICE_NAME", "")

	tracer, closer, err := NewTracer(ServiceName)
	require.NoError(t, err)
	require.IsType(t, &jaeger.Tracer{}, tracer)

	span := tracer.StartSpan("test")
	span.Finish()

	require.NoError(t, closer.Close())
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Setenv("JAEGER_DISABLED", "true")

	tracer, closer, err := NewTracer(ServiceName)
	require.NoError(t, err)
	_, ok := tracer.(*jaeger.Tracer)
	require.False(t, ok)
	require.NoError(t, closer.Close())
}

func TestNewTracer_BadEnv(t *testing.T) {
	t.Setenv("JAEGER_SAMPLER_PARAM", "abc")

	_, _, err := NewTracer(ServiceName)
	require.Error(t, err)
	require.Contains(t, err.Error(), "error parsing jaeger configuration from environment: ")
}
