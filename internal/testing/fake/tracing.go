package fake

import (
	"io"

	opentracing "github.com/opentracing/opentracing-go"
)

// NewTracerWithError is used to mock `tracing.NewTracer` with an error.
func NewTracerWithError(string) (opentracing.Tracer, io.Closer, error) {
	return nil, nil, fakeErr
}

// NewTracerEmpty is used to mock `tracing.NewTracer` with an empty tracer.
func NewTracerEmpty(string) (opentracing.Tracer, io.Closer, error) {
	return opentracing.NoopTracer{}, io.NopCloser(nil), nil
}
