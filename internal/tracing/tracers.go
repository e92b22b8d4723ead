// Package tracing builds the jaeger tracers that report the spans of the
// control requests.
package tracing

import (
	"io"

	opentracing "github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"golang.org/x/xerrors"
)

// ServiceName is the name the daemon reports its spans under.
const ServiceName = "bmproxy"

// NewTracer returns a tracer for the service configured from the JAEGER_*
// environment variables, and the closer that flushes the pending spans.
func NewTracer(service string) (opentracing.Tracer, io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, nil, xerrors.Errorf("error parsing jaeger configuration from environment: %v", err)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = service
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, xerrors.Errorf("error creating new tracer: %v", err)
	}

	return tracer, closer, nil
}
