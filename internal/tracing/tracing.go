// Package tracing sets up the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of patchbay spans.
const TracerName = "github.com/cwbudde/algo-patchbay"

// Provider is a tracer provider with its shutdown hook.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// Tracer returns the patchbay tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(TracerName)
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Shutdown flushes and stops the exporter, if any.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}

	return p.shutdown(ctx)
}

// New builds a provider. A disabled provider, or exporter "none", records
// nothing; "stdout" writes pretty-printed spans to w.
func New(enabled bool, exporter string, w io.Writer) (*Provider, error) {
	if !enabled || exporter == "" || exporter == "none" {
		return &Provider{tp: noop.NewTracerProvider()}, nil
	}

	if exporter != "stdout" {
		return nil, fmt.Errorf("tracing: unknown exporter %q", exporter)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}
