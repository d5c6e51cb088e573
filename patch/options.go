package patch

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	gate    Gate
}

// Gate holds rendering off while fn runs. *audio.Context implements it.
type Gate interface {
	Update(fn func())
}

type openGate struct{}

func (openGate) Update(fn func()) { fn() }

// Option configures a Reconciler or a Patchbay.
type Option func(*options)

// WithLogger sets the logger for suppressed and failed wiring calls.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records every pass into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer wraps every pass in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithGate runs the teardown and rebuild of every pass inside g.Update, so a
// renderer sharing g never hears the graph half rebuilt.
func WithGate(g Gate) Option {
	return func(o *options) {
		if g != nil {
			o.gate = g
		}
	}
}

func applyOptions(opts ...Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: noop.NewTracerProvider().Tracer("patch"),
		gate:   openGate{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
