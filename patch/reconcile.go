package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cwbudde/algo-patchbay/audio"
)

// Report summarises one reconciliation pass.
type Report struct {
	Disconnected int
	Connected    int
	// Skipped counts pairs with a dangling or unregistered end.
	Skipped int
	// Rejected counts pairs whose ends hold the wrong roles.
	Rejected int
	// Suppressed counts benign wiring failures that were discarded.
	Suppressed int
	// Failures holds every other wiring failure. None of them abort the pass.
	Failures []error
	Duration time.Duration

	connectSuppressed    int
	connectFailed        int
	disconnectSuppressed int
	disconnectFailed     int
}

// Err joins the failures of the pass, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Failures...)
}

// Reconciler brings the live graph into line with a connection list.
//
// A pass resolves every pair against the registry, disconnects every source
// unit except the one under DestinationID, then connects each resolved pair.
// Target and param units are never disconnected, so wiring a widget keeps
// between its own units is left alone. Running a pass twice with the same
// inputs yields the same live graph. With WithGate, teardown and rebuild
// happen as one step with respect to rendering.
type Reconciler struct {
	opts options
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts ...Option) *Reconciler {
	return &Reconciler{opts: applyOptions(opts...)}
}

type wire struct {
	conn Connection
	from audio.Output
	to   audio.Input
}

// Reconcile runs one pass. It never panics on a wiring failure and never
// stops early; failures are collected in the report.
func (r *Reconciler) Reconcile(ctx context.Context, conns []Connection, reg *Registry) Report {
	start := time.Now()

	_, span := r.opts.tracer.Start(ctx, "patch.reconcile", trace.WithAttributes(
		attribute.Int("patch.connections", len(conns)),
		attribute.Int("patch.sockets", reg.Len()),
	))
	defer span.End()

	var rep Report

	wires := r.resolve(conns, reg, &rep)
	r.opts.gate.Update(func() {
		r.teardown(reg, &rep)
		r.rebuild(wires, &rep)
	})

	rep.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("patch.connected", rep.Connected),
		attribute.Int("patch.disconnected", rep.Disconnected),
		attribute.Int("patch.skipped", rep.Skipped+rep.Rejected),
	)

	if err := rep.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	r.opts.metrics.observe(rep, reg.CountByRole())

	r.opts.logger.Debug("reconciled",
		slog.Int("connections", len(conns)),
		slog.Int("connected", rep.Connected),
		slog.Int("disconnected", rep.Disconnected),
		slog.Int("skipped", rep.Skipped),
		slog.Int("rejected", rep.Rejected),
		slog.Int("suppressed", rep.Suppressed),
		slog.Int("failed", len(rep.Failures)),
		slog.Duration("took", rep.Duration),
	)

	return rep
}

// resolve looks up both ends of every pair before anything is torn down, so
// pairs naming removed sockets are dropped up front.
func (r *Reconciler) resolve(conns []Connection, reg *Registry, rep *Report) []wire {
	wires := make([]wire, 0, len(conns))

	for _, c := range conns {
		if c.Dangling() {
			rep.Skipped++
			continue
		}

		src, ok := reg.Lookup(c.Source)
		if !ok {
			rep.Skipped++
			continue
		}

		dst, ok := reg.Lookup(c.Target)
		if !ok {
			rep.Skipped++
			continue
		}

		from, ok := src.(SourceSocket)
		if !ok || from.Unit == nil {
			rep.Rejected++
			r.opts.logger.Debug("source end cannot send",
				slog.String("source", c.Source), slog.String("role", src.Role().String()))

			continue
		}

		to := sink(dst)
		if to == nil {
			rep.Rejected++
			r.opts.logger.Debug("target end cannot receive",
				slog.String("target", c.Target), slog.String("role", dst.Role().String()))

			continue
		}

		wires = append(wires, wire{conn: c, from: from.Unit, to: to})
	}

	return wires
}

func (r *Reconciler) teardown(reg *Registry, rep *Report) {
	reg.Each(func(id string, s Socket) {
		if id == DestinationID {
			return
		}

		src, ok := s.(SourceSocket)
		if !ok || src.Unit == nil {
			return
		}

		err := src.Unit.Disconnect()

		switch {
		case err == nil:
			rep.Disconnected++
		case audio.IsBenign(err):
			rep.Suppressed++
			rep.disconnectSuppressed++
		default:
			rep.disconnectFailed++
			rep.Failures = append(rep.Failures, fmt.Errorf("patch: disconnect %q: %w", id, err))
			r.opts.logger.Warn("disconnect failed", slog.String("socket", id), slog.Any("error", err))
		}
	})
}

func (r *Reconciler) rebuild(wires []wire, rep *Report) {
	for _, w := range wires {
		err := w.from.Connect(w.to)

		switch {
		case err == nil:
			rep.Connected++
		case audio.IsBenign(err):
			rep.Suppressed++
			rep.connectSuppressed++
		default:
			rep.connectFailed++
			rep.Failures = append(rep.Failures,
				fmt.Errorf("patch: connect %q -> %q: %w", w.conn.Source, w.conn.Target, err))
			r.opts.logger.Warn("connect failed",
				slog.String("source", w.conn.Source),
				slog.String("target", w.conn.Target),
				slog.Any("error", err))
		}
	}
}
