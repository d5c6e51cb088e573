package patch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/cwbudde/algo-patchbay/audio"
)

func TestPatchbayReconcilesOnChange(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	osc := newSpy(ctx)

	bay := New()
	bay.SetConnections([]Connection{{Source: "osc-out", Target: DestinationID}})
	assert.Equal(t, 1, bay.Passes())

	bay.RegisterSource("osc-out", osc)
	assert.Equal(t, 2, bay.Passes())
	assert.False(t, osc.ConnectedTo(ctx.Destination()))

	bay.RegisterTarget(DestinationID, ctx.Destination())
	assert.Equal(t, 3, bay.Passes())
	assert.True(t, osc.ConnectedTo(ctx.Destination()))
	assert.Equal(t, 1, bay.LastReport().Connected)
}

func TestPatchbayBatchCoalesces(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)

	bay := New()
	bay.Batch(func() {
		bay.RegisterSource("a", a)
		bay.Batch(func() {
			bay.RegisterTarget("b", b)
			bay.RegisterParam("b-gain", b.Gain.Gain())
		})
		assert.Zero(t, bay.Passes())

		bay.SetConnections([]Connection{{Source: "a", Target: "b"}, {Source: "a", Target: "b-gain"}})
	})

	assert.Equal(t, 1, bay.Passes())
	assert.True(t, a.ConnectedTo(b))
	assert.True(t, a.ConnectedTo(b.Gain.Gain()))

	// A batch that changes nothing costs nothing.
	bay.Batch(func() {})
	assert.Equal(t, 1, bay.Passes())
}

func TestPatchbayUnregister(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)

	bay := New()
	bay.Batch(func() {
		bay.RegisterSource("a", a)
		bay.RegisterTarget("b", b)
		bay.SetConnections([]Connection{{Source: "a", Target: "b"}})
	})
	require.True(t, a.ConnectedTo(b))

	bay.Unregister("a", "missing")
	assert.False(t, a.ConnectedTo(b))
	assert.Equal(t, 2, bay.Passes())

	_, ok := bay.Registry().Lookup("a")
	assert.False(t, ok)

	// Nothing left to remove, no pass.
	bay.Unregister("a")
	assert.Equal(t, 2, bay.Passes())

	// Connections are left untouched for the editor to own.
	assert.Equal(t, []Connection{{Source: "a", Target: "b"}}, bay.Connections())
}

func TestPatchbayUnregisterLogsWiredSockets(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	ctx := audio.NewContext()
	a, b, c := newSpy(ctx), newSpy(ctx), newSpy(ctx)

	bay := New(WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	bay.Batch(func() {
		bay.RegisterSource("a", a)
		bay.RegisterTarget("b", b)
		bay.RegisterSource("c", c)
		bay.SetConnections([]Connection{{Source: "a", Target: "b"}})
	})

	bay.Unregister("a", "c")

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "unregistered socket is still wired"))
	assert.Contains(t, out, "socket=a role=source")

	// The edge now dangles and is skipped.
	assert.Equal(t, 1, bay.LastReport().Skipped)
}

func TestPatchbayConnectionsAreCopied(t *testing.T) {
	t.Parallel()

	bay := New()
	conns := []Connection{{Source: "a", Target: "b"}}
	bay.SetConnections(conns)

	conns[0].Source = "x"
	got := bay.Connections()
	got[0].Target = "y"

	assert.Equal(t, []Connection{{Source: "a", Target: "b"}}, bay.Connections())
}

func TestReconcilerMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)

	sockets := NewRegistry()
	sockets.Register("a", SourceSocket{Unit: a})
	sockets.Register("b", TargetSocket{Unit: b})
	sockets.Register("b-gain", ParamSocket{Param: b.Gain.Gain()})

	r := NewReconciler(WithMetrics(m))
	r.Reconcile(context.Background(), []Connection{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "ghost"},
		{Source: "b", Target: "a"},
	}, sockets)

	assert.InDelta(t, 1, testutil.ToFloat64(m.PassesTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectsTotal.WithLabelValues(resultOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DisconnectsTotal.WithLabelValues(resultSuppressed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SkippedPairsTotal.WithLabelValues(reasonUnresolved)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SkippedPairsTotal.WithLabelValues(reasonRole)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Sockets.WithLabelValues("param")), 0)

	n, err := testutil.GatherAndCount(reg, "patchbay_reconcile_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcilerTracing(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	r := NewReconciler(WithTracer(tp.Tracer("test")))
	r.Reconcile(context.Background(), []Connection{{Source: "a", Target: "b"}}, NewRegistry())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "patch.reconcile", spans[0].Name())

	attrs := map[string]int64{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}

	assert.Equal(t, int64(1), attrs["patch.connections"])
	assert.Equal(t, int64(1), attrs["patch.skipped"])
}

func TestReconcileIsAtomicAgainstRender(t *testing.T) {
	t.Parallel()

	const sources = 32

	ctx := audio.NewContext(audio.WithSampleRate(8000), audio.WithBlockSize(64))
	bay := New(WithGate(ctx))

	conns := make([]Connection, 0, sources)
	bay.Batch(func() {
		bay.RegisterTarget(DestinationID, ctx.Destination())
		for i := range sources {
			id := fmt.Sprintf("dc-%d", i)
			bay.RegisterSource(id, audio.NewConstantSource(ctx))
			conns = append(conns, Connection{Source: id, Target: DestinationID})
		}
		bay.SetConnections(conns)
	})
	require.Equal(t, sources, bay.LastReport().Connected)

	var (
		blocks  atomic.Int64
		partial atomic.Int64
		stop    = make(chan struct{})
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)

		buf := make([]float64, ctx.BlockSize())
		for {
			select {
			case <-stop:
				return
			default:
			}

			if err := ctx.Render(buf); err != nil {
				return
			}

			for _, x := range buf {
				if x != sources {
					partial.Add(1)
					break
				}
			}
			blocks.Add(1)
		}
	}()

	for range 300 {
		rep := bay.Reconcile()
		require.NoError(t, rep.Err())
		require.Equal(t, sources, rep.Connected)
	}

	for blocks.Load() == 0 {
		runtime.Gosched()
	}

	close(stop)
	<-done

	assert.Zero(t, partial.Load(), "blocks rendered with a partly rebuilt graph")
}
