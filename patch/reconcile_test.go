package patch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-patchbay/audio"
)

func reconcile(conns []Connection, reg *Registry) Report {
	return NewReconciler().Reconcile(context.Background(), conns, reg)
}

func TestReconcileScenarios(t *testing.T) {
	t.Parallel()

	t.Run("source wired to target once", func(t *testing.T) {
		t.Parallel()

		ctx := audio.NewContext()
		a, b := newSpy(ctx), newSpy(ctx)

		reg := NewRegistry()
		reg.Register("A", SourceSocket{Unit: a})
		reg.Register("B", TargetSocket{Unit: b})

		rep := reconcile([]Connection{{Source: "A", Target: "B"}}, reg)

		require.NoError(t, rep.Err())
		assert.Equal(t, 1, rep.Connected)
		assert.True(t, a.ConnectedTo(b))
		assert.Equal(t, 1, a.NumOutputs())
		assert.Equal(t, 1, b.NumInputs())
	})

	t.Run("unknown target leaves source unwired", func(t *testing.T) {
		t.Parallel()

		ctx := audio.NewContext()
		a := newSpy(ctx)

		reg := NewRegistry()
		reg.Register("A", SourceSocket{Unit: a})

		rep := reconcile([]Connection{{Source: "A", Target: "Z"}}, reg)

		require.NoError(t, rep.Err())
		assert.Equal(t, 1, rep.Skipped)
		assert.Equal(t, 0, a.NumOutputs())
		assert.Empty(t, a.connects)
	})

	t.Run("duplicate edge yields a single connection", func(t *testing.T) {
		t.Parallel()

		ctx := audio.NewContext()
		a, b := newSpy(ctx), newSpy(ctx)

		reg := NewRegistry()
		reg.Register("A", SourceSocket{Unit: a})
		reg.Register("B", TargetSocket{Unit: b})

		rep := reconcile([]Connection{{Source: "A", Target: "B"}, {Source: "A", Target: "B"}}, reg)

		require.NoError(t, rep.Err())
		assert.Equal(t, 1, rep.Connected)
		// One for tearing down the unwired source, one for the repeat.
		assert.Equal(t, 2, rep.Suppressed)
		assert.True(t, a.ConnectedTo(b))
		assert.Equal(t, 1, a.NumOutputs())
	})
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b, c := newSpy(ctx), newSpy(ctx), newSpy(ctx)

	reg := NewRegistry()
	reg.Register("a-out", SourceSocket{Unit: a})
	reg.Register("b-in", TargetSocket{Unit: b})
	reg.Register("b-out", SourceSocket{Unit: b})
	reg.Register("c-in", TargetSocket{Unit: c})
	reg.Register("c-gain", ParamSocket{Param: c.Gain.Gain()})

	conns := []Connection{
		{Source: "a-out", Target: "b-in"},
		{Source: "b-out", Target: "c-in"},
		{Source: "a-out", Target: "c-gain"},
	}

	first := reconcile(conns, reg)
	second := reconcile(conns, reg)

	require.NoError(t, first.Err())
	require.NoError(t, second.Err())
	assert.Equal(t, first.Connected, second.Connected)

	assert.Equal(t, 2, a.NumOutputs())
	assert.True(t, a.ConnectedTo(b))
	assert.True(t, a.ConnectedTo(c.Gain.Gain()))
	assert.True(t, b.ConnectedTo(c))
	assert.Equal(t, 1, c.Gain.Gain().NumInputs())
}

func TestReconcileRemovesStaleWiring(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b, c := newSpy(ctx), newSpy(ctx), newSpy(ctx)

	reg := NewRegistry()
	reg.Register("a", SourceSocket{Unit: a})
	reg.Register("b", TargetSocket{Unit: b})
	reg.Register("c", TargetSocket{Unit: c})

	reconcile([]Connection{{Source: "a", Target: "b"}}, reg)
	require.True(t, a.ConnectedTo(b))

	// Edge endpoint dragged from b to c.
	reconcile([]Connection{{Source: "a", Target: "c"}}, reg)

	assert.False(t, a.ConnectedTo(b))
	assert.True(t, a.ConnectedTo(c))
}

func TestReconcileNeverDisconnectsTargetsOrParams(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	in, inner, out := newSpy(ctx), newSpy(ctx), newSpy(ctx)

	// A widget's private chain: in -> inner -> out. Only the ends are sockets.
	require.NoError(t, in.Gain.Connect(inner))
	require.NoError(t, inner.Gain.Connect(out))

	reg := NewRegistry()
	reg.Register("fx-in", TargetSocket{Unit: in})
	reg.Register("fx-level", ParamSocket{Param: in.Gain.Gain()})
	reg.Register("fx-out", SourceSocket{Unit: out})

	for range 3 {
		reconcile(nil, reg)
	}

	assert.Zero(t, in.disconnects)
	assert.Zero(t, inner.disconnects)
	assert.Equal(t, 3, out.disconnects)
	assert.True(t, in.ConnectedTo(inner))
	assert.True(t, inner.ConnectedTo(out))
}

func TestReconcileExcludesDestination(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	dest := newSpy(ctx)
	sink := newSpy(ctx)
	require.NoError(t, dest.Gain.Connect(sink))

	reg := NewRegistry()
	reg.Register(DestinationID, SourceSocket{Unit: dest})

	reconcile(nil, reg)
	reconcile(nil, reg)

	assert.Zero(t, dest.disconnects)
	assert.True(t, dest.ConnectedTo(sink))
}

func TestReconcileDanglingEdges(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)

	reg := NewRegistry()
	reg.Register("a", SourceSocket{Unit: a})
	reg.Register("b", TargetSocket{Unit: b})

	conns := []Connection{
		{Source: "", Target: "b"},
		{Source: "a", Target: ""},
		{Source: "ghost", Target: "b"},
		{Source: "a", Target: "ghost"},
	}

	rep := reconcile(conns, reg)

	require.NoError(t, rep.Err())
	assert.Equal(t, 4, rep.Skipped)
	assert.Zero(t, rep.Connected)
	assert.Empty(t, a.connects)
}

func TestReconcileRejectsWrongRoles(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)

	reg := NewRegistry()
	reg.Register("a-out", SourceSocket{Unit: a})
	reg.Register("b-in", TargetSocket{Unit: b})
	reg.Register("b-gain", ParamSocket{Param: b.Gain.Gain()})

	conns := []Connection{
		{Source: "b-in", Target: "a-out"},
		{Source: "b-gain", Target: "b-in"},
		{Source: "a-out", Target: "a-out"},
	}

	rep := reconcile(conns, reg)

	assert.Equal(t, 3, rep.Rejected)
	assert.Empty(t, a.connects)
	assert.Empty(t, b.connects)
}

func TestReconcilePreservesFeedback(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()

	d, err := audio.NewDelay(ctx, 1)
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register("d-out", SourceSocket{Unit: d})
	reg.Register("d-in", TargetSocket{Unit: d})
	reg.Register("d-time", ParamSocket{Param: d.DelayTime()})

	rep := reconcile([]Connection{
		{Source: "d-out", Target: "d-in"},
		{Source: "d-out", Target: "d-time"},
	}, reg)

	require.NoError(t, rep.Err())
	assert.Equal(t, 2, rep.Connected)
	assert.True(t, d.ConnectedTo(d))
	assert.True(t, d.ConnectedTo(d.DelayTime()))

	// The loop renders.
	require.NoError(t, ctx.Render(make([]float64, 512)))
}

func TestReconcileHotSwap(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	old, fresh, b := newSpy(ctx), newSpy(ctx), newSpy(ctx)

	reg := NewRegistry()
	reg.Register("osc-out", SourceSocket{Unit: old})
	reg.Register("b-in", TargetSocket{Unit: b})

	conns := []Connection{{Source: "osc-out", Target: "b-in"}}
	reconcile(conns, reg)
	require.True(t, old.ConnectedTo(b))

	// The widget tears the old unit down itself, then re-registers.
	require.NoError(t, old.Gain.Disconnect())
	old.connects = nil

	reg.Register("osc-out", SourceSocket{Unit: fresh})
	reconcile(conns, reg)

	assert.True(t, fresh.ConnectedTo(b))
	assert.False(t, old.ConnectedTo(b))
	assert.Empty(t, old.connects)
	assert.Equal(t, 1, b.NumInputs())
}

func TestReconcileFailuresDoNotAbortThePass(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	broken, ok, b := newSpy(ctx), newSpy(ctx), newSpy(ctx)
	boom := errors.New("boom")
	broken.connectErr = boom
	broken.disconnectErr = boom

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	reg := NewRegistry()
	reg.Register("a-broken", SourceSocket{Unit: broken})
	reg.Register("b-ok", SourceSocket{Unit: ok})
	reg.Register("c-in", TargetSocket{Unit: b})

	rep := NewReconciler(WithLogger(logger)).Reconcile(context.Background(), []Connection{
		{Source: "a-broken", Target: "c-in"},
		{Source: "b-ok", Target: "c-in"},
	}, reg)

	require.Len(t, rep.Failures, 2)
	assert.ErrorIs(t, rep.Err(), boom)
	assert.Equal(t, 1, ok.disconnects)
	assert.Equal(t, 1, rep.Connected)
	assert.True(t, ok.ConnectedTo(b))
	assert.Contains(t, logs.String(), "connect failed")
	assert.Contains(t, logs.String(), "disconnect failed")
}

func TestReconcileSuppressesBenignFailures(t *testing.T) {
	t.Parallel()

	ctx := audio.NewContext()
	a, b := newSpy(ctx), newSpy(ctx)
	a.disconnectErr = audio.ErrNotConnected
	a.connectErr = audio.ErrAlreadyConnected

	reg := NewRegistry()
	reg.Register("a", SourceSocket{Unit: a})
	reg.Register("b", TargetSocket{Unit: b})

	rep := reconcile([]Connection{{Source: "a", Target: "b"}}, reg)

	require.NoError(t, rep.Err())
	assert.Equal(t, 2, rep.Suppressed)
}
