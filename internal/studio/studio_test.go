package studio

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-patchbay/internal/testutil"
	"github.com/cwbudde/algo-patchbay/patch"
	"github.com/cwbudde/algo-patchbay/snapshot"
	"github.com/cwbudde/algo-patchbay/widget"
)

const demo = `{
  "edgeType": "default",
  "flow": {
    "nodes": [
      {"id": "osc", "type": "oscillator", "position": {"x": 0, "y": 0}, "data": {"type": "square", "frequency": 220}},
      {"id": "amp", "type": "gain", "position": {"x": 200, "y": 0}, "data": {"gain": 0.5}},
      {"id": "scope", "type": "analyser", "position": {"x": 400, "y": 100}, "data": {"fftSize": 512}},
      {"id": "speaker", "type": "output", "position": {"x": 400, "y": 0}}
    ],
    "edges": [
      {"id": "e1", "source": "osc", "target": "amp", "sourceHandle": "osc-out", "targetHandle": "amp-in"},
      {"id": "e2", "source": "amp", "target": "speaker", "sourceHandle": "amp-out", "targetHandle": "destination"},
      {"id": "e3", "source": "amp", "target": "scope", "sourceHandle": "amp-out", "targetHandle": "scope-in"}
    ],
    "viewport": {"x": 0, "y": 0, "zoom": 1}
  }
}`

func loaded(t *testing.T) (*Studio, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer

	s := New(Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.LoadReader(strings.NewReader(demo)))

	return s, &logs
}

func energy(t *testing.T, s *Studio, n int) float64 {
	t.Helper()

	return testutil.RenderEnergy(t, s, n)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	s, logs := loaded(t)

	assert.Equal(t, []string{"osc", "amp", "scope", "speaker"}, s.Nodes())
	assert.Equal(t, 1, s.Patchbay().Passes())
	assert.Equal(t, 3, s.Report().Connected)
	assert.Contains(t, s.Sockets(), patch.DestinationID)
	assert.Contains(t, logs.String(), "snapshot loaded")

	// Square wave at 0.5 gain.
	assert.InDelta(t, 0.25*1024, energy(t, s, 1024), 1)

	a, err := s.Analyser("scope")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a.Peak(), 1e-9)

	spectrum, err := s.Spectrum("scope")
	require.NoError(t, err)
	assert.Len(t, spectrum, 257)
}

func TestLoadRejectsAndKeepsGraph(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing flow":      `{"edgeType": "default"}`,
		"unknown node type": `{"edgeType": "default", "flow": {"nodes": [{"id": "x", "type": "theremin"}]}}`,
		"bad widget params": `{"edgeType": "default", "flow": {"nodes": [{"id": "x", "type": "filter", "data": {"type": "wobble"}}]}}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, logs := loaded(t)
			sockets := s.Sockets()
			passes := s.Patchbay().Passes()

			err := s.LoadReader(strings.NewReader(raw))
			require.ErrorIs(t, err, snapshot.ErrMalformed)

			assert.Equal(t, sockets, s.Sockets())
			assert.Equal(t, passes, s.Patchbay().Passes())
			assert.Equal(t, []string{"osc", "amp", "scope", "speaker"}, s.Nodes())
			assert.Contains(t, logs.String(), "snapshot rejected")
		})
	}

	s, _ := loaded(t)
	err := s.LoadReader(strings.NewReader(cases["unknown node type"]))
	require.ErrorIs(t, err, widget.ErrUnknownType)
}

func TestReloadReplacesEverything(t *testing.T) {
	t.Parallel()

	s, _ := loaded(t)

	doc := snapshot.New()
	doc.Flow.Nodes = []snapshot.Node{{ID: "hiss", Type: "noise"}, {ID: "out", Type: "output"}}
	doc.Flow.Edges = []snapshot.Edge{{ID: "e", Source: "hiss", Target: "out", SourceHandle: ptr("hiss-out"), TargetHandle: ptr("destination")}}

	require.NoError(t, s.Load(doc))

	assert.Equal(t, []string{"destination", "hiss-out"}, s.Sockets())
	assert.Equal(t, 2, s.Patchbay().Passes())
	assert.Greater(t, energy(t, s, 512), 10.0)
}

func TestEditing(t *testing.T) {
	t.Parallel()

	s, _ := loaded(t)

	id, err := s.AddNode(snapshot.Node{Type: "delay", Position: snapshot.Position{X: 5}})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Contains(t, s.Sockets(), widget.SocketID(id, widget.PortIn))

	_, err = s.AddNode(snapshot.Node{ID: "osc", Type: "noise"})
	require.ErrorIs(t, err, ErrDuplicateNode)

	_, err = s.AddNode(snapshot.Node{Type: "theremin"})
	require.ErrorIs(t, err, widget.ErrUnknownType)

	require.NoError(t, s.SetParam("amp", "gain", 0.25))
	require.ErrorIs(t, s.SetParam("amp", "q", 1), widget.ErrUnknownParam)
	require.ErrorIs(t, s.SetParam("nope", "gain", 1), ErrUnknownNode)
	require.NoError(t, s.MoveNode("amp", snapshot.Position{X: 10, Y: 20}))

	require.NoError(t, s.RemoveNode("amp"))
	require.ErrorIs(t, s.RemoveNode("amp"), ErrUnknownNode)
	assert.NotContains(t, s.Sockets(), "amp-in")

	doc := s.Snapshot()
	assert.Empty(t, doc.Flow.Edges)
	assert.InDelta(t, 0.0, energy(t, s, 256), 1e-12)

	_, err = s.Analyser("osc")
	require.ErrorIs(t, err, ErrNotAnalyser)

	_, err = s.Spectrum("gone")
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := loaded(t)

	want, err := snapshot.Decode(strings.NewReader(demo))
	require.NoError(t, err)
	assert.Equal(t, want, s.Snapshot())

	s.SetEdges([]snapshot.Edge{want.Flow.Edges[0]})
	s.SetView(snapshot.EdgeStep, snapshot.Viewport{Zoom: 2})
	require.NoError(t, s.SetParam("osc", "type", "sawtooth"))

	doc := s.Snapshot()
	assert.Equal(t, snapshot.EdgeStep, doc.EdgeType)
	assert.Len(t, doc.Flow.Edges, 1)
	assert.Equal(t, "sawtooth", doc.Flow.Nodes[0].Data["type"])
	require.NoError(t, snapshot.Validate(doc))

	// Nothing reaches the speaker any more.
	assert.InDelta(t, 0.0, energy(t, s, 256), 1e-12)
}

func TestRun(t *testing.T) {
	t.Parallel()

	s, _ := loaded(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	blocks := 0
	err := s.Run(ctx, func(block []float64) {
		assert.Len(t, block, 128)
		blocks++
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, blocks)
}

func ptr(s string) *string {
	return &s
}

func TestEditsNeverSilenceAnUnchangedPatch(t *testing.T) {
	t.Parallel()

	const doc = `{
  "edgeType": "default",
  "flow": {
    "nodes": [
      {"id": "dc", "type": "constant", "position": {"x": 0, "y": 0}, "data": {"offset": 1}},
      {"id": "speaker", "type": "output", "position": {"x": 200, "y": 0}}
    ],
    "edges": [
      {"id": "e1", "source": "dc", "target": "speaker", "sourceHandle": "dc-out", "targetHandle": "destination"}
    ]
  }
}`

	s := New(Options{BlockSize: 32})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.LoadReader(strings.NewReader(doc)))

	edges := s.Snapshot().Flow.Edges

	var (
		blocks, silent atomic.Int64
		stop           = make(chan struct{})
		done           = make(chan struct{})
	)

	go func() {
		defer close(done)

		buf := make([]float64, 32)
		for {
			select {
			case <-stop:
				return
			default:
			}

			if s.Render(buf) != nil {
				return
			}

			if testutil.Peak(buf) < 1 || buf[0] != 1 {
				silent.Add(1)
			}
			blocks.Add(1)
		}
	}()

	for range 200 {
		s.SetEdges(edges)
	}

	for blocks.Load() == 0 {
		runtime.Gosched()
	}

	close(stop)
	<-done

	assert.Zero(t, silent.Load())
	assert.Equal(t, 1, s.Report().Connected)
}
