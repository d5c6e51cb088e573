// Package studio is the editor root: it owns the audio context, the
// patchbay and the mounted node widgets, and applies the operations a visual
// editor issues to all three.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/internal/logging"
	"github.com/cwbudde/algo-patchbay/patch"
	"github.com/cwbudde/algo-patchbay/snapshot"
	"github.com/cwbudde/algo-patchbay/widget"
)

var (
	// ErrUnknownNode is returned for a node id the studio does not hold.
	ErrUnknownNode = errors.New("studio: unknown node")
	// ErrDuplicateNode is returned when adding a node under an id in use.
	ErrDuplicateNode = errors.New("studio: duplicate node id")
	// ErrNotAnalyser is returned when reading a meter from another node type.
	ErrNotAnalyser = errors.New("studio: node is not an analyser")
)

// Options configures a Studio. Zero values select defaults.
type Options struct {
	SampleRate float64
	BlockSize  int
	Logger     *slog.Logger
	Metrics    *patch.Metrics
	Tracer     trace.Tracer
	Widgets    *widget.Registry
	Devices    audio.DeviceOpener
}

type node struct {
	pos    snapshot.Position
	widget widget.Widget
}

// Studio holds one live patch.
type Studio struct {
	mu sync.Mutex

	ctx     *audio.Context
	bay     *patch.Patchbay
	widgets *widget.Registry
	logger  *slog.Logger
	devices audio.DeviceOpener

	edgeType snapshot.EdgeType
	order    []string
	nodes    map[string]*node
	edges    []snapshot.Edge
	viewport snapshot.Viewport
}

// New creates an empty studio.
func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var audioOpts []audio.Option
	if opts.SampleRate > 0 {
		audioOpts = append(audioOpts, audio.WithSampleRate(opts.SampleRate))
	}

	if opts.BlockSize > 0 {
		audioOpts = append(audioOpts, audio.WithBlockSize(opts.BlockSize))
	}

	widgets := opts.Widgets
	if widgets == nil {
		widgets = widget.DefaultRegistry()
	}

	ctx := audio.NewContext(audioOpts...)

	return &Studio{
		ctx: ctx,
		bay: patch.New(
			patch.WithLogger(logger),
			patch.WithMetrics(opts.Metrics),
			patch.WithTracer(opts.Tracer),
			patch.WithGate(ctx),
		),
		widgets:  widgets,
		logger:   logger,
		devices:  opts.Devices,
		edgeType: snapshot.EdgeDefault,
		nodes:    map[string]*node{},
		viewport: snapshot.Viewport{Zoom: 1},
	}
}

// Context returns the audio context.
func (s *Studio) Context() *audio.Context {
	return s.ctx
}

// Patchbay returns the patchbay.
func (s *Studio) Patchbay() *patch.Patchbay {
	return s.bay
}

func (s *Studio) env() widget.Env {
	return widget.Env{Audio: s.ctx, Sockets: s.bay, Logger: s.logger, Devices: s.devices}
}

// LoadReader decodes a JSON snapshot and loads it.
func (s *Studio) LoadReader(r io.Reader) error {
	doc, err := snapshot.Decode(r)
	if err != nil {
		s.logger.Error("snapshot rejected", slog.Any("error", err))
		return err
	}

	return s.Load(doc)
}

// Load replaces the live patch with doc. A document that fails validation,
// or holds a node no widget can be built for, is rejected with the live
// graph left as it was. Otherwise every widget is remounted inside one
// batch, so the whole load costs a single reconciliation pass.
func (s *Studio) Load(doc *snapshot.Document) error {
	err := snapshot.Validate(doc)
	if err != nil {
		s.logger.Error("snapshot rejected", slog.Any("error", err))
		return err
	}

	built := make([]widget.Widget, 0, len(doc.Flow.Nodes))

	for _, n := range doc.Flow.Nodes {
		w, err := s.widgets.Build(widget.ParseParams(n.ID, n.Type, n.Data))
		if err != nil {
			s.logger.Error("snapshot rejected", slog.String("node", n.ID), slog.Any("error", err))
			return fmt.Errorf("%w: %w", snapshot.ErrMalformed, err)
		}

		built = append(built, w)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bay.Batch(func() {
		for _, id := range s.order {
			s.nodes[id].widget.Unmount()
		}

		s.order = s.order[:0]
		clear(s.nodes)

		for i, w := range built {
			err := w.Mount(s.env())
			if err != nil {
				s.logger.Error("mount node", slog.String("node", w.ID()), slog.Any("error", err))
				continue
			}

			s.order = append(s.order, w.ID())
			s.nodes[w.ID()] = &node{pos: doc.Flow.Nodes[i].Position, widget: w}
		}

		s.edgeType = doc.EdgeType
		s.viewport = doc.Flow.Viewport
		s.edges = slices.Clone(doc.Flow.Edges)
		s.bay.SetConnections(doc.Connections())
	})

	s.logger.Info("snapshot loaded",
		slog.Int("nodes", len(s.order)),
		slog.Int("edges", len(s.edges)),
		slog.Int("sockets", s.bay.Registry().Len()))

	return nil
}

// AddNode mounts a new node. An empty id is replaced by a fresh one, which
// is returned.
func (s *Studio) AddNode(n snapshot.Node) (string, error) {
	if n.ID == "" {
		n.ID = snapshot.NewNodeID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return "", fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
	}

	w, err := s.widgets.Build(widget.ParseParams(n.ID, n.Type, n.Data))
	if err != nil {
		return "", err
	}

	err = w.Mount(s.env())
	if err != nil {
		return "", fmt.Errorf("studio: mount %s %q: %w", n.Type, n.ID, err)
	}

	s.order = append(s.order, n.ID)
	s.nodes[n.ID] = &node{pos: n.Position, widget: w}

	return n.ID, nil
}

// RemoveNode unmounts a node and drops the edges attached to it.
func (s *Studio) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	s.bay.Batch(func() {
		n.widget.Unmount()

		delete(s.nodes, id)
		s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })

		kept := s.edges[:0]
		for _, e := range s.edges {
			if e.Source != id && e.Target != id {
				kept = append(kept, e)
			}
		}

		s.edges = kept
		s.bay.SetConnections(patch.Connections(snapshot.PatchEdges(s.edges)))
	})

	return nil
}

// MoveNode records a node's new canvas position.
func (s *Studio) MoveNode(id string, pos snapshot.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	n.pos = pos

	return nil
}

// SetEdges replaces the edge set and rewires.
func (s *Studio) SetEdges(edges []snapshot.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges = slices.Clone(edges)
	s.bay.SetConnections(patch.Connections(snapshot.PatchEdges(s.edges)))
}

// SetParam changes one parameter of a node.
func (s *Studio) SetParam(id, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	return n.widget.Set(name, value)
}

// SetView records the edge style and viewport.
func (s *Studio) SetView(edgeType snapshot.EdgeType, vp snapshot.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edgeType != "" {
		s.edgeType = edgeType
	}

	s.viewport = vp
}

// Snapshot returns the live patch in its saved form.
func (s *Studio) Snapshot() *snapshot.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &snapshot.Document{
		EdgeType: s.edgeType,
		Flow: &snapshot.Flow{
			Nodes:    make([]snapshot.Node, 0, len(s.order)),
			Edges:    slices.Clone(s.edges),
			Viewport: s.viewport,
		},
	}

	if doc.Flow.Edges == nil {
		doc.Flow.Edges = []snapshot.Edge{}
	}

	for _, id := range s.order {
		n := s.nodes[id]

		data := n.widget.Data()
		if len(data) == 0 {
			data = nil
		}

		doc.Flow.Nodes = append(doc.Flow.Nodes, snapshot.Node{
			ID:       id,
			Type:     n.widget.Type(),
			Position: n.pos,
			Data:     data,
		})
	}

	return doc
}

// Nodes returns the ids of the mounted nodes in insertion order.
func (s *Studio) Nodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.order)
}

// Sockets returns every registered socket id.
func (s *Studio) Sockets() []string {
	return s.bay.Registry().IDs()
}

// SocketsWithRole returns the registered socket ids holding the named role
// ("source", "target" or "param"), sorted.
func (s *Studio) SocketsWithRole(name string) ([]string, error) {
	role, err := patch.ParseRole(name)
	if err != nil {
		return nil, err
	}

	return s.bay.Registry().IDsWithRole(role), nil
}

// Report returns the report of the latest reconciliation pass.
func (s *Studio) Report() patch.Report {
	return s.bay.LastReport()
}

// Analyser returns the meter of an analyser node.
func (s *Studio) Analyser(id string) (*audio.Analyser, error) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}

	m, ok := n.widget.(interface {
		Meter() (*audio.Analyser, error)
	})
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotAnalyser, id)
	}

	return m.Meter()
}

// Spectrum returns the current spectrum of an analyser node in dBFS.
func (s *Studio) Spectrum(id string) ([]float64, error) {
	a, err := s.Analyser(id)
	if err != nil {
		return nil, err
	}

	return a.Spectrum()
}

// Render fills out with the next samples of the patch.
func (s *Studio) Render(out []float64) error {
	return s.ctx.Render(out)
}

// Run renders one block per tick until ctx is done, handing each block to
// sink. The slice passed to sink is reused between calls.
func (s *Studio) Run(ctx context.Context, sink func(block []float64)) error {
	block := make([]float64, s.ctx.BlockSize())
	period := time.Duration(float64(time.Second) * float64(len(block)) / s.ctx.SampleRate())

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.ctx.Render(block)
			if err != nil {
				return err
			}

			if sink != nil {
				sink(block)
			}
		}
	}
}

// Close unmounts every node and closes the audio context.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bay.Batch(func() {
		for _, id := range s.order {
			s.nodes[id].widget.Unmount()
		}
	})

	s.order = nil
	clear(s.nodes)

	return s.ctx.Close()
}
