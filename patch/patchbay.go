package patch

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/cwbudde/algo-patchbay/audio"
)

// Patchbay is the root object an editor owns: the socket registry, the
// current connection list and the reconciler. Every registration and every
// connection list change triggers a pass, unless it happens inside Batch, in
// which case one pass runs when the outermost Batch returns.
type Patchbay struct {
	registry   *Registry
	reconciler *Reconciler
	logger     *slog.Logger

	mu     sync.Mutex
	conns  []Connection
	depth  int
	dirty  bool
	last   Report
	passes int

	passMu sync.Mutex
}

// New creates an empty Patchbay.
func New(opts ...Option) *Patchbay {
	o := applyOptions(opts...)

	return &Patchbay{
		registry:   NewRegistry(),
		reconciler: &Reconciler{opts: o},
		logger:     o.logger,
	}
}

// Registry returns the socket registry.
func (p *Patchbay) Registry() *Registry {
	return p.registry
}

// Register binds id to s and wires it according to the current list.
func (p *Patchbay) Register(id string, s Socket) {
	p.registry.Register(id, s)
	p.changed()
}

// RegisterSource binds id to a sending unit.
func (p *Patchbay) RegisterSource(id string, unit audio.Output) {
	p.Register(id, SourceSocket{Unit: unit})
}

// RegisterTarget binds id to a receiving unit.
func (p *Patchbay) RegisterTarget(id string, unit audio.Input) {
	p.Register(id, TargetSocket{Unit: unit})
}

// RegisterParam binds id to a unit parameter.
func (p *Patchbay) RegisterParam(id string, param *audio.Param) {
	p.Register(id, ParamSocket{Param: param})
}

// Unregister removes the given ids. A removed source is disconnected so the
// live graph no longer holds it. Connections naming a removed id are kept;
// they are skipped as dangling until the id is registered again.
func (p *Patchbay) Unregister(ids ...string) {
	removed := false
	conns := p.Connections()

	for _, id := range ids {
		s, ok := p.registry.Unregister(id)
		if !ok {
			continue
		}

		removed = true

		if References(conns, id) {
			p.logger.Debug("unregistered socket is still wired",
				slog.String("socket", id), slog.String("role", s.Role().String()))
		}

		src, isSource := s.(SourceSocket)
		if !isSource || src.Unit == nil {
			continue
		}

		err := src.Unit.Disconnect()
		if err != nil && !audio.IsBenign(err) {
			p.logger.Warn("disconnect removed source", slog.String("socket", id), slog.Any("error", err))
		}
	}

	if removed {
		p.changed()
	}
}

// SetConnections replaces the connection list and reconciles.
func (p *Patchbay) SetConnections(conns []Connection) {
	p.mu.Lock()
	p.conns = slices.Clone(conns)
	p.mu.Unlock()

	p.changed()
}

// Connections returns a copy of the current connection list.
func (p *Patchbay) Connections() []Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.conns)
}

// Batch runs fn and coalesces every change it makes into a single pass.
// Batches nest.
func (p *Patchbay) Batch(fn func()) {
	p.mu.Lock()
	p.depth++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.depth--
		run := p.depth == 0 && p.dirty
		p.mu.Unlock()

		if run {
			p.Reconcile()
		}
	}()

	fn()
}

// Reconcile runs a pass now with the current list and registry.
func (p *Patchbay) Reconcile() Report {
	p.passMu.Lock()
	defer p.passMu.Unlock()

	p.mu.Lock()
	conns := slices.Clone(p.conns)
	p.dirty = false
	p.mu.Unlock()

	rep := p.reconciler.Reconcile(context.Background(), conns, p.registry)

	p.mu.Lock()
	p.last = rep
	p.passes++
	p.mu.Unlock()

	return rep
}

// LastReport returns the report of the most recent pass.
func (p *Patchbay) LastReport() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}

// Passes returns how many passes have run.
func (p *Patchbay) Passes() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.passes
}

func (p *Patchbay) changed() {
	p.mu.Lock()
	p.dirty = true
	deferred := p.depth > 0
	p.mu.Unlock()

	if !deferred {
		p.Reconcile()
	}
}
