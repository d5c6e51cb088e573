package audio

import (
	"github.com/cwbudde/algo-vecmath"
)

// Input is the receiving end of a connection: a node input or a Param.
type Input interface {
	inputBus() *bus
}

// Output is the sending end of a connection.
type Output interface {
	// Connect feeds this node's output into dst. Connecting twice to the same
	// input returns ErrAlreadyConnected and keeps a single connection.
	Connect(dst Input) error
	// Disconnect removes every outgoing connection. It returns
	// ErrNotConnected when there was none.
	Disconnect() error
	// DisconnectFrom removes the connection to dst only.
	DisconnectFrom(dst Input) error
}

// processor renders one quantum of a node into out.
type processor interface {
	process(out []float64)
}

// node is the wiring and render bookkeeping shared by all units.
type node struct {
	ctx     *Context
	proc    processor
	in      *bus
	outputs []Input

	out   []float64
	prev  []float64
	frame uint64
	busy  bool
}

func (n *node) init(ctx *Context, proc processor, hasInput bool) {
	n.ctx = ctx
	n.proc = proc
	n.out = make([]float64, ctx.cfg.BlockSize)
	n.prev = make([]float64, ctx.cfg.BlockSize)

	if hasInput {
		n.in = newBus(ctx)
	}
}

// Context returns the context the node belongs to.
func (n *node) Context() *Context {
	return n.ctx
}

func (n *node) inputBus() *bus {
	return n.in
}

// Connect implements Output.
func (n *node) Connect(dst Input) error {
	if dst == nil {
		return ErrNoInput
	}

	b := dst.inputBus()
	if b == nil {
		return ErrNoInput
	}

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.closed {
		return ErrClosed
	}

	if b.ctx != n.ctx {
		return ErrContextMismatch
	}

	for _, o := range n.outputs {
		if o.inputBus() == b {
			return ErrAlreadyConnected
		}
	}

	n.outputs = append(n.outputs, dst)
	b.sources = append(b.sources, n)

	return nil
}

// Disconnect implements Output.
func (n *node) Disconnect() error {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.closed {
		return ErrClosed
	}

	if len(n.outputs) == 0 {
		return ErrNotConnected
	}

	for _, o := range n.outputs {
		o.inputBus().remove(n)
	}

	n.outputs = nil

	return nil
}

// DisconnectFrom implements Output.
func (n *node) DisconnectFrom(dst Input) error {
	if dst == nil || dst.inputBus() == nil {
		return ErrNotConnected
	}

	b := dst.inputBus()

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	if n.ctx.closed {
		return ErrClosed
	}

	for i, o := range n.outputs {
		if o.inputBus() != b {
			continue
		}

		b.remove(n)
		n.outputs = append(n.outputs[:i], n.outputs[i+1:]...)

		return nil
	}

	return ErrNotConnected
}

// NumOutputs returns the number of live outgoing connections.
func (n *node) NumOutputs() int {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	return len(n.outputs)
}

// NumInputs returns the number of outputs feeding this node.
func (n *node) NumInputs() int {
	if n.in == nil {
		return 0
	}

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	return len(n.in.sources)
}

// ConnectedTo reports whether the node currently feeds dst.
func (n *node) ConnectedTo(dst Input) bool {
	if dst == nil || dst.inputBus() == nil {
		return false
	}

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()

	for _, o := range n.outputs {
		if o.inputBus() == dst.inputBus() {
			return true
		}
	}

	return false
}

// pull renders the node for the current quantum at most once. A node reached
// again while it is rendering returns its previous quantum.
func (n *node) pull() []float64 {
	frame := n.ctx.frame
	if n.frame == frame {
		return n.out
	}

	if n.busy {
		return n.prev
	}

	n.busy = true
	n.out, n.prev = n.prev, n.out
	n.proc.process(n.out)
	n.frame = frame
	n.busy = false

	return n.out
}

// input pulls and sums everything connected to the node.
func (n *node) input() []float64 {
	return n.in.sum()
}

// bus is a summing junction: a node input or a param's modulation input.
type bus struct {
	ctx     *Context
	sources []*node
	buf     []float64
}

func newBus(ctx *Context) *bus {
	return &bus{ctx: ctx, buf: make([]float64, ctx.cfg.BlockSize)}
}

func (b *bus) remove(src *node) {
	for i, s := range b.sources {
		if s == src {
			b.sources = append(b.sources[:i], b.sources[i+1:]...)
			return
		}
	}
}

func (b *bus) sum() []float64 {
	clear(b.buf)

	for _, src := range b.sources {
		vecmath.AddBlockInPlace(b.buf, src.pull())
	}

	return b.buf
}

// Destination is the terminal node: whatever reaches it is rendered.
type Destination struct {
	node
}

func newDestination(ctx *Context) *Destination {
	d := &Destination{}
	d.init(ctx, d, true)

	return d
}

func (d *Destination) process(out []float64) {
	copy(out, d.input())
}
