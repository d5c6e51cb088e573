// Package audio is a small block-based signal graph runtime modelled on the
// Web Audio API: nodes are wired with Connect/Disconnect and a Context pulls
// the graph one render quantum at a time from its Destination.
//
// Structural calls (Connect, Disconnect, parameter changes, Start/Stop) may
// be issued from any goroutine while another goroutine renders; the Context
// serialises them against rendering with a single lock. A sequence of calls
// that must not be heard half-done runs inside Update.
//
// Feedback loops are legal. A node that is reached again while it is still
// rendering the current quantum contributes its previous quantum, so every
// cycle carries an implicit delay of one block.
package audio

import (
	"sync"
)

// Context owns a signal graph and renders it.
type Context struct {
	// gate is held by Render for a whole call and by Update for a whole
	// batch of structural calls. It is always taken before mu.
	gate sync.Mutex

	mu     sync.Mutex
	cfg    Config
	frame  uint64
	closed bool

	dest    *Destination
	taps    []*node
	pending []float64
	spill   []float64
}

// NewContext creates a Context with its Destination.
func NewContext(opts ...Option) *Context {
	c := &Context{cfg: applyOptions(opts...)}
	c.spill = make([]float64, c.cfg.BlockSize)
	c.dest = newDestination(c)

	return c
}

// SampleRate returns the sample rate in Hz.
func (c *Context) SampleRate() float64 {
	return c.cfg.SampleRate
}

// BlockSize returns the render quantum in samples.
func (c *Context) BlockSize() int {
	return c.cfg.BlockSize
}

// Destination returns the terminal node of the graph.
func (c *Context) Destination() *Destination {
	return c.dest
}

// CurrentTime returns the number of seconds rendered so far.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return float64(c.frame) * float64(c.cfg.BlockSize) / c.cfg.SampleRate
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Close stops rendering. Later structural calls return ErrClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.closed = true
	c.taps = nil

	return nil
}

// Update runs fn with rendering held off, so no quantum observes the graph
// between two of the structural calls fn makes. fn may call Connect,
// Disconnect and the other structural methods, but not Render or Update.
func (c *Context) Update(fn func()) {
	c.gate.Lock()
	defer c.gate.Unlock()

	fn()
}

// Render fills out with the next len(out) samples of the Destination signal.
// Samples of a partially consumed quantum are kept for the next call.
func (c *Context) Render(out []float64) error {
	c.gate.Lock()
	defer c.gate.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		clear(out)
		return ErrClosed
	}

	written := copy(out, c.pending)
	c.pending = c.pending[written:]

	for written < len(out) {
		block := c.renderQuantum()

		n := copy(out[written:], block)
		written += n

		if n < len(block) {
			rest := copy(c.spill, block[n:])
			c.pending = c.spill[:rest]
		}
	}

	return nil
}

// renderQuantum advances the graph by one block. Callers hold c.mu.
func (c *Context) renderQuantum() []float64 {
	c.frame++

	out := c.dest.pull()
	for _, t := range c.taps {
		t.pull()
	}

	return out
}

// sampleIndex returns the absolute index of the first sample of the quantum
// being rendered. Only valid while rendering.
func (c *Context) sampleIndex() int64 {
	if c.frame == 0 {
		return 0
	}

	return int64(c.frame-1) * int64(c.cfg.BlockSize)
}

// nextSampleIndex returns the index of the first sample not yet rendered.
func (c *Context) nextSampleIndex() int64 {
	return int64(c.frame) * int64(c.cfg.BlockSize)
}

func (c *Context) addTap(n *node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.taps = append(c.taps, n)
}

func (c *Context) removeTap(n *node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.taps {
		if t == n {
			c.taps = append(c.taps[:i], c.taps[i+1:]...)
			return
		}
	}
}
