package audio

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Param is a control value of a node. Its per-sample value is the intrinsic
// value (set directly or ramped) plus the sum of any connected modulation
// signals, clamped to [Min, Max].
type Param struct {
	ctx  *Context
	name string
	in   *bus

	value    float64
	def      float64
	min, max float64
	ramp     *ramp

	buf   []float64
	frame uint64
}

type ramp struct {
	from, to   float64
	start, end int64
}

func newParam(ctx *Context, name string, def, lo, hi float64) *Param {
	return &Param{
		ctx:   ctx,
		name:  name,
		in:    newBus(ctx),
		value: def,
		def:   def,
		min:   lo,
		max:   hi,
		buf:   make([]float64, ctx.cfg.BlockSize),
	}
}

func (p *Param) inputBus() *bus {
	return p.in
}

// Name returns the parameter name.
func (p *Param) Name() string {
	return p.name
}

// Default returns the initial value.
func (p *Param) Default() float64 {
	return p.def
}

// Min returns the lower clamp bound.
func (p *Param) Min() float64 {
	return p.min
}

// Max returns the upper clamp bound.
func (p *Param) Max() float64 {
	return p.max
}

// Value returns the current intrinsic value, ignoring modulation.
func (p *Param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	return p.intrinsic(p.ctx.nextSampleIndex())
}

// SetValue sets the intrinsic value immediately and cancels any ramp.
func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	p.value = p.clamp(v)
	p.ramp = nil
}

// LinearRampTo moves the intrinsic value linearly to v over the given
// number of seconds, starting at the next quantum.
func (p *Param) LinearRampTo(v, seconds float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	start := p.ctx.nextSampleIndex()
	from := p.intrinsic(start)
	to := p.clamp(v)

	length := int64(math.Round(seconds * p.ctx.cfg.SampleRate))
	if length <= 0 {
		p.value = to
		p.ramp = nil

		return
	}

	p.value = from
	p.ramp = &ramp{from: from, to: to, start: start, end: start + length}
}

// NumInputs returns the number of modulation signals connected to the param.
func (p *Param) NumInputs() int {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	return len(p.in.sources)
}

func (p *Param) intrinsic(at int64) float64 {
	r := p.ramp
	if r == nil {
		return p.value
	}

	switch {
	case at <= r.start:
		return r.from
	case at >= r.end:
		return r.to
	default:
		t := float64(at-r.start) / float64(r.end-r.start)
		return r.from + t*(r.to-r.from)
	}
}

// constant reports whether every sample of the quantum has the same value.
func (p *Param) constant() bool {
	return p.ramp == nil && len(p.in.sources) == 0
}

// values renders the param for the current quantum.
func (p *Param) values() []float64 {
	if p.frame == p.ctx.frame {
		return p.buf
	}

	p.frame = p.ctx.frame

	base := p.ctx.sampleIndex()
	for i := range p.buf {
		p.buf[i] = p.intrinsic(base + int64(i))
	}

	if p.ramp != nil && base+int64(len(p.buf)) >= p.ramp.end {
		p.value = p.ramp.to
		p.ramp = nil
	}

	if len(p.in.sources) > 0 {
		vecmath.AddBlockInPlace(p.buf, p.in.sum())

		for i, v := range p.buf {
			p.buf[i] = p.clamp(v)
		}
	}

	return p.buf
}

// first returns the value at the start of the quantum, for k-rate use.
func (p *Param) first() float64 {
	if p.constant() {
		return p.value
	}

	return p.values()[0]
}

func (p *Param) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.def
	}

	return math.Max(p.min, math.Min(p.max, v))
}
