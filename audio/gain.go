package audio

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Gain scales its input by the Gain param.
type Gain struct {
	node

	gain *Param
}

// NewGain creates a unity gain node.
func NewGain(ctx *Context) *Gain {
	g := &Gain{gain: newParam(ctx, "gain", 1, -math.MaxFloat32, math.MaxFloat32)}
	g.init(ctx, g, true)

	return g
}

// Gain returns the gain param.
func (g *Gain) Gain() *Param {
	return g.gain
}

func (g *Gain) process(out []float64) {
	copy(out, g.input())

	if g.gain.constant() {
		if g.gain.value != 1 {
			vecmath.ScaleBlockInPlace(out, g.gain.value)
		}

		return
	}

	vecmath.MulBlockInPlace(out, g.gain.values())
}
