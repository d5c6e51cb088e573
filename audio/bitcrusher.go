package audio

import (
	"math"

	"github.com/cwbudde/algo-patchbay/dsp/effects"
)

// BitCrusher reduces resolution and sample rate: Bits sets the quantizer
// depth and NormFreq the fraction of samples that are held anew.
type BitCrusher struct {
	node

	bits     *Param
	normFreq *Param
	crusher  *effects.BitCrusher
}

// NewBitCrusher creates an 8-bit crusher at full rate.
func NewBitCrusher(ctx *Context) *BitCrusher {
	// The defaults, 8 bits at full rate, always validate.
	crusher, _ := effects.NewBitCrusher()

	b := &BitCrusher{
		bits:     newParam(ctx, "bits", 8, 1, 16),
		normFreq: newParam(ctx, "normFreq", 1, 0, 1),
		crusher:  crusher,
	}
	b.init(ctx, b, true)

	return b
}

// Bits returns the quantizer depth param.
func (b *BitCrusher) Bits() *Param { return b.bits }

// NormFreq returns the hold rate param, 1 being the context rate.
func (b *BitCrusher) NormFreq() *Param { return b.normFreq }

func (b *BitCrusher) process(out []float64) {
	// Both params are clamped to ranges the crusher accepts.
	_ = b.crusher.SetBitDepth(math.Round(b.bits.first()))
	_ = b.crusher.SetHoldRate(b.normFreq.first())

	copy(out, b.input())
	b.crusher.ProcessInPlace(out)
}
