package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patchbay/dsp/delay"
)

// MaxDelaySeconds is the longest delay a Delay node accepts.
const MaxDelaySeconds = 180

// Delay delays its input by the DelayTime param with cubic interpolation.
type Delay struct {
	node

	delayTime *Param
	maxDelay  float64
	line      *delay.Line
}

// NewDelay creates a delay line able to hold maxDelay seconds.
func NewDelay(ctx *Context, maxDelay float64) (*Delay, error) {
	if maxDelay <= 0 || maxDelay > MaxDelaySeconds || math.IsNaN(maxDelay) {
		return nil, fmt.Errorf("audio: max delay must be in (0, %d] seconds: %v", MaxDelaySeconds, maxDelay)
	}

	line, err := delay.ForSeconds(maxDelay, ctx.cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}

	d := &Delay{
		delayTime: newParam(ctx, "delayTime", 0, 0, maxDelay),
		maxDelay:  maxDelay,
		line:      line,
	}
	d.init(ctx, d, true)

	return d, nil
}

// DelayTime returns the delay param in seconds.
func (d *Delay) DelayTime() *Param {
	return d.delayTime
}

// MaxDelay returns the capacity in seconds.
func (d *Delay) MaxDelay() float64 {
	return d.maxDelay
}

func (d *Delay) process(out []float64) {
	in := d.input()
	sr := d.ctx.cfg.SampleRate

	var times []float64
	if !d.delayTime.constant() {
		times = d.delayTime.values()
	}

	for i, x := range in {
		d.line.Write(x)

		t := d.delayTime.value
		if times != nil {
			t = times[i]
		}

		// The sample just written sits at delay 1.
		out[i] = d.line.ReadFractional(1 + t*sr)
	}
}
