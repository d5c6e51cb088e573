// Package delay provides the circular delay line behind delay units.
package delay

import (
	"fmt"
	"math"
)

// Line is a circular delay line. Delays are counted from the write head:
// after Write(x), Read(1) returns x.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}

	return &Line{buffer: make([]float64, size)}, nil
}

// ForSeconds returns a line long enough for ReadFractional to reach
// maxSeconds of delay behind the most recent sample at sampleRate.
func ForSeconds(maxSeconds, sampleRate float64) (*Line, error) {
	if maxSeconds <= 0 || sampleRate <= 0 || math.IsNaN(maxSeconds) || math.IsInf(maxSeconds, 0) {
		return nil, fmt.Errorf("delay length must be > 0: %v s at %v Hz", maxSeconds, sampleRate)
	}

	return New(int(math.Ceil(maxSeconds*sampleRate)) + 4)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the longest delay ReadFractional serves.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - 3)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := ((d.writePos-delay)%size + size) % size

	return d.buffer[readPos]
}

// ReadFractional reads with cubic Hermite interpolation. delay is clamped to
// [1, MaxDelay]; 1 is the most recent sample.
func (d *Line) ReadFractional(delay float64) float64 {
	if !(delay > 1) {
		return d.Read(1)
	}

	if limit := d.MaxDelay(); delay > limit {
		delay = limit
	}

	p := int(delay)
	t := delay - float64(p)

	x0 := d.Read(p)
	if t == 0 {
		return x0
	}

	// Read(0) is the oldest slot, never a neighbor of the newest sample.
	xm1 := d.Read(max(1, p-1))

	return hermite4(t, xm1, x0, d.Read(p+1), d.Read(p+2))
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}

// hermite4 interpolates between x0 and x1 at t in [0, 1) from the
// four-point Catmull-Rom neighborhood.
func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)

	return ((c3*t+c2)*t+c1)*t + c0
}
