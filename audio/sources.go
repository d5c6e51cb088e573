package audio

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Noise is a white noise source in [-1, 1).
type Noise struct {
	node

	rng *rand.Rand
}

// NewNoise creates a noise source with a deterministic seed.
func NewNoise(ctx *Context, seed uint64) *Noise {
	n := &Noise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	n.init(ctx, n, false)

	return n
}

func (n *Noise) process(out []float64) {
	for i := range out {
		out[i] = 2*n.rng.Float64() - 1
	}
}

// ConstantSource outputs the Offset param, which makes any signal usable as
// an offset or a control voltage.
type ConstantSource struct {
	node

	offset *Param
}

// NewConstantSource creates a source with offset 1.
func NewConstantSource(ctx *Context) *ConstantSource {
	c := &ConstantSource{offset: newParam(ctx, "offset", 1, -math.MaxFloat32, math.MaxFloat32)}
	c.init(ctx, c, false)

	return c
}

// Offset returns the output level param.
func (c *ConstantSource) Offset() *Param {
	return c.offset
}

func (c *ConstantSource) process(out []float64) {
	if c.offset.constant() {
		for i := range out {
			out[i] = c.offset.value
		}

		return
	}

	copy(out, c.offset.values())
}

// Device is a capture device delivering mono samples.
type Device interface {
	// Read fills p with captured samples and returns how many were written.
	Read(p []float64) (int, error)
	Close() error
}

// DeviceOpener acquires a capture device.
type DeviceOpener func() (Device, error)

// LiveInput is a source backed by a capture device. Read errors render silence.
type LiveInput struct {
	node

	dev Device
}

// NewLiveInput acquires a device. Failure is reported as ErrNoDevice.
func NewLiveInput(ctx *Context, open DeviceOpener) (*LiveInput, error) {
	if open == nil {
		return nil, ErrNoDevice
	}

	dev, err := open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}

	if dev == nil {
		return nil, ErrNoDevice
	}

	l := &LiveInput{dev: dev}
	l.init(ctx, l, false)

	return l, nil
}

// Close releases the device.
func (l *LiveInput) Close() error {
	return l.dev.Close()
}

func (l *LiveInput) process(out []float64) {
	n, err := l.dev.Read(out)
	if err != nil {
		n = 0
	}

	clear(out[max(0, min(n, len(out))):])
}
