package audio

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// ParseWaveform parses a waveform name as used by OscillatorNode.type.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "":
		return Sine, nil
	case "square":
		return Square, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "triangle":
		return Triangle, nil
	default:
		return 0, fmt.Errorf("audio: unsupported waveform %q", name)
	}
}

type sourceState int

const (
	stateIdle sourceState = iota
	stateRunning
	stateStopped
)

// Oscillator is a periodic source. It is silent until started and cannot be
// restarted once stopped; a new Oscillator replaces it.
type Oscillator struct {
	node

	wave      Waveform
	frequency *Param
	detune    *Param
	phase     float64
	state     sourceState
}

// NewOscillator creates a stopped oscillator at 440 Hz.
func NewOscillator(ctx *Context, wave Waveform) *Oscillator {
	nyquist := ctx.cfg.SampleRate / 2
	o := &Oscillator{
		wave:      wave,
		frequency: newParam(ctx, "frequency", 440, -nyquist, nyquist),
		detune:    newParam(ctx, "detune", 0, -153600, 153600),
	}
	o.init(ctx, o, false)

	return o
}

// Waveform returns the oscillator shape.
func (o *Oscillator) Waveform() Waveform {
	return o.wave
}

// Frequency returns the frequency param in Hz.
func (o *Oscillator) Frequency() *Param {
	return o.frequency
}

// Detune returns the detune param in cents.
func (o *Oscillator) Detune() *Param {
	return o.detune
}

// Start begins output with the next quantum.
func (o *Oscillator) Start() error {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()

	if o.state != stateIdle {
		return fmt.Errorf("%w: oscillator already started", ErrInvalidState)
	}

	o.state = stateRunning

	return nil
}

// Stop silences the oscillator for good.
func (o *Oscillator) Stop() error {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()

	if o.state != stateRunning {
		return fmt.Errorf("%w: oscillator not running", ErrInvalidState)
	}

	o.state = stateStopped

	return nil
}

func (o *Oscillator) process(out []float64) {
	if o.state != stateRunning {
		clear(out)
		return
	}

	sr := o.ctx.cfg.SampleRate
	freq := o.frequency.values()
	detune := o.detune.values()

	for i := range out {
		hz := freq[i]
		if detune[i] != 0 {
			hz *= detuneRatio(detune[i])
		}

		out[i] = shape(o.wave, o.phase)

		o.phase += hz / sr
		o.phase -= math.Floor(o.phase)
	}
}

// shape evaluates one period of w at phase in [0, 1).
func shape(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}

		return -1
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		if phase < 0.5 {
			return 4*phase - 1
		}

		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
