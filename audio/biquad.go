package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/cwbudde/algo-patchbay/dsp/filter/biquad"
	"github.com/cwbudde/algo-patchbay/dsp/filter/design"
)

// FilterType selects the biquad response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Notch
	Peaking
	Lowshelf
	Highshelf
	Allpass
)

var filterTypeNames = [...]string{
	Lowpass:   "lowpass",
	Highpass:  "highpass",
	Bandpass:  "bandpass",
	Notch:     "notch",
	Peaking:   "peaking",
	Lowshelf:  "lowshelf",
	Highshelf: "highshelf",
	Allpass:   "allpass",
}

func (t FilterType) String() string {
	if t < 0 || int(t) >= len(filterTypeNames) {
		return "unknown"
	}

	return filterTypeNames[t]
}

// ParseFilterType parses a BiquadFilterNode.type name.
func ParseFilterType(name string) (FilterType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Lowpass, nil
	}

	for i, n := range filterTypeNames {
		if n == name {
			return FilterType(i), nil
		}
	}

	return 0, fmt.Errorf("audio: unsupported filter type %q", name)
}

// BiquadFilter is a second-order IIR filter with RBJ cookbook responses.
// Coefficients follow the params once per quantum; the section state
// survives type and coefficient changes.
type BiquadFilter struct {
	node

	typ       FilterType
	frequency *Param
	detune    *Param
	q         *Param
	gain      *Param

	section *biquad.Section
}

// NewBiquadFilter creates a 350 Hz lowpass filter.
func NewBiquadFilter(ctx *Context) *BiquadFilter {
	nyquist := ctx.cfg.SampleRate / 2
	f := &BiquadFilter{
		typ:       Lowpass,
		frequency: newParam(ctx, "frequency", 350, 0, nyquist),
		detune:    newParam(ctx, "detune", 0, -153600, 153600),
		q:         newParam(ctx, "Q", 1, -770.6, 770.6),
		gain:      newParam(ctx, "gain", 0, -770.6, 1541),
		section:   biquad.NewSection(biquad.Coefficients{B0: 1}),
	}
	f.init(ctx, f, true)

	return f
}

// Type returns the filter response.
func (f *BiquadFilter) Type() FilterType {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	return f.typ
}

// SetType changes the response without resetting filter state.
func (f *BiquadFilter) SetType(t FilterType) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	f.typ = t
}

// Frequency returns the cutoff or center frequency param in Hz.
func (f *BiquadFilter) Frequency() *Param { return f.frequency }

// Detune returns the detune param in cents.
func (f *BiquadFilter) Detune() *Param { return f.detune }

// Q returns the quality factor param.
func (f *BiquadFilter) Q() *Param { return f.q }

// Gain returns the gain param in dB, used by peaking and shelving types.
func (f *BiquadFilter) Gain() *Param { return f.gain }

// FrequencyResponse writes the magnitude and phase (radians) of the response
// set by the params' intrinsic values at each frequency in Hz. Modulation
// inputs are ignored. mag and phase must be at least as long as freqs;
// frequencies outside [0, Nyquist] report NaN.
func (f *BiquadFilter) FrequencyResponse(freqs, mag, phase []float64) {
	f.ctx.mu.Lock()
	at := f.ctx.nextSampleIndex()
	c := f.coefficients(f.frequency.intrinsic(at), f.detune.intrinsic(at), f.q.intrinsic(at), f.gain.intrinsic(at))
	f.ctx.mu.Unlock()

	sr := f.ctx.cfg.SampleRate
	for i, hz := range freqs {
		if hz < 0 || hz > sr/2 || math.IsNaN(hz) {
			mag[i], phase[i] = math.NaN(), math.NaN()
			continue
		}

		h := c.Response(hz, sr)
		mag[i], phase[i] = cmplx.Abs(h), cmplx.Phase(h)
	}
}

func (f *BiquadFilter) process(out []float64) {
	c := f.coefficients(f.frequency.first(), f.detune.first(), f.q.first(), f.gain.first())
	f.section.SetCoefficients(c)
	f.section.ProcessBlockTo(out, f.input())
}

// coefficients designs the response of the current type. Callers hold
// ctx.mu.
func (f *BiquadFilter) coefficients(freq, detune, q, gain float64) biquad.Coefficients {
	sr := f.ctx.cfg.SampleRate

	freq *= detuneRatio(detune)
	freq = math.Max(1e-3, math.Min(freq, sr/2*0.999))
	q = math.Max(1e-4, math.Abs(q))

	switch f.typ {
	case Highpass:
		return design.Highpass(freq, q, sr)
	case Bandpass:
		return design.BandpassPeak(freq, q, sr)
	case Notch:
		return design.Notch(freq, q, sr)
	case Allpass:
		return design.Allpass(freq, q, sr)
	case Peaking:
		return design.Peak(freq, gain, q, sr)
	case Lowshelf:
		return design.LowShelf(freq, gain, design.ShelfQ, sr)
	case Highshelf:
		return design.HighShelf(freq, gain, design.ShelfQ, sr)
	default:
		return design.Lowpass(freq, q, sr)
	}
}
