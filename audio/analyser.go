package audio

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// MinDecibels is the floor of Analyser spectra.
const MinDecibels = -130.0

// Analyser passes its input through unchanged and keeps the last FFTSize
// samples for spectrum and level readout. It renders every quantum even
// without a path to the Destination, until Close is called.
type Analyser struct {
	node

	fftSize int
	ring    []float64
	write   int
	peak    float64

	plan   *algofft.Plan[complex128]
	window []float64
	winSum float64
	fftIn  []complex128
	fftOut []complex128
	re, im []float64
	mag    []float64
}

// NewAnalyser creates an analyser. fftSize must be a power of two in [32, 32768].
func NewAnalyser(ctx *Context, fftSize int) (*Analyser, error) {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("audio: fft size must be a power of two in [32, 32768]: %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("audio: analyser fft plan: %w", err)
	}

	bins := fftSize/2 + 1
	a := &Analyser{
		fftSize: fftSize,
		ring:    make([]float64, fftSize),
		plan:    plan,
		window:  blackman(fftSize),
		fftIn:   make([]complex128, fftSize),
		fftOut:  make([]complex128, fftSize),
		re:      make([]float64, bins),
		im:      make([]float64, bins),
		mag:     make([]float64, bins),
	}

	for _, w := range a.window {
		a.winSum += w
	}

	a.init(ctx, a, true)
	ctx.addTap(&a.node)

	return a, nil
}

// FFTSize returns the analysis length.
func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// Close stops the analyser from rendering on its own.
func (a *Analyser) Close() {
	a.ctx.removeTap(&a.node)
}

// Peak returns the absolute peak of the last rendered quantum.
func (a *Analyser) Peak() float64 {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	return a.peak
}

// TimeDomain returns the last FFTSize samples, oldest first.
func (a *Analyser) TimeDomain() []float64 {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	out := make([]float64, a.fftSize)
	n := copy(out, a.ring[a.write:])
	copy(out[n:], a.ring[:a.write])

	return out
}

// Spectrum returns FFTSize/2+1 magnitude bins in dBFS.
func (a *Analyser) Spectrum() ([]float64, error) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	read := a.write
	for i := range a.fftIn {
		a.fftIn[i] = complex(a.ring[read]*a.window[i], 0)

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	err := a.plan.Forward(a.fftOut, a.fftIn)
	if err != nil {
		return nil, fmt.Errorf("audio: analyser fft: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.fftOut[k])
		a.im[k] = imag(a.fftOut[k])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	const eps = 1e-12

	norm := math.Max(a.winSum, eps)
	last := len(a.mag) - 1
	out := make([]float64, len(a.mag))

	for k, m := range a.mag {
		m /= norm
		if k > 0 && k < last {
			m *= 2
		}

		out[k] = math.Max(MinDecibels, 20*math.Log10(math.Max(eps, m)))
	}

	return out, nil
}

func (a *Analyser) process(out []float64) {
	copy(out, a.input())

	peak := 0.0
	for _, x := range out {
		peak = math.Max(peak, math.Abs(x))

		a.ring[a.write] = x
		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}
	}

	a.peak = peak
}

// blackman returns the classic Blackman window, as AnalyserNode uses.
func blackman(n int) []float64 {
	const alpha = 0.16

	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)

	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}

	return w
}
