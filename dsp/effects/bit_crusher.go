// Package effects provides sample processors behind the effect units.
package effects

import (
	"fmt"
	"math"
)

const (
	defaultBitCrusherBitDepth = 8.0
	defaultBitCrusherHoldRate = 1.0
	defaultBitCrusherMix      = 1.0
	minBitCrusherBitDepth     = 1.0
	maxBitCrusherBitDepth     = 32.0
)

// BitCrusherOption mutates bit crusher construction parameters.
type BitCrusherOption func(*bitCrusherConfig) error

type bitCrusherConfig struct {
	bitDepth float64
	holdRate float64
	mix      float64
}

func defaultBitCrusherConfig() bitCrusherConfig {
	return bitCrusherConfig{
		bitDepth: defaultBitCrusherBitDepth,
		holdRate: defaultBitCrusherHoldRate,
		mix:      defaultBitCrusherMix,
	}
}

// WithBitCrusherBitDepth sets the target bit depth for quantization.
// Fractional values are supported for smooth parameter sweeps.
// Range: [1, 32].
func WithBitCrusherBitDepth(bitDepth float64) BitCrusherOption {
	return func(cfg *bitCrusherConfig) error {
		if err := checkBitDepth(bitDepth); err != nil {
			return err
		}

		cfg.bitDepth = bitDepth

		return nil
	}
}

// WithBitCrusherHoldRate sets the fraction of input samples that refresh the
// held value. 1 refreshes every sample, 0.25 every fourth, 0 freezes.
// Range: [0, 1].
func WithBitCrusherHoldRate(rate float64) BitCrusherOption {
	return func(cfg *bitCrusherConfig) error {
		if err := checkUnit("hold rate", rate); err != nil {
			return err
		}

		cfg.holdRate = rate

		return nil
	}
}

// WithBitCrusherMix sets the dry/wet mix in [0, 1].
func WithBitCrusherMix(mix float64) BitCrusherOption {
	return func(cfg *bitCrusherConfig) error {
		if err := checkUnit("mix", mix); err != nil {
			return err
		}

		cfg.mix = mix

		return nil
	}
}

// BitCrusher reduces bit depth and effective sample rate. It combines two
// degradation mechanisms:
//
//   - Quantization snaps samples to a grid of 2^(BitDepth-1) steps per unit.
//     Values outside [-1, 1] are quantized but not clipped.
//
//   - Sample-and-hold keeps the last quantized value until a phase
//     accumulator advancing by HoldRate per sample wraps, which gives
//     fractional rate reduction.
//
// With BitDepth=32 and HoldRate=1, the effect is transparent.
type BitCrusher struct {
	bitDepth float64
	holdRate float64
	mix      float64

	quantLevels float64

	phase     float64
	holdValue float64
}

// NewBitCrusher creates a bit crusher with optional configuration overrides.
func NewBitCrusher(opts ...BitCrusherOption) (*BitCrusher, error) {
	cfg := defaultBitCrusherConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	bc := &BitCrusher{
		bitDepth: cfg.bitDepth,
		holdRate: cfg.holdRate,
		mix:      cfg.mix,
	}
	bc.updateQuantLevels()

	return bc, nil
}

// SetBitDepth sets the quantization bit depth in [1, 32].
func (bc *BitCrusher) SetBitDepth(bitDepth float64) error {
	if err := checkBitDepth(bitDepth); err != nil {
		return err
	}

	if bitDepth != bc.bitDepth {
		bc.bitDepth = bitDepth
		bc.updateQuantLevels()
	}

	return nil
}

// SetHoldRate sets the hold rate in [0, 1].
func (bc *BitCrusher) SetHoldRate(rate float64) error {
	if err := checkUnit("hold rate", rate); err != nil {
		return err
	}

	bc.holdRate = rate

	return nil
}

// SetMix sets the dry/wet mix in [0, 1].
func (bc *BitCrusher) SetMix(mix float64) error {
	if err := checkUnit("mix", mix); err != nil {
		return err
	}

	bc.mix = mix

	return nil
}

// Reset clears the sample-and-hold state.
func (bc *BitCrusher) Reset() {
	bc.phase = 0
	bc.holdValue = 0
}

// ProcessSample processes one sample through the bit crusher.
func (bc *BitCrusher) ProcessSample(input float64) float64 {
	bc.phase += bc.holdRate
	if bc.phase >= 1 {
		bc.phase -= 1
		bc.holdValue = bc.quantize(input)
	}

	if bc.mix == 1 {
		return bc.holdValue
	}

	return input*(1-bc.mix) + bc.holdValue*bc.mix
}

// ProcessInPlace applies the bit crusher to buf in place.
func (bc *BitCrusher) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = bc.ProcessSample(buf[i])
	}
}

// BitDepth returns the quantization bit depth.
func (bc *BitCrusher) BitDepth() float64 { return bc.bitDepth }

// HoldRate returns the hold rate.
func (bc *BitCrusher) HoldRate() float64 { return bc.holdRate }

// Mix returns the dry/wet mix in [0, 1].
func (bc *BitCrusher) Mix() float64 { return bc.mix }

func (bc *BitCrusher) updateQuantLevels() {
	bc.quantLevels = math.Exp2(bc.bitDepth - 1)
}

// quantize rounds half away from zero.
func (bc *BitCrusher) quantize(sample float64) float64 {
	return math.Round(sample*bc.quantLevels) / bc.quantLevels
}

func checkBitDepth(bitDepth float64) error {
	if bitDepth < minBitCrusherBitDepth || bitDepth > maxBitCrusherBitDepth ||
		math.IsNaN(bitDepth) || math.IsInf(bitDepth, 0) {
		return fmt.Errorf("bit crusher bit depth must be in [%g, %g]: %f",
			minBitCrusherBitDepth, maxBitCrusherBitDepth, bitDepth)
	}

	return nil
}

func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("bit crusher %s must be in [0, 1]: %f", name, v)
	}

	return nil
}
