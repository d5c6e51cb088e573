package audio

// centsPerOctave is the detune scale shared by oscillators and filters.
const centsPerOctave = 1200

// detuneRatio converts a detune in cents to a frequency ratio.
func detuneRatio(cents float64) float64 {
	return mathPower2(cents / centsPerOctave)
}
