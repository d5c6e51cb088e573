package widget

var (
	oscillatorSchema = Schema{"type": Text, "frequency": Number, "detune": Number}
	noiseSchema      = Schema{"seed": Number}
	constantSchema   = Schema{"offset": Number}
	gainSchema       = Schema{"gain": Number}
	filterSchema     = Schema{"type": Text, "frequency": Number, "detune": Number, "q": Number, "gain": Number}
	delaySchema      = Schema{"time": Number, "feedback": Number, "maxDelay": Number}
	bitCrusherSchema = Schema{"bits": Number, "rate": Number}
	analyserSchema   = Schema{"fftSize": Number}
)

// DefaultRegistry returns a Registry pre-populated with all built-in widgets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister("oscillator", oscillatorSchema, newOscillator)
	r.MustRegister("noise", noiseSchema, newNoise)
	r.MustRegister("constant", constantSchema, newConstant)
	r.MustRegister("input", nil, newInput)
	r.MustRegister("gain", gainSchema, newGain)
	r.MustRegister("filter", filterSchema, newFilter)
	r.MustRegister("delay", delaySchema, newDelay)
	r.MustRegister("bitcrusher", bitCrusherSchema, newBitCrusher)
	r.MustRegister("analyser", analyserSchema, newAnalyser)
	r.MustRegister("output", nil, newOutput)

	return r
}
