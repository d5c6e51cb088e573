package widget

import (
	"errors"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/patch"
)

// GainRamp is how long a gain change takes, in seconds.
const GainRamp = 0.05

// Gain is a volume stage. Its level ramps to new values.
type Gain struct {
	base

	gain *audio.Gain
}

func newGain(p Params) (Widget, error) {
	return &Gain{base: newBase(p, gainSchema)}, nil
}

func (g *Gain) Mount(env Env) error {
	err := g.attach(env)
	if err != nil {
		return err
	}

	g.gain = audio.NewGain(g.env.Audio)
	g.gain.Gain().SetValue(g.params.GetNum("gain", 1))

	g.publish(map[string]patch.Socket{
		PortIn:   patch.TargetSocket{Unit: g.gain},
		PortOut:  patch.SourceSocket{Unit: g.gain},
		PortGain: patch.ParamSocket{Param: g.gain.Gain()},
	})

	return nil
}

func (g *Gain) Set(name string, value any) error {
	err := g.store(name, value)
	if err != nil || !g.live {
		return err
	}

	g.gain.Gain().LinearRampTo(g.params.GetNum(name, 1), GainRamp)

	return nil
}

func (g *Gain) Unmount() {
	if !g.live {
		return
	}

	g.retire(g.gain)
	g.gain = nil
	g.withdraw()
}

// Filter is a biquad filter. Every parameter, the response type included,
// changes live.
type Filter struct {
	base

	filter *audio.BiquadFilter
}

func newFilter(p Params) (Widget, error) {
	_, err := audio.ParseFilterType(p.GetStr("type", "lowpass"))
	if err != nil {
		return nil, err
	}

	return &Filter{base: newBase(p, filterSchema)}, nil
}

func (f *Filter) Mount(env Env) error {
	err := f.attach(env)
	if err != nil {
		return err
	}

	f.filter = audio.NewBiquadFilter(f.env.Audio)
	for _, name := range f.schema.Names() {
		f.apply(name)
	}

	f.publish(map[string]patch.Socket{
		PortIn:     patch.TargetSocket{Unit: f.filter},
		PortOut:    patch.SourceSocket{Unit: f.filter},
		PortFreq:   patch.ParamSocket{Param: f.filter.Frequency()},
		PortDetune: patch.ParamSocket{Param: f.filter.Detune()},
		PortQ:      patch.ParamSocket{Param: f.filter.Q()},
		PortGain:   patch.ParamSocket{Param: f.filter.Gain()},
	})

	return nil
}

func (f *Filter) apply(name string) {
	switch name {
	case "type":
		t, err := audio.ParseFilterType(f.params.GetStr(name, "lowpass"))
		if err == nil {
			f.filter.SetType(t)
		}
	case "frequency":
		f.filter.Frequency().SetValue(f.params.GetNum(name, 350))
	case "detune":
		f.filter.Detune().SetValue(f.params.GetNum(name, 0))
	case "q":
		f.filter.Q().SetValue(f.params.GetNum(name, 1))
	case "gain":
		f.filter.Gain().SetValue(f.params.GetNum(name, 0))
	}
}

func (f *Filter) Set(name string, value any) error {
	if name == "type" {
		s, ok := value.(string)
		if !ok {
			return kindError(name, Text, value)
		}

		_, err := audio.ParseFilterType(s)
		if err != nil {
			return err
		}
	}

	err := f.store(name, value)
	if err != nil || !f.live {
		return err
	}

	f.apply(name)

	return nil
}

func (f *Filter) Unmount() {
	if !f.live {
		return
	}

	f.retire(f.filter)
	f.filter = nil
	f.withdraw()
}

// Delay is an echo with feedback. It keeps a private chain
//
//	in -> line -> out
//	      line -> feedback -> line
//
// of which only the ends and the two controls are sockets. Changing the
// maximum delay rebuilds the chain.
type Delay struct {
	base

	in, out, feedback *audio.Gain
	line              *audio.Delay
}

var errMaxDelay = errors.New("widget: delay maxDelay out of range")

func validMaxDelay(v float64) bool {
	return v > 0 && v <= audio.MaxDelaySeconds
}

func newDelay(p Params) (Widget, error) {
	if !validMaxDelay(p.GetNum("maxDelay", 1)) {
		return nil, errMaxDelay
	}

	return &Delay{base: newBase(p, delaySchema)}, nil
}

func (d *Delay) Mount(env Env) error {
	err := d.attach(env)
	if err != nil {
		return err
	}

	return d.build()
}

func (d *Delay) build() error {
	ctx := d.env.Audio

	line, err := audio.NewDelay(ctx, d.params.GetNum("maxDelay", 1))
	if err != nil {
		return err
	}

	in, out, fb := audio.NewGain(ctx), audio.NewGain(ctx), audio.NewGain(ctx)
	line.DelayTime().SetValue(d.params.GetNum("time", 0.3))
	fb.Gain().SetValue(d.params.GetNum("feedback", 0.4))

	err = errors.Join(
		in.Connect(line),
		line.Connect(fb),
		fb.Connect(line),
		line.Connect(out),
	)
	if err != nil {
		return err
	}

	if d.line != nil {
		d.retire(d.in, d.line, d.feedback, d.out)
	}

	d.in, d.out, d.feedback, d.line = in, out, fb, line
	d.publish(map[string]patch.Socket{
		PortIn:       patch.TargetSocket{Unit: in},
		PortOut:      patch.SourceSocket{Unit: out},
		PortTime:     patch.ParamSocket{Param: line.DelayTime()},
		PortFeedback: patch.ParamSocket{Param: fb.Gain()},
	})

	return nil
}

func (d *Delay) Set(name string, value any) error {
	if name == "maxDelay" {
		var staged Params

		err := staged.set(name, value)
		if err != nil {
			return err
		}

		if !validMaxDelay(staged.GetNum(name, 0)) {
			return errMaxDelay
		}
	}

	err := d.store(name, value)
	if err != nil || !d.live {
		return err
	}

	switch name {
	case "time":
		d.line.DelayTime().SetValue(d.params.GetNum(name, 0.3))
	case "feedback":
		d.feedback.Gain().SetValue(d.params.GetNum(name, 0.4))
	case "maxDelay":
		return d.build()
	}

	return nil
}

func (d *Delay) Unmount() {
	if !d.live {
		return
	}

	d.retire(d.in, d.line, d.feedback, d.out)
	d.in, d.out, d.feedback, d.line = nil, nil, nil, nil
	d.withdraw()
}

// BitCrusher reduces resolution and sample rate.
type BitCrusher struct {
	base

	crusher *audio.BitCrusher
}

func newBitCrusher(p Params) (Widget, error) {
	return &BitCrusher{base: newBase(p, bitCrusherSchema)}, nil
}

func (b *BitCrusher) Mount(env Env) error {
	err := b.attach(env)
	if err != nil {
		return err
	}

	b.crusher = audio.NewBitCrusher(b.env.Audio)
	b.crusher.Bits().SetValue(b.params.GetNum("bits", 8))
	b.crusher.NormFreq().SetValue(b.params.GetNum("rate", 1))

	b.publish(map[string]patch.Socket{
		PortIn:   patch.TargetSocket{Unit: b.crusher},
		PortOut:  patch.SourceSocket{Unit: b.crusher},
		PortBits: patch.ParamSocket{Param: b.crusher.Bits()},
		PortRate: patch.ParamSocket{Param: b.crusher.NormFreq()},
	})

	return nil
}

func (b *BitCrusher) Set(name string, value any) error {
	err := b.store(name, value)
	if err != nil || !b.live {
		return err
	}

	switch name {
	case "bits":
		b.crusher.Bits().SetValue(b.params.GetNum(name, 8))
	case "rate":
		b.crusher.NormFreq().SetValue(b.params.GetNum(name, 1))
	}

	return nil
}

func (b *BitCrusher) Unmount() {
	if !b.live {
		return
	}

	b.retire(b.crusher)
	b.crusher = nil
	b.withdraw()
}
