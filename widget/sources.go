package widget

import (
	"log/slog"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/patch"
)

// Oscillator wraps an audio.Oscillator. Changing the waveform replaces the
// oscillator, since a stopped one cannot be restarted.
type Oscillator struct {
	base

	osc *audio.Oscillator
}

func newOscillator(p Params) (Widget, error) {
	_, err := audio.ParseWaveform(p.GetStr("type", "sine"))
	if err != nil {
		return nil, err
	}

	return &Oscillator{base: newBase(p, oscillatorSchema)}, nil
}

func (o *Oscillator) Mount(env Env) error {
	err := o.attach(env)
	if err != nil {
		return err
	}

	return o.build()
}

func (o *Oscillator) build() error {
	wave, err := audio.ParseWaveform(o.params.GetStr("type", "sine"))
	if err != nil {
		return err
	}

	osc := audio.NewOscillator(o.env.Audio, wave)
	osc.Frequency().SetValue(o.params.GetNum("frequency", 440))
	osc.Detune().SetValue(o.params.GetNum("detune", 0))

	err = osc.Start()
	if err != nil {
		return err
	}

	if old := o.osc; old != nil {
		_ = old.Stop()
		o.retire(old)
	}

	o.osc = osc
	o.publish(map[string]patch.Socket{
		PortOut:    patch.SourceSocket{Unit: osc},
		PortFreq:   patch.ParamSocket{Param: osc.Frequency()},
		PortDetune: patch.ParamSocket{Param: osc.Detune()},
	})

	return nil
}

func (o *Oscillator) Set(name string, value any) error {
	if name == "type" {
		s, ok := value.(string)
		if !ok {
			return kindError(name, Text, value)
		}

		_, err := audio.ParseWaveform(s)
		if err != nil {
			return err
		}
	}

	err := o.store(name, value)
	if err != nil || !o.live {
		return err
	}

	switch name {
	case "type":
		return o.build()
	case "frequency":
		o.osc.Frequency().SetValue(o.params.GetNum(name, 440))
	case "detune":
		o.osc.Detune().SetValue(o.params.GetNum(name, 0))
	}

	return nil
}

func (o *Oscillator) Unmount() {
	if !o.live {
		return
	}

	_ = o.osc.Stop()
	o.retire(o.osc)
	o.osc = nil
	o.withdraw()
}

// Unit returns the live oscillator, or nil before Mount.
func (o *Oscillator) Unit() *audio.Oscillator {
	return o.osc
}

// Noise is a white noise source. Changing the seed replaces the generator.
type Noise struct {
	base

	noise *audio.Noise
}

func newNoise(p Params) (Widget, error) {
	return &Noise{base: newBase(p, noiseSchema)}, nil
}

func (n *Noise) Mount(env Env) error {
	err := n.attach(env)
	if err != nil {
		return err
	}

	n.build()

	return nil
}

func (n *Noise) build() {
	noise := audio.NewNoise(n.env.Audio, uint64(n.params.GetNum("seed", 1)))

	if n.noise != nil {
		n.retire(n.noise)
	}

	n.noise = noise
	n.publish(map[string]patch.Socket{PortOut: patch.SourceSocket{Unit: noise}})
}

func (n *Noise) Set(name string, value any) error {
	err := n.store(name, value)
	if err != nil || !n.live {
		return err
	}

	n.build()

	return nil
}

func (n *Noise) Unmount() {
	if !n.live {
		return
	}

	n.retire(n.noise)
	n.noise = nil
	n.withdraw()
}

// Constant outputs a steady, modulatable level.
type Constant struct {
	base

	src *audio.ConstantSource
}

func newConstant(p Params) (Widget, error) {
	return &Constant{base: newBase(p, constantSchema)}, nil
}

func (c *Constant) Mount(env Env) error {
	err := c.attach(env)
	if err != nil {
		return err
	}

	c.src = audio.NewConstantSource(c.env.Audio)
	c.src.Offset().SetValue(c.params.GetNum("offset", 1))

	c.publish(map[string]patch.Socket{
		PortOut:    patch.SourceSocket{Unit: c.src},
		PortOffset: patch.ParamSocket{Param: c.src.Offset()},
	})

	return nil
}

func (c *Constant) Set(name string, value any) error {
	err := c.store(name, value)
	if err != nil || !c.live {
		return err
	}

	c.src.Offset().SetValue(c.params.GetNum(name, 1))

	return nil
}

func (c *Constant) Unmount() {
	if !c.live {
		return
	}

	c.retire(c.src)
	c.src = nil
	c.withdraw()
}

// Input is a live capture source. When no device can be acquired the widget
// stays mounted without sockets, and edges to it are simply not wired.
type Input struct {
	base

	in *audio.LiveInput
}

func newInput(p Params) (Widget, error) {
	return &Input{base: newBase(p, nil)}, nil
}

func (i *Input) Mount(env Env) error {
	err := i.attach(env)
	if err != nil {
		return err
	}

	in, err := audio.NewLiveInput(i.env.Audio, i.env.Devices)
	if err != nil {
		i.env.Logger.Warn("live input unavailable",
			slog.String("node", i.params.ID), slog.Any("error", err))

		return nil
	}

	i.in = in
	i.publish(map[string]patch.Socket{PortOut: patch.SourceSocket{Unit: in}})

	return nil
}

// Available reports whether a device backs the widget.
func (i *Input) Available() bool {
	return i.in != nil
}

func (i *Input) Set(name string, value any) error {
	return i.store(name, value)
}

func (i *Input) Unmount() {
	if !i.live {
		return
	}

	if i.in != nil {
		i.retire(i.in)

		err := i.in.Close()
		if err != nil {
			i.env.Logger.Debug("close input device",
				slog.String("node", i.params.ID), slog.Any("error", err))
		}

		i.in = nil
	}

	i.withdraw()
}
