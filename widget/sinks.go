package widget

import (
	"errors"
	"sync"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/patch"
)

// DefaultFFTSize is the analyser length when the node names none.
const DefaultFFTSize = 2048

// Analyser is a pass-through meter. It renders even when nothing downstream
// pulls it. Changing the FFT size replaces the analyser.
type Analyser struct {
	base

	analyser *audio.Analyser
}

func validFFTSize(n int) bool {
	return n >= 32 && n <= 32768 && n&(n-1) == 0
}

func newAnalyser(p Params) (Widget, error) {
	if !validFFTSize(int(p.GetNum("fftSize", DefaultFFTSize))) {
		return nil, errors.New("widget: analyser fftSize must be a power of two in [32, 32768]")
	}

	return &Analyser{base: newBase(p, analyserSchema)}, nil
}

func (a *Analyser) Mount(env Env) error {
	err := a.attach(env)
	if err != nil {
		return err
	}

	return a.build()
}

func (a *Analyser) build() error {
	an, err := audio.NewAnalyser(a.env.Audio, int(a.params.GetNum("fftSize", DefaultFFTSize)))
	if err != nil {
		return err
	}

	if old := a.analyser; old != nil {
		old.Close()
		a.retire(old)
	}

	a.analyser = an
	a.publish(map[string]patch.Socket{
		PortIn:  patch.TargetSocket{Unit: an},
		PortOut: patch.SourceSocket{Unit: an},
	})

	return nil
}

func (a *Analyser) Set(name string, value any) error {
	prev := a.params.Clone()

	err := a.store(name, value)
	if err != nil || !a.live {
		return err
	}

	err = a.build()
	if err != nil {
		a.params = prev
	}

	return err
}

func (a *Analyser) Unmount() {
	if !a.live {
		return
	}

	a.analyser.Close()
	a.retire(a.analyser)
	a.analyser = nil
	a.withdraw()
}

// Meter returns the live analyser.
func (a *Analyser) Meter() (*audio.Analyser, error) {
	if a.analyser == nil {
		return nil, ErrNotMounted
	}

	return a.analyser, nil
}

// Output is the speaker. It registers the context destination under the
// reserved socket id. Several outputs may share one registrar; the id stays
// registered until the last of them unmounts.
type Output struct {
	base
}

func newOutput(p Params) (Widget, error) {
	return &Output{base: newBase(p, nil)}, nil
}

func (o *Output) Mount(env Env) error {
	err := o.attach(env)
	if err != nil {
		return err
	}

	destinations.claim(o.env.Sockets)
	o.publishIDs([]string{patch.DestinationID}, map[string]patch.Socket{
		patch.DestinationID: patch.TargetSocket{Unit: o.env.Audio.Destination()},
	})

	return nil
}

func (o *Output) Set(name string, value any) error {
	return o.store(name, value)
}

func (o *Output) Unmount() {
	if !o.live {
		return
	}

	if destinations.release(o.env.Sockets) > 0 {
		o.sockets = nil
		o.live = false

		return
	}

	o.withdraw()
}

// destinations counts the mounted outputs per registrar.
var destinations = claims{held: map[Registrar]int{}}

type claims struct {
	mu   sync.Mutex
	held map[Registrar]int
}

func (c *claims) claim(r Registrar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.held[r]++
}

// release drops one claim and returns how many remain.
func (c *claims) release(r Registrar) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.held[r] - 1
	if n <= 0 {
		delete(c.held, r)
		return 0
	}

	c.held[r] = n

	return n
}
