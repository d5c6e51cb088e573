package patch

import (
	"github.com/cwbudde/algo-patchbay/audio"
)

// spyUnit is a real gain node that records the wiring calls made on it and
// can be told to fail them.
type spyUnit struct {
	*audio.Gain

	connects      []audio.Input
	disconnects   int
	connectErr    error
	disconnectErr error
}

func newSpy(ctx *audio.Context) *spyUnit {
	return &spyUnit{Gain: audio.NewGain(ctx)}
}

func (s *spyUnit) Connect(dst audio.Input) error {
	s.connects = append(s.connects, dst)
	if s.connectErr != nil {
		return s.connectErr
	}

	return s.Gain.Connect(dst)
}

func (s *spyUnit) Disconnect() error {
	s.disconnects++
	if s.disconnectErr != nil {
		return s.disconnectErr
	}

	return s.Gain.Disconnect()
}

func ptr(s string) *string {
	return &s
}
