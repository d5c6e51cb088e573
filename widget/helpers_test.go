package widget

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-patchbay/audio"
	"github.com/cwbudde/algo-patchbay/internal/testutil"
	"github.com/cwbudde/algo-patchbay/patch"
)

type rig struct {
	ctx *audio.Context
	bay *patch.Patchbay
	env Env
}

func newRig() *rig {
	ctx := audio.NewContext()
	bay := patch.New()

	return &rig{ctx: ctx, bay: bay, env: Env{Audio: ctx, Sockets: bay}}
}

func (r *rig) mount(t *testing.T, typ, id string, data map[string]any) Widget {
	t.Helper()

	w, err := DefaultRegistry().Build(ParseParams(id, typ, data))
	require.NoError(t, err)
	require.NoError(t, w.Mount(r.env))

	return w
}

func (r *rig) energy(t *testing.T, n int) float64 {
	t.Helper()

	return testutil.RenderEnergy(t, r.ctx, n)
}

// failingDevice is an opener whose device never appears.
func failingDevice() (audio.Device, error) {
	return nil, errNoMic
}
