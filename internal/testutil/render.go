package testutil

import "testing"

// Renderer is anything that produces the next samples of a patch.
type Renderer interface {
	Render(out []float64) error
}

// Render pulls n samples from r, failing t on error.
func Render(t *testing.T, r Renderer, n int) []float64 {
	t.Helper()
	out := make([]float64, n)
	if err := r.Render(out); err != nil {
		t.Fatalf("render %d samples: %v", n, err)
	}
	return out
}

// RenderEnergy pulls n samples from r and returns their energy.
func RenderEnergy(t *testing.T, r Renderer, n int) float64 {
	t.Helper()
	return Energy(Render(t, r, n))
}

// ConstDevice is a capture device that reads a constant level.
type ConstDevice struct {
	Level float64
}

// Read fills p with the level.
func (d ConstDevice) Read(p []float64) (int, error) {
	for i := range p {
		p[i] = d.Level
	}
	return len(p), nil
}

// Close does nothing.
func (ConstDevice) Close() error { return nil }
