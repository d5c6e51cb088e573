package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

const eps = 1e-12

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewSection(t *testing.T) {
	c := Coefficients{B0: 1, B1: 2, B2: 3, A1: 4, A2: 5}
	s := NewSection(c)
	if s.Coefficients != c {
		t.Fatalf("coefficients mismatch: got %v, want %v", s.Coefficients, c)
	}
	if st := s.State(); st != [2]float64{0, 0} {
		t.Fatalf("initial state not zero: %v", st)
	}
}

func TestProcessSample_DFIIT(t *testing.T) {
	// Hand-traced with B0=0.25, B1=0.5, B2=0.25, A1=-0.2, A2=0.04 and an
	// impulse input:
	//
	// n=0: y=0.25, d0=0.5+0.05=0.55, d1=0.25-0.01=0.24
	// n=1: y=0.55, d0=0.11+0.24=0.35, d1=-0.022
	// n=2: y=0.35, d0=0.07-0.022=0.048, d1=-0.014
	// n=3: y=0.048
	s := NewSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})

	want := []float64{0.25, 0.55, 0.35, 0.048}
	for i, w := range want {
		var x float64
		if i == 0 {
			x = 1
		}
		if y := s.ProcessSample(x); !almostEqual(y, w, eps) {
			t.Fatalf("sample %d: got %v, want %v", i, y, w)
		}
	}
}

func TestProcessBlock_MatchesProcessSample(t *testing.T) {
	c := Coefficients{B0: 0.2, B1: 0.4, B2: 0.2, A1: -0.6, A2: 0.2}

	// Odd length exercises the unrolled loop's tail.
	input := make([]float64, 101)
	for i := range input {
		input[i] = math.Sin(float64(i) * 0.3)
	}

	ref := NewSection(c)
	want := make([]float64, len(input))
	for i, x := range input {
		want[i] = ref.ProcessSample(x)
	}

	got := append([]float64(nil), input...)
	NewSection(c).ProcessBlock(got)

	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestProcessBlockTo_LeavesSourceIntact(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.5, B1: 0.5})
	src := []float64{1, 1, 1, 1}
	dst := make([]float64, len(src))

	s.ProcessBlockTo(dst, src)

	want := []float64{0.5, 1, 1, 1}
	for i := range want {
		if !almostEqual(dst[i], want[i], eps) {
			t.Fatalf("dst[%d]: got %v, want %v", i, dst[i], want[i])
		}
		if src[i] != 1 {
			t.Fatalf("src[%d] modified: %v", i, src[i])
		}
	}
}

func TestSetCoefficients_KeepsState(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.5, B1: 0.5})
	s.ProcessSample(1)
	before := s.State()

	s.SetCoefficients(Coefficients{B0: 1})
	if s.State() != before {
		t.Fatalf("state changed: got %v, want %v", s.State(), before)
	}

	// The pending 0.5 from the old two-tap average still comes out.
	if y := s.ProcessSample(0); !almostEqual(y, 0.5, eps) {
		t.Fatalf("got %v, want 0.5", y)
	}
}

func TestReset(t *testing.T) {
	s := NewSection(Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04})
	s.ProcessSample(1)
	s.Reset()
	if st := s.State(); st != [2]float64{0, 0} {
		t.Fatalf("state after reset: %v", st)
	}
}

func TestProcessBlock_FlushesDecayedState(t *testing.T) {
	s := NewSection(Coefficients{B0: 1, A1: -0.5})
	s.ProcessBlock([]float64{1})

	buf := make([]float64, 100) // leaves d0 = 0.5^101
	s.ProcessBlock(buf)

	if st := s.State(); st != [2]float64{0, 0} {
		t.Fatalf("state not flushed: %v", st)
	}
}

func TestResponse(t *testing.T) {
	sr := 48000.0

	pass := Coefficients{B0: 1}
	if h := pass.Response(1234, sr); !almostEqual(cmplx.Abs(h), 1, eps) {
		t.Fatalf("passthrough |H| = %v, want 1", cmplx.Abs(h))
	}

	// Two-tap average: unity at DC, zero at Nyquist.
	avg := Coefficients{B0: 0.5, B1: 0.5}
	if h := avg.Response(0, sr); !almostEqual(cmplx.Abs(h), 1, eps) {
		t.Fatalf("DC |H| = %v, want 1", cmplx.Abs(h))
	}
	if h := avg.Response(sr/2, sr); !almostEqual(cmplx.Abs(h), 0, 1e-9) {
		t.Fatalf("Nyquist |H| = %v, want 0", cmplx.Abs(h))
	}
}
