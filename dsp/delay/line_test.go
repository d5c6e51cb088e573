package delay

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// --- construction and validation ---

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for size=0")
	}

	if _, err := New(-1); err == nil {
		t.Fatal("expected error for size=-1")
	}
}

func TestForSeconds(t *testing.T) {
	d, err := ForSeconds(0.01, 48000)
	if err != nil {
		t.Fatal(err)
	}

	// 480 samples of delay behind the newest sample must be reachable.
	if d.MaxDelay() < 481 {
		t.Fatalf("MaxDelay: got %v want >= 481", d.MaxDelay())
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := ForSeconds(bad, 48000); err == nil {
			t.Fatalf("expected error for %v seconds", bad)
		}
	}
}

// --- integer Read/Write ---

func TestReadWrite(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		d.Write(float64(i))
	}

	// delay=1 => most recently written (7)
	if got := d.Read(1); got != 7 {
		t.Fatalf("got %v want 7", got)
	}

	if got := d.Read(3); got != 5 {
		t.Fatalf("got %v want 5", got)
	}
}

func TestReadWraparound(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		d.Write(float64(i))
	}

	want := map[int]float64{1: 9, 2: 8, 3: 7, 4: 6, 5: 9}
	for delay, w := range want {
		if got := d.Read(delay); got != w {
			t.Fatalf("Read(%d): got %v want %v", delay, got, w)
		}
	}
}

// --- fractional reads ---

func TestReadFractionalIntegerIsExact(t *testing.T) {
	d, err := New(32)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		d.Write(math.Sin(float64(i)))
	}

	for delay := 1; delay <= 10; delay++ {
		if got, want := d.ReadFractional(float64(delay)), d.Read(delay); got != want {
			t.Fatalf("delay %d: got %v want %v", delay, got, want)
		}
	}
}

func TestReadFractionalFollowsRamp(t *testing.T) {
	d, err := New(32)
	if err != nil {
		t.Fatal(err)
	}

	// Cubic Hermite reproduces a linear ramp exactly.
	for i := 0; i < 20; i++ {
		d.Write(float64(i))
	}

	for _, delay := range []float64{2.25, 3.5, 7.75} {
		want := 20 - delay
		if got := d.ReadFractional(delay); !approxEqual(got, want, 1e-12) {
			t.Fatalf("delay %v: got %v want %v", delay, got, want)
		}
	}
}

func TestReadFractionalClamps(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		d.Write(float64(i + 1))
	}

	if got := d.ReadFractional(0); got != 8 {
		t.Fatalf("below range: got %v want newest sample 8", got)
	}

	if got, want := d.ReadFractional(100), d.ReadFractional(d.MaxDelay()); got != want {
		t.Fatalf("above range: got %v want %v", got, want)
	}
}

func TestReset(t *testing.T) {
	d, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	d.Write(1)
	d.Write(2)
	d.Reset()

	for delay := 1; delay <= 4; delay++ {
		if got := d.Read(delay); got != 0 {
			t.Fatalf("Read(%d) after reset: got %v", delay, got)
		}
	}
}
