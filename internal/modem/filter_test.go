package modem

import "testing"

func TestBiquad_DCLowpassSettlesNearInput(t *testing.T) {
	c := NewLowpassCoeffs(100, 48000)
	var s FilterState

	var y float64
	for i := 0; i < 5000; i++ {
		y = c.Apply(&s, 1.0)
	}
	if y < 0.9 || y > 1.1 {
		t.Fatalf("lowpass settled output = %v, want close to 1.0", y)
	}
}

func TestBiquad_ResetClearsHistory(t *testing.T) {
	c := NewLowpassCoeffs(300, 48000)
	var s FilterState

	for i := 0; i < 100; i++ {
		c.Apply(&s, 1.0)
	}
	s.Reset()
	if s.x1 != 0 || s.x2 != 0 || s.y1 != 0 || s.y2 != 0 {
		t.Fatalf("Reset() left nonzero state: %+v", s)
	}
}

func TestBandpass_AttenuatesDC(t *testing.T) {
	c := NewBandpassCoeffs(1750, 800, 48000)
	var s FilterState

	var y float64
	for i := 0; i < 2000; i++ {
		y = c.Apply(&s, 1.0)
	}
	if y > 0.1 {
		t.Fatalf("bandpass DC response = %v, want near 0", y)
	}
}
