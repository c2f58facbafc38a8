package modem

import (
	"testing"

	"github.com/jhan-dev/acoustic-modem/internal/shared"
)

func TestPrecomputeExpectedPattern_MatchesManualFraming(t *testing.T) {
	cfg := DefaultConfig()
	pattern := precomputeExpectedPattern(cfg)

	want := shared.FrameBytes([]byte{0x55, 0x55, 0x7E}, cfg.StartBits, cfg.StopBits, cfg.Parity)
	if len(pattern) != len(want) {
		t.Fatalf("len(pattern) = %d, want %d", len(pattern), len(want))
	}
	for i := range want {
		if pattern[i] != want[i] {
			t.Fatalf("pattern[%d] = %d, want %d", i, pattern[i], want[i])
		}
	}
}

func TestMatchRatio_PerfectAndPartialMatch(t *testing.T) {
	expected := []byte{1, 0, 1, 1, 0}
	ring := shared.NewRingBuffer(16)
	ring.WriteArray(expected)

	if r := matchRatio(ring, expected); r != 1.0 {
		t.Fatalf("matchRatio(exact) = %v, want 1.0", r)
	}

	ring.Clear()
	ring.WriteArray([]byte{1, 0, 1, 0, 0}) // one bit differs from expected
	if r := matchRatio(ring, expected); r >= 1.0 {
		t.Fatalf("matchRatio(one flip) = %v, want < 1.0", r)
	}
}

func TestMatchRatio_InsufficientHistoryIsZero(t *testing.T) {
	expected := []byte{1, 0, 1, 1, 0}
	ring := shared.NewRingBuffer(16)
	ring.WriteArray([]byte{1, 0})

	if r := matchRatio(ring, expected); r != 0 {
		t.Fatalf("matchRatio(short history) = %v, want 0", r)
	}
}

// TestPreambleTruncationTolerance exercises the boundary behavior that
// preamble truncation in the 25-50% range may or may not still permit
// frame lock depending on bit-pattern alignment with the SFD (it is not
// guaranteed to succeed, only tolerated if it does); what must hold
// regardless is that a partial preamble never causes a wrong payload to
// be produced.
func TestPreambleTruncationTolerance(t *testing.T) {
	cfg := DefaultConfig()
	payload := []byte{0xAB}

	modulator := newConfiguredModem(t, cfg)
	samples, err := modulator.Modulate(payload)
	if err != nil {
		t.Fatalf("Modulate() = %v", err)
	}

	d, _ := cfg.Validate()
	preambleSamples := len(cfg.Preamble) * d.BitsPerByte * d.SamplesPerBit
	guardLen := 2 * d.SamplesPerBit
	truncateFromPreamble := preambleSamples * 40 / 100

	truncated := samples[guardLen+truncateFromPreamble:]

	demod := newConfiguredModem(t, cfg)
	got, err := demod.Demodulate(truncated)
	if err != nil {
		t.Fatalf("Demodulate() = %v", err)
	}
	if len(got) != 0 && string(got) != string(payload) {
		t.Fatalf("Demodulate(truncated preamble) = %v, want empty or %v", got, payload)
	}
}

// TestPreambleHeavyTruncationMayFail documents the 75%-truncation
// boundary: the matcher is permitted to fail to lock, but must never
// emit a wrong payload.
func TestPreambleHeavyTruncationMayFail(t *testing.T) {
	cfg := DefaultConfig()
	payload := []byte{0xCD}

	modulator := newConfiguredModem(t, cfg)
	samples, err := modulator.Modulate(payload)
	if err != nil {
		t.Fatalf("Modulate() = %v", err)
	}

	d, _ := cfg.Validate()
	preambleSamples := len(cfg.Preamble) * d.BitsPerByte * d.SamplesPerBit
	guardLen := 2 * d.SamplesPerBit
	truncateFromPreamble := preambleSamples * 75 / 100

	truncated := samples[guardLen+truncateFromPreamble:]

	demod := newConfiguredModem(t, cfg)
	got, err := demod.Demodulate(truncated)
	if err != nil {
		t.Fatalf("Demodulate() = %v", err)
	}
	if len(got) != 0 && string(got) != string(payload) {
		t.Fatalf("Demodulate(heavily truncated preamble) = %v, want empty or %v", got, payload)
	}
}
