package modem

import "github.com/jhan-dev/acoustic-modem/internal/shared"

// precomputeExpectedPattern frames the preamble bytes followed by the
// SFD bytes into the bit sequence frame synchronization correlates
// against. It is computed once, at Configure time, from config alone.
func precomputeExpectedPattern(cfg Config) []byte {
	all := make([]byte, 0, len(cfg.Preamble)+len(cfg.SFD))
	all = append(all, cfg.Preamble...)
	all = append(all, cfg.SFD...)
	return shared.FrameBytes(all, cfg.StartBits, cfg.StopBits, cfg.Parity)
}

// matchRatio compares the last len(expected) bits of the received-bits
// ring against expected and returns the fraction that agree. If the
// ring does not yet hold enough bits, it returns 0.
func matchRatio(received *shared.RingBuffer, expected []byte) float64 {
	n := len(expected)
	if received.Len() < n {
		return 0
	}
	window := received.Tail(n)
	matches := 0
	for i := 0; i < n; i++ {
		if window[i] == expected[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}
