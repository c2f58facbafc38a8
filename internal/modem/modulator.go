package modem

import "github.com/jhan-dev/acoustic-modem/internal/shared"

// Modulate produces the full audio representation of one frame: guard
// silence, preamble bytes, SFD bytes, payload bytes, trailing silence.
// Modulation is stateless across calls: a fresh oscillator starts the
// frame, but phase stays continuous across every bit boundary within it.
func (m *PhysicalModem) Modulate(payload []byte) ([]float32, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	cfg := m.cfg
	d := m.derived

	guardLen := 2 * d.SamplesPerBit
	trailingLen := d.BitsPerByte * d.SamplesPerBit

	allBytes := make([]byte, 0, len(cfg.Preamble)+len(cfg.SFD)+len(payload))
	allBytes = append(allBytes, cfg.Preamble...)
	allBytes = append(allBytes, cfg.SFD...)
	allBytes = append(allBytes, payload...)

	totalBits := len(allBytes) * d.BitsPerByte
	out := make([]float32, 0, guardLen+totalBits*d.SamplesPerBit+trailingLen)

	for i := 0; i < guardLen; i++ {
		out = append(out, 0)
	}

	var osc Oscillator
	for _, b := range allBytes {
		bits := shared.FrameByte(b, cfg.StartBits, cfg.StopBits, cfg.Parity)
		for _, bit := range bits {
			freq := cfg.SpaceFreq
			if bit == 1 {
				freq = cfg.MarkFreq
			}
			for s := 0; s < d.SamplesPerBit; s++ {
				out = append(out, float32(cfg.Amplitude*osc.Sin()))
				osc.Advance(freq, cfg.SampleRate)
			}
		}
	}

	for i := 0; i < trailingLen; i++ {
		out = append(out, 0)
	}

	return out, nil
}
