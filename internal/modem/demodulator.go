package modem

import "math"

const silenceAmplitudeThreshold = 0.01

// Demodulate consumes samples in order, accumulating internal state
// across calls, and returns any bytes whose frames completed during this
// call (possibly none).
func (m *PhysicalModem) Demodulate(samples []float32) ([]byte, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	rs := m.rs
	rs.outputBytes = rs.outputBytes[:0]

	for _, sample := range samples {
		m.demodulateSample(float64(sample))
	}

	if len(rs.outputBytes) == 0 {
		return nil, nil
	}
	out := make([]byte, len(rs.outputBytes))
	copy(out, rs.outputBytes)
	return out, nil
}

func (m *PhysicalModem) demodulateSample(s float64) {
	cfg := m.cfg
	d := m.derived
	rs := m.rs

	// 1. AGC.
	if cfg.AGCEnabled {
		s = rs.agc.Apply(s)
	}

	// 2. Band-pass pre-filter.
	s = rs.preFilter.Apply(&rs.preState, s)

	// 3. I/Q mixdown, then advance the local oscillator.
	i := s * rs.localOsc.Cos()
	q := s * rs.localOsc.Sin()
	rs.localOsc.Advance(d.CenterFreq, cfg.SampleRate)

	// 4. Low-pass I and Q at baud rate.
	i = rs.iLPFilter.Apply(&rs.iLPState, i)
	q = rs.qLPFilter.Apply(&rs.qLPState, q)

	// 5. Instantaneous phase and amplitude.
	phi := math.Atan2(q, i)
	amplitude := math.Hypot(i, q)

	// 6. Phase difference, wrapped into [-pi, pi].
	var deltaPhi float64
	if rs.havePrev {
		deltaPhi = WrapPi(phi - rs.prevPhase)
	}
	rs.prevPhase = phi
	rs.havePrev = true

	// 7. Post-filter the phase difference.
	filtered := rs.postFilter.Apply(&rs.postState, deltaPhi)

	// 8. Hard bit decision: positive discriminator output means mark (1).
	bit := byte(0)
	if filtered > 0 {
		bit = 1
	}

	// 9. Silence tracking / end-of-data.
	if amplitude < silenceAmplitudeThreshold {
		rs.silentCount++
		if rs.silentCount == rs.silenceThreshold {
			rs.resetFrame()
			if m.onEOD != nil {
				m.onEOD()
			}
		}
	} else {
		rs.silentCount = 0
	}

	// 10. Bit integration by majority vote over samples_per_bit samples.
	rs.bitAccum += int(bit)
	rs.bitAccumCount++
	if rs.bitAccumCount == d.SamplesPerBit {
		integrated := byte(0)
		if rs.bitAccum*2 > d.SamplesPerBit {
			integrated = 1
		}
		rs.bitAccum = 0
		rs.bitAccumCount = 0
		m.onIntegratedBit(integrated)
	}
}

// onIntegratedBit feeds one bit-per-samples_per_bit decision into frame
// synchronization (while unframed) or the byte assembler (once framed).
func (m *PhysicalModem) onIntegratedBit(bit byte) {
	rs := m.rs
	rs.receivedBits.WriteArray([]byte{bit})

	if !rs.frameStarted {
		if matchRatio(rs.receivedBits, rs.expectedPattern) >= m.cfg.SyncThresh {
			rs.frameStarted = true
			rs.byteReg = 0
			rs.bitPosition = 0
		}
		return
	}

	processBit(rs, m.cfg, bit)
}
