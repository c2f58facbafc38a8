package modem

import "math"

// BiquadCoeffs holds a Direct Form I biquad's feedforward/feedback
// coefficients, computed once from a Config's derived values. The
// pre-filter (band-pass at center_freq) and every low-pass stage (I, Q,
// post) share this same cell shape; only the coefficients differ.
type BiquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// FilterState holds one biquad's running input/output history. It is a
// plain struct, not a polymorphic filter object: the coefficients are
// computed once at Configure time and shared across every sample, only
// the state advances.
type FilterState struct {
	x1, x2 float64
	y1, y2 float64
}

// Apply runs one sample through the biquad described by c, mutating s in
// place and returning the filtered sample.
func (c BiquadCoeffs) Apply(s *FilterState, x float64) float64 {
	y := c.b0*x + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

// Reset zeroes a filter's running history without changing its
// coefficients.
func (s *FilterState) Reset() {
	*s = FilterState{}
}

// NewBandpassCoeffs builds an RBJ constant-skirt-gain band-pass biquad
// centered at centerFreq with the given bandwidth (both Hz), at
// sampleRate.
func NewBandpassCoeffs(centerFreq, bandwidth float64, sampleRate int) BiquadCoeffs {
	w0 := 2 * math.Pi * centerFreq / float64(sampleRate)
	q := centerFreq / math.Max(bandwidth, 1)
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	b0 := q * alpha
	b1 := 0.0
	b2 := -q * alpha
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return BiquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// NewLowpassCoeffs builds an RBJ low-pass biquad with corner frequency
// cutoff Hz at sampleRate.
func NewLowpassCoeffs(cutoff float64, sampleRate int) BiquadCoeffs {
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	alpha := math.Sin(w0) / math.Sqrt2
	cosW0 := math.Cos(w0)

	b0 := (1 - cosW0) / 2
	b1 := 1 - cosW0
	b2 := (1 - cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return BiquadCoeffs{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}
