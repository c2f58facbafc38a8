package modem

import "math"

// Oscillator is a phase accumulator shared by the modulator (to generate
// mark/space tones with continuous phase across bit boundaries) and the
// demodulator's I/Q local oscillator (to mix down to baseband).
type Oscillator struct {
	phase float64 // theta, kept in [0, 2*pi)
}

// Reset zeroes the accumulated phase.
func (o *Oscillator) Reset() {
	o.phase = 0
}

// Advance steps the oscillator's phase by one sample period at freq Hz
// for sampleRate, wrapping into [0, 2*pi).
func (o *Oscillator) Advance(freq float64, sampleRate int) {
	o.phase += 2 * math.Pi * freq / float64(sampleRate)
	if o.phase >= 2*math.Pi {
		o.phase -= 2 * math.Pi
	}
}

// Sin returns sin(theta) at the oscillator's current phase.
func (o *Oscillator) Sin() float64 {
	return math.Sin(o.phase)
}

// Cos returns cos(theta) at the oscillator's current phase.
func (o *Oscillator) Cos() float64 {
	return math.Cos(o.phase)
}

// Phase returns the current accumulated phase.
func (o *Oscillator) Phase() float64 {
	return o.phase
}

// WrapPi wraps an angle into [-pi, pi].
func WrapPi(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
