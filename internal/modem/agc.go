package modem

import "math"

const (
	agcAttackMS  = 1.0
	agcReleaseMS = 10.0
	agcTarget    = 0.5
	agcMinGain   = 0.1
	agcMaxGain   = 10.0
)

// AGCState is a one-pole envelope follower driving a feedback gain that
// normalizes input amplitude toward agcTarget. Attack and release are
// expressed as IIR coefficients derived from the sample rate, matching
// typical attack ~1ms / release ~10ms envelope followers.
type AGCState struct {
	envelope   float64
	gain       float64
	attackCoef float64
	relCoef    float64
}

// NewAGCState builds an AGCState for the given sample rate with unity
// initial gain.
func NewAGCState(sampleRate int) AGCState {
	return AGCState{
		gain:       1.0,
		attackCoef: math.Exp(-1.0 / (agcAttackMS / 1000 * float64(sampleRate))),
		relCoef:    math.Exp(-1.0 / (agcReleaseMS / 1000 * float64(sampleRate))),
	}
}

// Reset zeroes the envelope estimate and returns gain to unity.
func (a *AGCState) Reset() {
	a.envelope = 0
	a.gain = 1.0
}

// Apply runs one sample through the AGC, updating its envelope and gain
// state, and returns the gain-adjusted sample.
func (a *AGCState) Apply(x float64) float64 {
	rectified := math.Abs(x)
	if rectified > a.envelope {
		a.envelope = a.attackCoef*a.envelope + (1-a.attackCoef)*rectified
	} else {
		a.envelope = a.relCoef*a.envelope + (1-a.relCoef)*rectified
	}

	if a.envelope > 1e-9 {
		a.gain = agcTarget / a.envelope
	}
	if a.gain < agcMinGain {
		a.gain = agcMinGain
	}
	if a.gain > agcMaxGain {
		a.gain = agcMaxGain
	}

	return x * a.gain
}
