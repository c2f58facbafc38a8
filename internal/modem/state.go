package modem

import "github.com/jhan-dev/acoustic-modem/internal/shared"

// runtimeState holds everything Configure allocates and reset
// re-initializes, and everything Demodulate mutates call to call. It is
// owned by a PhysicalModem for its lifetime; Modulate does not touch it
// (modulation is stateless across calls).
type runtimeState struct {
	agc AGCState

	preFilter  BiquadCoeffs
	preState   FilterState
	iLPFilter  BiquadCoeffs
	iLPState   FilterState
	qLPFilter  BiquadCoeffs
	qLPState   FilterState
	postFilter BiquadCoeffs
	postState  FilterState

	localOsc   Oscillator
	prevPhase  float64
	havePrev   bool

	bitAccum      int
	bitAccumCount int

	expectedPattern []byte
	receivedBits    *shared.RingBuffer

	frameStarted bool
	byteReg      byte
	bitPosition  int

	silentCount     int
	silenceThreshold int

	outputBytes []byte
}

func newRuntimeState(cfg Config, d Derived) *runtimeState {
	rs := &runtimeState{
		agc:              NewAGCState(cfg.SampleRate),
		preFilter:        NewBandpassCoeffs(d.CenterFreq, d.EffectiveBW, cfg.SampleRate),
		iLPFilter:        NewLowpassCoeffs(float64(cfg.BaudRate), cfg.SampleRate),
		qLPFilter:        NewLowpassCoeffs(float64(cfg.BaudRate), cfg.SampleRate),
		postFilter:       NewLowpassCoeffs(float64(cfg.BaudRate), cfg.SampleRate),
		expectedPattern:  precomputeExpectedPattern(cfg),
		silenceThreshold: d.BitsPerByte * d.SamplesPerBit,
	}
	margin := 32
	ringLen := len(rs.expectedPattern) + margin
	rs.receivedBits = shared.NewRingBuffer(ringLen)
	return rs
}

// reset returns the runtime state to the same values newRuntimeState
// would produce, preserving the precomputed expected pattern and filter
// coefficients (which depend only on config, not on history).
func (rs *runtimeState) reset() {
	rs.agc.Reset()
	rs.preState.Reset()
	rs.iLPState.Reset()
	rs.qLPState.Reset()
	rs.postState.Reset()
	rs.localOsc.Reset()
	rs.prevPhase = 0
	rs.havePrev = false
	rs.bitAccum = 0
	rs.bitAccumCount = 0
	rs.receivedBits.Clear()
	rs.frameStarted = false
	rs.byteReg = 0
	rs.bitPosition = 0
	rs.silentCount = 0
	rs.outputBytes = nil
}

// resetFrame clears only frame/byte-assembly state and the received-bits
// ring, used after end-of-data, without disturbing the
// filter/AGC/oscillator pipeline state. A malformed start/stop bit does
// not call it: processBit only clears frameStarted.
func (rs *runtimeState) resetFrame() {
	rs.frameStarted = false
	rs.byteReg = 0
	rs.bitPosition = 0
	rs.receivedBits.Clear()
}
