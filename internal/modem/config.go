package modem

import (
	"fmt"
	"math"

	"github.com/jhan-dev/acoustic-modem/internal/shared"
)

// Config is the immutable-after-Configure description of a PhysicalModem.
type Config struct {
	SampleRate  int // Hz
	BaudRate    int // bps
	MarkFreq    float64
	SpaceFreq   float64
	StartBits   int // always 1, kept as a field for clarity at call sites
	StopBits    int // always 1
	Parity      shared.Parity
	Preamble    []byte
	SFD         []byte
	SyncThresh  float64 // match ratio in [0,1] required to lock frame sync
	AGCEnabled  bool
	PreFilterBW float64 // Hz; effective bandwidth is max(this, Carson bandwidth)
	// AdaptiveThreshold is reserved: the byte assembler does not currently
	// use it, matching spec behavior.
	AdaptiveThreshold bool
	Amplitude         float64
}

// DefaultConfig returns the interoperable default physical parameters:
// 48000 Hz sample rate, 300 baud, mark 1650 Hz / space 1850 Hz, 1 start /
// 1 stop / no parity, preamble [0x55,0x55], SFD [0x7E].
func DefaultConfig() Config {
	return Config{
		SampleRate:  48000,
		BaudRate:    300,
		MarkFreq:    1650,
		SpaceFreq:   1850,
		StartBits:   1,
		StopBits:    1,
		Parity:      shared.ParityNone,
		Preamble:    []byte{0x55, 0x55},
		SFD:         []byte{0x7E},
		SyncThresh:  0.75,
		AGCEnabled:  true,
		PreFilterBW: 800,
		Amplitude:   0.5,
	}
}

// Derived holds the invariants computed once from a Config at Configure
// time.
type Derived struct {
	SamplesPerBit int
	BitsPerByte   int
	CenterFreq    float64
	Deviation     float64
	CarsonBW      float64
	EffectiveBW   float64
}

// Validate checks the arithmetic invariants a Config must satisfy before
// a PhysicalModem can be configured with it, and returns the derived
// values on success.
func (c Config) Validate() (Derived, error) {
	if c.SampleRate <= 0 || c.BaudRate <= 0 {
		return Derived{}, fmt.Errorf("modem: %w: sample rate and baud rate must be positive", ErrInvalidConfig)
	}

	samplesPerBit := c.SampleRate / c.BaudRate
	if samplesPerBit < 4 {
		return Derived{}, fmt.Errorf("modem: %w: samples_per_bit = %d, need >= 4", ErrInvalidConfig, samplesPerBit)
	}

	nyquist := float64(c.SampleRate) / 2
	if c.MarkFreq <= 0 || c.MarkFreq >= nyquist || c.SpaceFreq <= 0 || c.SpaceFreq >= nyquist {
		return Derived{}, fmt.Errorf("modem: %w: mark/space frequency must be in (0, nyquist)", ErrInvalidConfig)
	}

	if c.StartBits != 1 || c.StopBits != 1 {
		return Derived{}, fmt.Errorf("modem: %w: start_bits and stop_bits must be 1", ErrInvalidConfig)
	}

	if c.SyncThresh < 0 || c.SyncThresh > 1 {
		return Derived{}, fmt.Errorf("modem: %w: sync threshold must be in [0,1]", ErrInvalidConfig)
	}

	bitsPerByte := shared.BitsPerByte(c.StartBits, c.StopBits, c.Parity)

	centerFreq := (c.MarkFreq + c.SpaceFreq) / 2
	deviation := math.Abs(c.SpaceFreq-c.MarkFreq) / 2
	carsonBW := 2 * (deviation + float64(c.BaudRate))
	effectiveBW := math.Max(c.PreFilterBW, carsonBW)

	return Derived{
		SamplesPerBit: samplesPerBit,
		BitsPerByte:   bitsPerByte,
		CenterFreq:    centerFreq,
		Deviation:     deviation,
		CarsonBW:      carsonBW,
		EffectiveBW:   effectiveBW,
	}, nil
}
