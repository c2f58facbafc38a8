// Package modem implements the PhysicalModem: a continuous-phase binary
// FSK modem that turns byte buffers into audio sample buffers and
// streams sample buffers back into bytes.
package modem

import (
	"io"

	"github.com/charmbracelet/log"
)

// PhysicalModem is stateful and sample-by-sample. A given instance must
// be driven from one logical goroutine at a time; it is not safe for
// concurrent use.
type PhysicalModem struct {
	configured bool
	cfg        Config
	derived    Derived
	rs         *runtimeState
	logger     *log.Logger
	onEOD      func()
}

// OnEndOfData registers a callback invoked synchronously, from within
// Demodulate, whenever sustained silence resets the frame/byte state.
// This replaces an asynchronous "end-of-data" event emitter with an
// explicit callback. It may be set before or after Configure; a later
// call replaces the earlier callback, and nil removes it.
func (m *PhysicalModem) OnEndOfData(fn func()) {
	m.onEOD = fn
}

// New creates an unconfigured PhysicalModem. If logger is nil, a
// discard logger is used so callers that do not care about modem
// diagnostics pay nothing for them.
func New(logger *log.Logger) *PhysicalModem {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PhysicalModem{logger: logger}
}

// Configure validates cfg, allocates DSP state, and precomputes the
// preamble+SFD expected bit pattern. It transitions the modem to ready.
func (m *PhysicalModem) Configure(cfg Config) error {
	derived, err := cfg.Validate()
	if err != nil {
		return err
	}
	m.cfg = cfg
	m.derived = derived
	m.rs = newRuntimeState(cfg, derived)
	m.configured = true
	m.logger.Debug("modem configured",
		"samples_per_bit", derived.SamplesPerBit,
		"bits_per_byte", derived.BitsPerByte,
		"center_freq", derived.CenterFreq)
	return nil
}

// Reset returns the modem to the initial ready state, preserving config.
func (m *PhysicalModem) Reset() error {
	if !m.configured {
		return ErrNotConfigured
	}
	m.rs.reset()
	return nil
}
