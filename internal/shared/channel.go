package shared

import "context"

// DataChannel is the boundary between a ReliableTransport and whatever
// carries bytes for it, normally a PhysicalModem driven by a real audio
// adaptor, or, in this repository's tests and demo CLI, a LoopbackChannel
// wiring two PhysicalModems together in memory.
//
// Demodulate suspends the caller until at least one byte is available,
// so the processing loop's single call site is the only place data
// arrives; this is what lets the transport avoid a separate listener
// goroutine racing against timeout handling.
type DataChannel interface {
	// Modulate hands data to the modem for transmission. It returns once
	// the modem has enqueued the buffer, not once the represented audio
	// has finished "playing".
	Modulate(ctx context.Context, data []byte) error

	// Demodulate blocks until the modem has surfaced at least one byte,
	// then returns the buffered bytes. The returned slice may hold a
	// single byte, which matters for control-byte delivery.
	Demodulate(ctx context.Context) ([]byte, error)

	// Reset drops any pending transmit queue and any demodulated bytes
	// not yet surfaced to the caller.
	Reset()
}
