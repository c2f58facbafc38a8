package transport

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jhan-dev/acoustic-modem/internal/modem"
)

// LoopbackChannel is a shared.DataChannel that plays the role of the
// real audio I/O adaptor: it drives a PhysicalModem to modulate outgoing
// bytes, then feeds the resulting samples straight into a peer
// LoopbackChannel's receive-side PhysicalModem, rather than playing them
// out over a sound card. It exists for this repository's self-contained
// demo CLI and tests.
type LoopbackChannel struct {
	txModem *modem.PhysicalModem

	mu       sync.Mutex
	rxModem  *modem.PhysicalModem
	outBytes chan []byte

	peer *LoopbackChannel
}

// NewLoopbackPair builds two LoopbackChannels wired back to back: bytes
// modulated on one surface, after an in-memory round trip through
// PhysicalModem.Modulate/Demodulate, on the other's Demodulate.
func NewLoopbackPair(cfg modem.Config, logger *log.Logger) (a, b *LoopbackChannel, err error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	aTx, bRx := modem.New(logger), modem.New(logger)
	bTx, aRx := modem.New(logger), modem.New(logger)

	for _, m := range []*modem.PhysicalModem{aTx, bRx, bTx, aRx} {
		if err := m.Configure(cfg); err != nil {
			return nil, nil, err
		}
	}

	a = &LoopbackChannel{txModem: aTx, rxModem: aRx, outBytes: make(chan []byte, 64)}
	b = &LoopbackChannel{txModem: bTx, rxModem: bRx, outBytes: make(chan []byte, 64)}
	a.peer = b
	b.peer = a
	return a, b, nil
}

// Modulate hands data to this endpoint's transmit modem and delivers the
// resulting samples directly into the peer's receive modem.
func (c *LoopbackChannel) Modulate(ctx context.Context, data []byte) error {
	samples, err := c.txModem.Modulate(data)
	if err != nil {
		return err
	}

	c.peer.mu.Lock()
	bytes, err := c.peer.rxModem.Demodulate(samples)
	c.peer.mu.Unlock()
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		return nil
	}

	select {
	case c.peer.outBytes <- bytes:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Demodulate blocks until the peer has modulated at least one byte
// across, or ctx is done.
func (c *LoopbackChannel) Demodulate(ctx context.Context) ([]byte, error) {
	select {
	case b := <-c.outBytes:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset drops any buffered demodulated bytes and resets both the
// transmit and receive modems' runtime state.
func (c *LoopbackChannel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case <-c.outBytes:
			continue
		default:
		}
		break
	}
	c.txModem.Reset()
	c.rxModem.Reset()
}
