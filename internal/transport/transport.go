// Package transport implements ReliableTransport: a stop-and-wait ARQ
// packet transport layered over a shared.DataChannel.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jhan-dev/acoustic-modem/internal/shared"
)

// Config holds the transport-level tunables. Defaults: 3000 ms timeout,
// 10 retries, 128-byte max payload per fragment.
type Config struct {
	TimeoutMS      int
	MaxRetries     int
	MaxPayloadSize int
}

// DefaultConfig returns the spec's default transport tunables.
func DefaultConfig() Config {
	return Config{TimeoutMS: 3000, MaxRetries: 10, MaxPayloadSize: 128}
}

func (c Config) validate() error {
	if c.MaxPayloadSize <= 0 || c.MaxPayloadSize > 255 {
		return fmt.Errorf("transport: %w: max_payload_size must be in (0,255]", ErrInvalidConfig)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("transport: %w: timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// ErrInvalidConfig is returned by Configure when Config fails validation.
var ErrInvalidConfig = fmt.Errorf("invalid transport configuration")

// Transport is a ReliableTransport: single-threaded cooperative, driven
// by exactly one processing loop goroutine that is the sole caller of
// channel.Demodulate.
type Transport struct {
	mu      sync.Mutex
	channel shared.DataChannel
	cfg     Config
	logger  *log.Logger

	state State
	send  *sendProgress
	recv  *receiveProgress

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	timer *time.Timer
}

// New creates a Transport bound to channel. If logger is nil, a discard
// logger is used.
func New(channel shared.DataChannel, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Transport{channel: channel, cfg: DefaultConfig(), logger: logger, state: StateIdle}
}

// Configure validates and applies cfg. It may only be called while Idle.
func (t *Transport) Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return ErrBusy
	}
	t.cfg = cfg
	return nil
}

// Send fragments payload into chunks of at most cfg.MaxPayloadSize bytes
// (an empty payload becomes one zero-length fragment), transitions to
// Sending, and blocks until every fragment is ACKed and EOT sent, or
// until a MaxRetriesExceeded/ModemError/Reset failure. progress, if
// non-nil, is invoked after every fragment is successfully ACKed.
func (t *Transport) Send(payload []byte, progress func(fragment, total int)) error {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return ErrBusy
	}

	fragments := splitFragments(payload, t.cfg.MaxPayloadSize)
	done := make(chan error, 1)
	t.send = &sendProgress{
		fragments: fragments,
		index:     0,
		seq:       1,
		retries:   0,
		done:      done,
		progress:  progress,
	}
	t.state = StateSending
	t.startLoopLocked()
	t.sendCurrentFragmentLocked()
	t.mu.Unlock()

	return <-done
}

// Receive transitions to Receiving with expected_seq=1, blocks until an
// EOT is observed, and returns the concatenation of accepted payloads in
// SEQ order.
func (t *Transport) Receive() ([]byte, error) {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return nil, ErrBusy
	}

	done := make(chan receiveResult, 1)
	t.recv = &receiveProgress{expectedSeq: 1, done: done}
	t.state = StateReceiving
	t.startLoopLocked()
	t.mu.Unlock()

	result := <-done
	return result.payload, result.err
}

// SendControl emits a single control byte (ACK, NAK, or EOT) over the
// channel.
func (t *Transport) SendControl(ctrl byte) error {
	ctx := context.Background()
	if err := t.channel.Modulate(ctx, []byte{ctrl}); err != nil {
		return wrapModemError(err)
	}
	return nil
}

// Reset cancels any in-flight operation with ErrReset, stops the
// processing loop, and returns the transport to Idle.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.failActiveLocked(ErrReset)
	t.channel.Reset()
	t.mu.Unlock()
}

// State reports the transport's current top-level state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func splitFragments(payload []byte, maxSize int) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	var fragments [][]byte
	for i := 0; i < len(payload); i += maxSize {
		end := i + maxSize
		if end > len(payload) {
			end = len(payload)
		}
		fragments = append(fragments, payload[i:end])
	}
	return fragments
}

// startLoopLocked starts the single processing-loop goroutine that polls
// channel.Demodulate. Must be called with t.mu held.
func (t *Transport) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	t.loopCancel = cancel
	t.loopDone = make(chan struct{})
	go t.processingLoop(ctx)
}

// processingLoop is the transport's single point where the channel is
// polled, eliminating races between timeout handling and response
// handling.
func (t *Transport) processingLoop(ctx context.Context) {
	defer close(t.loopDone)
	for {
		data, err := t.channel.Demodulate(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.mu.Lock()
			t.failActiveLocked(wrapModemError(err))
			t.mu.Unlock()
			return
		}
		if len(data) == 0 {
			continue
		}

		t.mu.Lock()
		if t.state == StateIdle {
			t.mu.Unlock()
			return
		}
		if len(data) == 1 && isControl(data[0]) {
			t.handleControlLocked(data[0])
		} else {
			pkt, perr := Parse(data)
			if perr != nil {
				t.logger.Warn("packet parse error", "err", perr)
				t.handleCorruptPacketLocked()
			} else {
				t.handleDataLocked(pkt)
			}
		}
		stillRunning := t.state != StateIdle
		t.mu.Unlock()

		if !stillRunning {
			return
		}
	}
}

func isControl(b byte) bool {
	return b == ctrlACK || b == ctrlNAK || b == ctrlEOT
}

// handleControlLocked dispatches a received control byte per the
// send-side or receive-side state table. Must be called with t.mu held.
func (t *Transport) handleControlLocked(ctrl byte) {
	switch t.state {
	case StateSending:
		t.handleSendControlLocked(ctrl)
	case StateReceiving:
		if ctrl == ctrlEOT {
			t.completeReceiveLocked(nil)
		}
	}
}

func (t *Transport) handleSendControlLocked(ctrl byte) {
	s := t.send
	if s == nil {
		return
	}
	switch ctrl {
	case ctrlACK:
		t.stopTimerLocked()
		s.index++
		s.seq = NextSeq(s.seq)
		s.retries = 0
		if s.progress != nil {
			s.progress(s.index, len(s.fragments))
		}
		if s.index < len(s.fragments) {
			t.sendCurrentFragmentLocked()
		} else {
			if err := t.channel.Modulate(context.Background(), []byte{ctrlEOT}); err != nil {
				t.completeSendLocked(wrapModemError(err))
				return
			}
			t.completeSendLocked(nil)
		}
	case ctrlNAK:
		t.retryOrFailLocked()
	}
}

// handleCorruptPacketLocked NAKs a packet that failed CRC/framing
// validation while Receiving, so the sender retransmits the same SEQ.
// Must be called with t.mu held.
func (t *Transport) handleCorruptPacketLocked() {
	if t.state != StateReceiving || t.recv == nil {
		return
	}
	if err := t.channel.Modulate(context.Background(), []byte{ctrlNAK}); err != nil {
		t.completeReceiveLocked(wrapModemError(err))
	}
}

func (t *Transport) handleDataLocked(pkt Packet) {
	switch t.state {
	case StateReceiving:
		t.handleReceiveDataLocked(pkt)
	case StateSending:
		// A data packet while sending is not expected by the state
		// table; ignore it, the loop keeps running.
	}
}

func (t *Transport) handleReceiveDataLocked(pkt Packet) {
	r := t.recv
	if r == nil {
		return
	}
	if pkt.Seq == r.expectedSeq {
		r.accumulated = append(r.accumulated, pkt.Payload...)
		r.expectedSeq = NextSeq(r.expectedSeq)
		if err := t.channel.Modulate(context.Background(), []byte{ctrlACK}); err != nil {
			t.completeReceiveLocked(wrapModemError(err))
		}
		return
	}
	if err := t.channel.Modulate(context.Background(), []byte{ctrlNAK}); err != nil {
		t.completeReceiveLocked(wrapModemError(err))
	}
}

// sendCurrentFragmentLocked serializes and modulates the current
// fragment, then arms a token-validated retransmit timer. Must be
// called with t.mu held.
func (t *Transport) sendCurrentFragmentLocked() {
	s := t.send
	pkt := Create(s.seq, s.fragments[s.index])
	encoded := pkt.Encode()

	if err := t.channel.Modulate(context.Background(), encoded); err != nil {
		t.completeSendLocked(wrapModemError(err))
		return
	}

	s.token = sendToken{seq: s.seq, fragmentIndex: s.index}
	t.armTimerLocked(s.token)
}

func (t *Transport) armTimerLocked(token sendToken) {
	t.stopTimerLocked()
	timeout := time.Duration(t.cfg.TimeoutMS) * time.Millisecond
	t.timer = time.AfterFunc(timeout, func() {
		t.onTimeout(token)
	})
}

func (t *Transport) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// onTimeout fires from a timer goroutine. It re-checks the token against
// current state before acting: if the fragment index has advanced, or
// the transport has left Sending, the stale timer is a no-op.
func (t *Transport) onTimeout(token sendToken) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateSending || t.send == nil {
		return
	}
	if t.send.token != token {
		return
	}
	t.retryOrFailLocked()
}

func (t *Transport) retryOrFailLocked() {
	s := t.send
	if s == nil {
		return
	}
	s.retries++
	if s.retries > t.cfg.MaxRetries {
		t.completeSendLocked(ErrMaxRetriesExceeded)
		return
	}
	t.sendCurrentFragmentLocked()
}

func (t *Transport) completeSendLocked(err error) {
	s := t.send
	if s == nil {
		return
	}
	t.stopTimerLocked()
	t.send = nil
	t.state = StateIdle
	t.stopLoopLocked()
	s.done <- err
}

func (t *Transport) completeReceiveLocked(err error) {
	r := t.recv
	if r == nil {
		return
	}
	t.recv = nil
	t.state = StateIdle
	t.stopLoopLocked()
	r.done <- receiveResult{payload: r.accumulated, err: err}
}

// failActiveLocked fails whichever operation is active with err and
// returns the transport to Idle. Must be called with t.mu held.
func (t *Transport) failActiveLocked(err error) {
	switch t.state {
	case StateSending:
		t.completeSendLocked(err)
	case StateReceiving:
		t.completeReceiveLocked(err)
	}
}

// stopLoopLocked cancels the processing loop's context so a
// Demodulate call blocked with nothing left to do returns promptly.
// Must be called with t.mu held.
func (t *Transport) stopLoopLocked() {
	if t.loopCancel != nil {
		t.loopCancel()
		t.loopCancel = nil
	}
}
