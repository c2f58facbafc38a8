package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockChannel is a shared.DataChannel test double: Demodulate drains a
// queue the test pushes into, Modulate records everything sent for
// assertions. It lets tests drive the send-side and receive-side state
// machines directly, without a real modem round trip.
type mockChannel struct {
	mu       sync.Mutex
	inbound  [][]byte
	sent     [][]byte
	resetHit int
}

func (m *mockChannel) Modulate(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

func (m *mockChannel) Demodulate(ctx context.Context) ([]byte, error) {
	for {
		m.mu.Lock()
		if len(m.inbound) > 0 {
			b := m.inbound[0]
			m.inbound = m.inbound[1:]
			m.mu.Unlock()
			return b, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (m *mockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = nil
	m.resetHit++
}

func (m *mockChannel) push(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, b)
}

func (m *mockChannel) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockChannel) sentSnapshot() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// TestRetryExhaustion is end-to-end scenario 6: timeout_ms=100,
// max_retries=3, no responses injected. Expect 1 original + 3
// retransmissions (4 total serialized packets), then
// MaxRetriesExceeded, then Idle.
func TestRetryExhaustion(t *testing.T) {
	ch := &mockChannel{}
	tr := New(ch, nil)
	if err := tr.Configure(Config{TimeoutMS: 100, MaxRetries: 3, MaxPayloadSize: 128}); err != nil {
		t.Fatalf("Configure() = %v", err)
	}

	err := tr.Send([]byte{0x42}, nil)
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Fatalf("Send() = %v, want ErrMaxRetriesExceeded", err)
	}

	if got := ch.sentCount(); got != 4 {
		t.Fatalf("sentCount() = %d, want 4", got)
	}
	if got := tr.State(); got != StateIdle {
		t.Fatalf("State() = %v, want Idle", got)
	}
}

// TestCRCErrorTriggersNAKNotSeqAdvance is end-to-end scenario 5: a
// packet with a corrupted trailing CRC byte must be rejected by the
// receiver with a NAK, and expected_seq must not advance.
func TestCRCErrorTriggersNAKNotSeqAdvance(t *testing.T) {
	ch := &mockChannel{}
	tr := New(ch, nil)
	if err := tr.Configure(DefaultConfig()); err != nil {
		t.Fatalf("Configure() = %v", err)
	}

	resultCh := make(chan struct {
		payload []byte
		err     error
	}, 1)
	go func() {
		payload, err := tr.Receive()
		resultCh <- struct {
			payload []byte
			err     error
		}{payload, err}
	}()

	good := Create(1, []byte("hi")).Encode()
	corrupted := append([]byte(nil), good...)
	corrupted[len(corrupted)-1] ^= 0x01
	ch.push(corrupted)

	waitUntil(t, time.Second, func() bool {
		for _, s := range ch.sentSnapshot() {
			if len(s) == 1 && s[0] == ctrlNAK {
				return true
			}
		}
		return false
	})

	// expected_seq must still be 1: a correctly-numbered packet 1 must
	// still be accepted after the corrupted one.
	ch.push(good)
	waitUntil(t, time.Second, func() bool {
		for _, s := range ch.sentSnapshot() {
			if len(s) == 1 && s[0] == ctrlACK {
				return true
			}
		}
		return false
	})

	ch.push([]byte{ctrlEOT})
	result := <-resultCh
	if result.err != nil {
		t.Fatalf("Receive() = %v", result.err)
	}
	if !bytes.Equal(result.payload, []byte("hi")) {
		t.Fatalf("Receive() payload = %v, want %v", result.payload, []byte("hi"))
	}
}

// TestSendReceiveHappyPath drives Send against a hand-rolled receiver
// side reading the mock channel's sent queue directly, checking ACK
// advances SEQ and EOT completes the send.
func TestSendReceiveHappyPath(t *testing.T) {
	ch := &mockChannel{}
	tr := New(ch, nil)
	if err := tr.Configure(Config{TimeoutMS: 200, MaxRetries: 3, MaxPayloadSize: 4}); err != nil {
		t.Fatalf("Configure() = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- tr.Send([]byte("abcdefgh"), nil) // two 4-byte fragments
	}()

	// First fragment arrives, ACK it.
	waitUntil(t, time.Second, func() bool { return ch.sentCount() >= 1 })
	first, err := Parse(ch.sentSnapshot()[0])
	if err != nil {
		t.Fatalf("Parse(first fragment) = %v", err)
	}
	if first.Seq != 1 || !bytes.Equal(first.Payload, []byte("abcd")) {
		t.Fatalf("first fragment = %+v, want seq 1 payload abcd", first)
	}
	ch.push([]byte{ctrlACK})

	waitUntil(t, time.Second, func() bool { return ch.sentCount() >= 2 })
	second, err := Parse(ch.sentSnapshot()[1])
	if err != nil {
		t.Fatalf("Parse(second fragment) = %v", err)
	}
	if second.Seq != 2 || !bytes.Equal(second.Payload, []byte("efgh")) {
		t.Fatalf("second fragment = %+v, want seq 2 payload efgh", second)
	}
	ch.push([]byte{ctrlACK})

	if err := <-done; err != nil {
		t.Fatalf("Send() = %v", err)
	}

	sent := ch.sentSnapshot()
	last := sent[len(sent)-1]
	if len(last) != 1 || last[0] != ctrlEOT {
		t.Fatalf("last sent = %v, want EOT", last)
	}
}

func TestSend_BusyWhileNotIdle(t *testing.T) {
	ch := &mockChannel{}
	tr := New(ch, nil)
	tr.Configure(Config{TimeoutMS: 5000, MaxRetries: 3, MaxPayloadSize: 128})

	go tr.Send([]byte{1}, nil)
	waitUntil(t, time.Second, func() bool { return tr.State() == StateSending })

	if err := tr.Configure(DefaultConfig()); !errors.Is(err, ErrBusy) {
		t.Fatalf("Configure() while Sending = %v, want ErrBusy", err)
	}
	if _, err := tr.Receive(); !errors.Is(err, ErrBusy) {
		t.Fatalf("Receive() while Sending = %v, want ErrBusy", err)
	}

	tr.Reset()
	waitUntil(t, time.Second, func() bool { return tr.State() == StateIdle })
}

func TestReset_FailsInFlightSendWithErrReset(t *testing.T) {
	ch := &mockChannel{}
	tr := New(ch, nil)
	tr.Configure(Config{TimeoutMS: 5000, MaxRetries: 3, MaxPayloadSize: 128})

	done := make(chan error, 1)
	go func() { done <- tr.Send([]byte{9}, nil) }()
	waitUntil(t, time.Second, func() bool { return tr.State() == StateSending })

	tr.Reset()

	err := <-done
	if !errors.Is(err, ErrReset) {
		t.Fatalf("Send() after Reset = %v, want ErrReset", err)
	}
}
