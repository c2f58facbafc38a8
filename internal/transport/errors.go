package transport

import (
	"errors"
	"fmt"
)

// ErrBusy is returned by Send/Receive when the transport is not Idle.
var ErrBusy = errors.New("transport busy")

// ErrMaxRetriesExceeded is returned when a send exhausts its retry
// budget without an ACK.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// ErrReset is the failure value given to any in-flight operation when
// Reset is called.
var ErrReset = errors.New("transport reset")

// ErrModemError wraps a failure surfaced by the underlying DataChannel.
var ErrModemError = errors.New("modem error")

// ParseError is a non-fatal event raised by Parse when a buffer is
// rejected. It is not returned from Send/Receive; the processing loop
// logs it and keeps looping.
type ParseError struct {
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("packet parse error: %s", e.Reason)
}

func wrapModemError(err error) error {
	return fmt.Errorf("%w: %v", ErrModemError, err)
}
