package modem

import "errors"

// ErrNotConfigured is returned when Modulate or Demodulate is called
// before Configure.
var ErrNotConfigured = errors.New("modem not configured")

// ErrInvalidConfig is returned by Configure (via Config.Validate) when
// the supplied configuration violates an arithmetic invariant, e.g.
// samples_per_bit < 4.
var ErrInvalidConfig = errors.New("invalid modem configuration")
