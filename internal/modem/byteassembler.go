package modem

import "github.com/jhan-dev/acoustic-modem/internal/shared"

// processBit feeds one integrated bit through the byte-assembly state
// machine described by bit_position. It is only called once frameStarted
// is true. On a fully assembled byte it appends to rs.outputBytes.
func processBit(rs *runtimeState, cfg Config, bit byte) {
	startBits := cfg.StartBits
	dataEnd := startBits + 8
	parityPos := -1
	stopStart := dataEnd
	if cfg.Parity != shared.ParityNone {
		parityPos = dataEnd
		stopStart = dataEnd + 1
	}
	stopEnd := stopStart + cfg.StopBits

	pos := rs.bitPosition

	switch {
	case pos < startBits:
		// Start bit: expected 0.
		if bit != 0 {
			rs.frameStarted = false
			return
		}
		rs.bitPosition++

	case pos < dataEnd:
		// Data bits, MSB first.
		shift := uint(dataEnd - pos - 1)
		rs.byteReg |= bit << shift
		rs.bitPosition++

	case parityPos >= 0 && pos == parityPos:
		// Parity is reserved: checked for nothing, always advances.
		rs.bitPosition++

	case pos < stopEnd:
		// Stop bit: expected 1.
		if bit != 1 {
			rs.frameStarted = false
			return
		}
		if pos == stopEnd-1 {
			rs.outputBytes = append(rs.outputBytes, rs.byteReg)
			rs.byteReg = 0
			rs.bitPosition = 0
		} else {
			rs.bitPosition++
		}
	}
}
