package shared

import "math/bits"

// Parity selects the parity scheme framed bytes carry. It lives here,
// not in internal/modem, because both the PhysicalModem's byte assembler
// and its preamble/SFD pattern precomputation need to frame bytes the
// same way.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// ParityBit returns the parity bit for b under p. Even parity sets the
// bit so the total number of set bits (data + parity) is even; odd
// parity so it is odd.
func ParityBit(b byte, p Parity) byte {
	ones := bits.OnesCount8(b) % 2
	switch p {
	case ParityEven:
		return byte(ones)
	case ParityOdd:
		return byte(1 - ones)
	default:
		return 0
	}
}

// FrameByte expands one byte into its on-wire bit sequence: startBits
// zero bits, then the eight data bits MSB-first, then one parity bit if
// p != ParityNone, then stopBits one bits. Each returned element is 0 or
// 1.
func FrameByte(b byte, startBits, stopBits int, p Parity) []byte {
	out := make([]byte, 0, startBits+8+1+stopBits)
	for i := 0; i < startBits; i++ {
		out = append(out, 0)
	}
	for pos := 7; pos >= 0; pos-- {
		out = append(out, (b>>uint(pos))&1)
	}
	if p != ParityNone {
		out = append(out, ParityBit(b, p))
	}
	for i := 0; i < stopBits; i++ {
		out = append(out, 1)
	}
	return out
}

// FrameBytes frames every byte in data in order and concatenates the
// results, with no gap or re-sync pattern between bytes.
func FrameBytes(data []byte, startBits, stopBits int, p Parity) []byte {
	out := make([]byte, 0, len(data)*(startBits+8+1+stopBits))
	for _, b := range data {
		out = append(out, FrameByte(b, startBits, stopBits, p)...)
	}
	return out
}

// BitsPerByte returns the number of framed bits one byte occupies on the
// wire: 8 data bits plus start, stop, and (if enabled) parity bits.
func BitsPerByte(startBits, stopBits int, p Parity) int {
	n := startBits + 8 + stopBits
	if p != ParityNone {
		n++
	}
	return n
}
