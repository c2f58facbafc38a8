package transport

import "github.com/jhan-dev/acoustic-modem/internal/shared"

const (
	ctrlACK byte = 0x06
	ctrlNAK byte = 0x15
	ctrlEOT byte = 0x04

	soh = 0x01

	// headerLen is SOH, SEQ, ~SEQ, LEN.
	headerLen = 4
	// minPacketLen is the header plus the 2-byte trailing CRC, with no
	// payload.
	minPacketLen = headerLen + 2
)

// Packet is one numbered ARQ packet: SOH, SEQ, ~SEQ, LEN, PAYLOAD, CRC-16.
type Packet struct {
	Seq     byte
	Payload []byte
}

// Create builds a Packet for seq and payload. The caller is responsible
// for seq being in 1..255 and len(payload) <= 255; Transport enforces
// both before calling Create.
func Create(seq byte, payload []byte) Packet {
	return Packet{Seq: seq, Payload: append([]byte(nil), payload...)}
}

// Encode serializes p into its on-wire form: SOH, SEQ, ~SEQ, LEN,
// PAYLOAD, then the big-endian CRC-16 over the first 4+LEN bytes.
func (p Packet) Encode() []byte {
	body := make([]byte, headerLen+len(p.Payload))
	body[0] = soh
	body[1] = p.Seq
	body[2] = ^p.Seq
	body[3] = byte(len(p.Payload))
	copy(body[headerLen:], p.Payload)
	return shared.AppendCRC16(body)
}

// Parse validates and decodes a wire-format packet, rejecting: a buffer
// shorter than minPacketLen; a CRC-16 mismatch over all but the last two
// bytes; a mismatched SOH; a SEQ/~SEQ pair that isn't a bitwise
// complement; SEQ == 0; and a buffer whose length is not exactly
// 4+LEN+2 (shorter or longer).
func Parse(buf []byte) (Packet, error) {
	if len(buf) < minPacketLen {
		return Packet{}, ParseError{Reason: "buffer too short"}
	}

	body, ok := shared.VerifyCRC16(buf)
	if !ok {
		return Packet{}, ParseError{Reason: "crc mismatch"}
	}

	if len(body) < headerLen {
		return Packet{}, ParseError{Reason: "short header"}
	}
	if body[0] != soh {
		return Packet{}, ParseError{Reason: "bad SOH"}
	}
	seq := body[1]
	if body[2] != ^seq {
		return Packet{}, ParseError{Reason: "bad complement"}
	}
	if seq == 0 {
		return Packet{}, ParseError{Reason: "seq is zero"}
	}
	length := int(body[3])
	if len(body) != headerLen+length {
		return Packet{}, ParseError{Reason: "length mismatch"}
	}

	return Packet{Seq: seq, Payload: append([]byte(nil), body[headerLen:]...)}, nil
}

// NextSeq advances a SEQ value through 1..255, wrapping past 255 back to
// 1 and never visiting 0.
func NextSeq(seq byte) byte {
	return byte((int(seq) % 255) + 1)
}
