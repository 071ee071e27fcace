// Package rsfp implements the Reliable Serial Framing Protocol: a
// windowed, sequence-numbered, retransmitting line protocol carried over
// an in-order byte stream with no hardware flow control (spec.md §4.1).
package rsfp

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"

const (
	// WindowSize is the number of in-flight transmit slots.
	WindowSize = 6
	// SeqModulo is the sequence-number wraparound (ASCII letters A..Z).
	SeqModulo = 26
	// MaxFrameSize is the maximum line length, CRLF included.
	MaxFrameSize = 64
	// MaxPayloadSize is the largest normal-frame payload: MaxFrameSize
	// minus the 3-byte "+<seq> " prefix and 2-byte CRLF.
	MaxPayloadSize = MaxFrameSize - 3 - 2
)

func seqByte(seq uint8) byte { return 'A' + seq }

func isSeqByte(b byte) bool { return b >= 'A' && b <= 'Z' }

func seqFromByte(b byte) uint8 { return b - 'A' }

// encodeNormal builds a "+<seq> <payload>\r\n" line.
func encodeNormal(seq uint8, payload []byte) []byte {
	out := make([]byte, 0, 3+len(payload)+2)
	out = append(out, '+', seqByte(seq), ' ')
	out = append(out, payload...)
	out = append(out, '\r', '\n')
	return out
}

// encodeControl builds a "#<op><arg>\r\n" line.
func encodeControl(op, arg byte) []byte {
	return []byte{'#', op, arg, '\r', '\n'}
}

// encodeControlResponse builds a ">op<payload>\r\n" diagnostics line.
func encodeControlResponse(op byte, payload []byte) []byte {
	out := make([]byte, 0, 2+len(payload)+2)
	out = append(out, '>', op)
	out = append(out, payload...)
	out = append(out, '\r', '\n')
	return out
}

// Control ops and error-argument bytes (spec.md §4.1, §6).
const (
	opAck     = '='
	opError   = '!'
	opTimeout = 'T'
	opDebug   = 'D'

	errBadFraming     = 'E'
	errWrongCtrlSize  = 'S'
	errUnknownCtrlOp  = 'C'
	errBudgetExceeded = 'R'
)

// ErrorEvent is delivered to OnError listeners for both locally detected
// framing violations and peer-reported ones (spec.md §7).
type ErrorEvent struct {
	Code   errcode.Code
	Detail string
}
