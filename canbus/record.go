// Package canbus is the CAN transceiver facade: it turns the ASCII text
// records carried over RSFP payloads into structured CAN frames, tracks
// link readiness and a per-category error budget, and implements
// hpap.Transmitter (spec.md §4.2).
package canbus

import (
	"strconv"
	"strings"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/x/conv"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/x/mathx"
)

// Mode is the configured or effective CAN bus mode (spec.md §4.2, §6).
type Mode string

const (
	ModeNormal     Mode = "NOR"
	ModeListenOnly Mode = "LIS"
)

const (
	extendedBit uint32 = 1 << 31
	rtrBit      uint32 = 1 << 30
	idMask      uint32 = 0x1FFFFFFF
)

// buildSetup renders "SETUP <bitrate-hex> <mode>", the bitrate as at
// least four hex digits.
func buildSetup(bitrate int, mode Mode) string {
	var buf [8]byte
	width := 4
	for width < 8 && uint32(bitrate)>>(4*width) != 0 {
		width++
	}
	n := conv.HexN(buf[:], uint32(bitrate), width)
	return "SETUP " + string(n) + " " + string(mode)
}

// buildCANTX renders "CANTX <id-hex> <dec-len> <hex-byte>...".
func buildCANTX(f hpap.Frame) string {
	id := uint32(f.ID) & idMask
	if f.Extended {
		id |= extendedBit
	}
	if f.RTR {
		id |= rtrBit
	}
	var idBuf [8]byte
	sb := strings.Builder{}
	sb.WriteString("CANTX ")
	sb.Write(conv.U32Hex(idBuf[:8], id))
	sb.WriteByte(' ')
	var lenBuf [3]byte
	sb.Write(conv.Itoa(lenBuf[:], int64(f.Len)))
	for i := uint8(0); i < f.Len; i++ {
		sb.WriteByte(' ')
		var bBuf [2]byte
		sb.Write(conv.HexN(bBuf[:2], uint32(f.Data[i]), 2))
	}
	return sb.String()
}

// parseCANRX parses a "CANRX <id-hex> <dec-len> <hex-byte>{0..8}" record
// body (fields is the record split on spaces, with "CANRX" already
// removed).
func parseCANRX(fields []string) (hpap.Frame, bool) {
	if len(fields) < 2 {
		return hpap.Frame{}, false
	}
	rawID, ok := conv.ParseHex(fields[0])
	if !ok {
		return hpap.Frame{}, false
	}
	length, err := strconv.Atoi(fields[1])
	if err != nil || !mathx.Between(length, 0, 8) {
		return hpap.Frame{}, false
	}
	if len(fields) < 2+length {
		return hpap.Frame{}, false
	}
	f := hpap.Frame{
		ID:       uint16(rawID & idMask),
		Extended: rawID&extendedBit != 0,
		RTR:      rawID&rtrBit != 0,
		Len:      uint8(length),
	}
	for i := 0; i < length; i++ {
		b, ok := conv.ParseHex(fields[2+i])
		if !ok {
			return hpap.Frame{}, false
		}
		f.Data[i] = byte(b)
	}
	return f, true
}

// fields splits an ASCII record body on runs of whitespace. The leading
// keyword is not part of body: the caller's dispatch has already
// consumed it.
func fields(body string) []string {
	return strings.Fields(body)
}
