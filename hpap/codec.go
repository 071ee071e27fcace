package hpap

// Decode parses a CAN frame's payload into a Message. It returns
// ok=false for extended/RTR frames, reserved message kinds, or payloads
// too short to hold their declared fields — callers should log and drop
// in those cases (spec.md §4.3, §7).
func Decode(f Frame) (Message, bool) {
	if f.Extended || f.RTR {
		return Message{}, false
	}
	if f.Len < 3 {
		return Message{}, false
	}
	data := f.Data[:f.Len]

	kind, ok := decodeKind(data[0] & 0x0F)
	if !ok {
		return Message{}, false
	}
	targetType := DeviceType((data[0] >> 4) & 0x0F)
	targetAddr := data[1] & 0x7F

	vid, consumed, ok := decodeValueID(data, 2)
	if !ok {
		return Message{}, false
	}

	var value uint16
	vOff := 2 + consumed
	if vOff+1 < len(data) {
		value = uint16(data[vOff])<<8 | uint16(data[vOff+1])
	}

	source := DeviceID{
		Type:    DeviceType((f.ID >> 7) & 0x0F),
		Address: uint8(f.ID & 0x7F),
	}
	target := DeviceID{Type: targetType, Address: targetAddr}
	if target.Type == TypeDisplay && target.Address == broadcastDisplayAddress {
		target.Address = AddressAny
	}

	return Message{Kind: kind, Source: source, Target: target, ValueID: vid, Value: value}, true
}

// Encode builds the CAN id and 7-byte payload for an outbound message.
// source and target must both be exact; callers (the dispatcher) are
// responsible for that check and for producing errcode.InvalidTarget
// otherwise. Encode always emits the extended value-id form and, for
// KindRequest, zeroes the value bytes.
func Encode(kind Kind, source, target DeviceID, vid ValueID, value uint16) (canID uint16, payload [8]byte, length uint8) {
	canID = (uint16(source.Type&0x0F) << 7) | uint16(source.Address&0x7F)

	payload[0] = (uint8(target.Type&0x0F) << 4) | uint8(kind&0x0F)
	payload[1] = target.Address & 0x7F
	off := encodeValueID(payload[:], 2, vid)
	if kind != KindRequest {
		payload[off] = byte(value >> 8)
		payload[off+1] = byte(value)
	}
	return canID, payload, 7
}
