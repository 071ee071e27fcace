// Package hpap implements the heat-pump application protocol: the
// semantic layer carried over CAN frames (spec.md §4.3-§4.4).
package hpap

import "fmt"

// DeviceType is the 4-bit device-type tag of a DeviceID.
type DeviceType uint8

const (
	TypeSystem         DeviceType = 0x03
	TypeHeatingCircuit DeviceType = 0x06
	TypeSensor         DeviceType = 0x08
	TypeDisplay        DeviceType = 0x0D
	// Remaining nibble values are reserved slots; they decode and
	// round-trip fine but carry no built-in meaning.

	// TypeAny is the in-memory pattern-matching sentinel. It never
	// appears on the wire: it is out of the 4-bit range a real frame can
	// carry. Encode does not range-check (it masks to 4 bits); the
	// dispatcher rejects non-exact ids with InvalidTarget before encoding.
	TypeAny DeviceType = 0xFF
)

// AddressAny is the in-memory pattern-matching sentinel for the 7-bit
// device address. Like TypeAny it is out of wire range and must never be
// transmitted.
const AddressAny uint8 = 0xFF

// DeviceID is a (type, address) pair identifying a CAN-bus participant.
type DeviceID struct {
	Type    DeviceType
	Address uint8
}

// Any is the identifier that matches everything via Includes; it must
// never be passed to an encoder.
var Any = DeviceID{Type: TypeAny, Address: AddressAny}

// IsExact reports whether neither component is the ANY sentinel.
func (d DeviceID) IsExact() bool {
	return d.Type != TypeAny && d.Address != AddressAny
}

// Includes reports whether a matches b: each component of a is either ANY
// or equal to the corresponding component of b.
func (a DeviceID) Includes(b DeviceID) bool {
	return (a.Type == TypeAny || a.Type == b.Type) &&
		(a.Address == AddressAny || a.Address == b.Address)
}

func (d DeviceID) String() string {
	if d.Type == TypeAny && d.Address == AddressAny {
		return "any"
	}
	typ := fmt.Sprintf("%#x", uint8(d.Type))
	if d.Type == TypeAny {
		typ = "any"
	}
	addr := fmt.Sprintf("%#x", d.Address)
	if d.Address == AddressAny {
		addr = "any"
	}
	return typ + "/" + addr
}

// validWireType reports whether t fits the 4-bit on-wire type nibble.
func validWireType(t DeviceType) bool { return t <= 0x0F }

// validWireAddress reports whether a fits the 7-bit on-wire address.
func validWireAddress(a uint8) bool { return a <= 0x7F }
