// Package definitions holds the value-id → definition repository
// (spec.md §4.6): static metadata describing how a value-id's raw wire
// value is named, converted, and who is allowed to touch it.
package definitions

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"

// AccessMode is a closed, ordered enumeration of how a value-id may be
// touched. Order matters: "subscribed" requires access-mode >= Readable,
// "writable" requires access-mode to be one of the three Writable
// variants (spec.md §3 invariants).
type AccessMode uint8

const (
	AccessNone AccessMode = iota
	AccessReadable
	AccessWritable
	AccessWritableProtected
	AccessWritableExtraProtected
)

func (m AccessMode) IsWritable() bool {
	return m == AccessWritable || m == AccessWritableProtected || m == AccessWritableExtraProtected
}

// Unit is a closed enumeration of the physical units the definition
// table attaches to a value. Reserved/unknown units round-trip as
// UnitNone.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitCelsius
	UnitKelvin
	UnitPercent
	UnitHours
	UnitBar
	UnitLitersPerMinute
	UnitHertz
	UnitWatt
	UnitKilowattHour
)

// Definition is the static metadata attached to a value-id (spec.md §3,
// §4.6). SourcePattern is a DeviceID used only for in-memory inclusion
// matching via DeviceID.Includes — it is never transmitted, matching the
// ANY-sentinel rule of spec.md §3.
type Definition struct {
	ValueID          uint16
	Name             string
	Unit             Unit
	SourcePattern    hpap.DeviceID
	AccessMode       AccessMode
	UpdateIntervalMs int64
	CodecID          int
	ConverterID      int
}

// undefined is returned for any value-id with no built-in or user
// definition (spec.md §4.6).
func undefined(vid uint16) Definition {
	return Definition{
		ValueID:       vid,
		Name:          "undefined",
		Unit:          UnitNone,
		SourcePattern: hpap.Any,
		AccessMode:    AccessNone,
	}
}
