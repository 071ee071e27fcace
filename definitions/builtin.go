package definitions

import (
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/convert"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
)

// anySystem matches a value-id reported by the System device under any
// address.
var anySystem = hpap.DeviceID{Type: hpap.TypeSystem, Address: hpap.AddressAny}

var anyHeatingCircuit = hpap.DeviceID{Type: hpap.TypeHeatingCircuit, Address: hpap.AddressAny}

var anySensor = hpap.DeviceID{Type: hpap.TypeSensor, Address: hpap.AddressAny}

// operatingModePairs and faultCodePairs are the Enumeration converter
// parameters for the two builtin value-ids that need named values.
// Enumeration has no parameterless built-in id (unlike Numeric/Boolean):
// its id is derived from these pairs via convert.ConverterIDFor, and
// RegisterBuiltinConverters must be called against the Registry in use
// before either value-id's ConverterID resolves to anything.
var operatingModePairs = []convert.EnumPair{
	{Int: 0, Name: "standby"},
	{Int: 1, Name: "heating"},
	{Int: 2, Name: "cooling"},
	{Int: 3, Name: "hot_water"},
}

var faultCodePairs = []convert.EnumPair{
	{Int: 0, Name: "none"},
	{Int: 10, Name: "sensor_fault"},
	{Int: 20, Name: "compressor_fault"},
	{Int: 30, Name: "communication_fault"},
}

var operatingModeConverterID = convert.ConverterIDFor(convert.EnumerationKey(operatingModePairs))
var faultCodeConverterID = convert.ConverterIDFor(convert.EnumerationKey(faultCodePairs))

// RegisterBuiltinConverters installs the concrete Enumeration converters
// the builtin table references (operating_mode, fault_code) into r,
// under the same stable ids builtinTable's ConverterID fields already
// carry. Callers must run this once against the Registry actually wired
// into the gateway, before looking up either value-id's converter.
func RegisterBuiltinConverters(r *convert.Registry) {
	r.RegisterConverter(convert.EnumerationKey(operatingModePairs), convert.Enumeration{Pairs: operatingModePairs})
	r.RegisterConverter(convert.EnumerationKey(faultCodePairs), convert.Enumeration{Pairs: faultCodePairs})
}

// builtinTable is the compile-time definition table (spec.md §4.6, §9).
// It is intentionally a representative slice of the device family's
// real register map, not the full ~40KB table the original ships —
// declared here rather than hidden, since a complete table adds volume
// without adding design surface.
var builtinTable = []Definition{
	{ValueID: 0x0000, Name: "outside_temperature", Unit: UnitCelsius, SourcePattern: anySensor, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0001, Name: "return_temperature", Unit: UnitCelsius, SourcePattern: anyHeatingCircuit, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0002, Name: "flow_temperature", Unit: UnitCelsius, SourcePattern: anyHeatingCircuit, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0003, Name: "hot_water_temperature", Unit: UnitCelsius, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0004, Name: "hot_water_setpoint", Unit: UnitCelsius, SourcePattern: anySystem, AccessMode: AccessWritable, UpdateIntervalMs: 60_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0005, Name: "heating_circuit_setpoint", Unit: UnitCelsius, SourcePattern: anyHeatingCircuit, AccessMode: AccessWritable, UpdateIntervalMs: 60_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0006, Name: "compressor_speed", Unit: UnitHertz, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 10_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0007, Name: "compressor_running_hours", Unit: UnitHours, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 3_600_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0008, Name: "flow_rate", Unit: UnitLitersPerMinute, SourcePattern: anyHeatingCircuit, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0009, Name: "high_pressure", Unit: UnitBar, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x000A, Name: "low_pressure", Unit: UnitBar, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x000B, Name: "defrost_active", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 10_000, CodecID: convert.CodecUnsigned8High, ConverterID: convert.ConverterBoolean},
	{ValueID: 0x000C, Name: "heating_circuit_pump", Unit: UnitNone, SourcePattern: anyHeatingCircuit, AccessMode: AccessWritableProtected, UpdateIntervalMs: 10_000, CodecID: convert.CodecUnsigned8High, ConverterID: convert.ConverterBoolean},
	{ValueID: 0x000D, Name: "operating_mode", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessWritable, UpdateIntervalMs: 60_000, CodecID: convert.CodecUnsigned8High, ConverterID: operatingModeConverterID},
	{ValueID: 0x000E, Name: "fault_code", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: faultCodeConverterID},
	{ValueID: 0x000F, Name: "fan_speed_percent", Unit: UnitPercent, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 10_000, CodecID: convert.CodecUnsigned8High, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0010, Name: "room_temperature", Unit: UnitCelsius, SourcePattern: hpap.DeviceID{Type: hpap.TypeDisplay, Address: hpap.AddressAny}, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0011, Name: "room_setpoint", Unit: UnitCelsius, SourcePattern: hpap.DeviceID{Type: hpap.TypeDisplay, Address: hpap.AddressAny}, AccessMode: AccessWritable, UpdateIntervalMs: 60_000, CodecID: convert.CodecSigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x0012, Name: "electric_booster_active", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 10_000, CodecID: convert.CodecUnsigned8High, ConverterID: convert.ConverterBoolean},
	{ValueID: 0x0013, Name: "energy_consumed_total", Unit: UnitKilowattHour, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 300_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},

	// DATETIME_* fields consumed by the date-time source (spec.md §4.8).
	{ValueID: 0x00F0, Name: "DATETIME_YEAR", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x00F1, Name: "DATETIME_MONTH", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x00F2, Name: "DATETIME_DAY", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x00F3, Name: "DATETIME_HOUR", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
	{ValueID: 0x00F4, Name: "DATETIME_MINUTE", Unit: UnitNone, SourcePattern: anySystem, AccessMode: AccessReadable, UpdateIntervalMs: 30_000, CodecID: convert.CodecUnsigned16, ConverterID: convert.ConverterNumeric},
}
