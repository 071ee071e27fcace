// Package datapoint implements the data-point engine (DPE): a keyed
// store of (device-id, value-id) entries, a round-robin maintenance
// scheduler, a three-phase write protocol, and file-backed
// subscription/writable persistence (spec.md §4.7).
package datapoint

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"

// Key identifies one data-point entry. Both components must be exact;
// the store never holds an entry for a wildcard key (spec.md §3).
type Key struct {
	Device  hpap.DeviceID
	ValueID hpap.ValueID
}

// Exact reports whether both components of the key are concrete device
// and value identifiers.
func (k Key) Exact() bool { return k.Device.IsExact() }
