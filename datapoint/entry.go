package datapoint

import (
	"time"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/definitions"
)

// Entry is one data point: the live raw value and write/subscription
// bookkeeping for a single (device, value-id) key (spec.md §3, §4.7).
type Entry struct {
	Key Key

	RawValue     uint16
	PendingWrite *uint16

	LastUpdate           time.Time
	LastUpdateMonotonic  int64
	LastRequestMonotonic int64
	LastWriteMonotonic   int64

	Subscribed bool
	Writable   bool

	Definition definitions.Definition
}
