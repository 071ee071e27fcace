package datapoint

import (
	"testing"
	"time"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/definitions"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
)

type fakeOutbound struct {
	requests []Key
	writes   []struct {
		Key
		value uint16
	}
}

func (f *fakeOutbound) Request(source, target hpap.DeviceID, vid hpap.ValueID) error {
	f.requests = append(f.requests, Key{Device: target, ValueID: vid})
	return nil
}

func (f *fakeOutbound) Write(source, target hpap.DeviceID, vid hpap.ValueID, value uint16) error {
	f.writes = append(f.writes, struct {
		Key
		value uint16
	}{Key{Device: target, ValueID: vid}, value})
	return nil
}

type fakeDateTime struct{ available bool }

func (f *fakeDateTime) Available() bool { return f.available }

var local = hpap.DeviceID{Type: hpap.TypeSystem, Address: 0}
var sensor = hpap.DeviceID{Type: hpap.TypeSensor, Address: 1}

func newTestEngine(mode CaptureMode, readOnly bool) (*Engine, *fakeOutbound, *fakeDateTime, *clock.Fake) {
	defs := definitions.NewRepository()
	out := &fakeOutbound{}
	dt := &fakeDateTime{available: true}
	clk := clock.NewFake(time.Unix(0, 0))
	e := NewEngine(defs, out, dt, clk, local, Config{Mode: mode, ReadOnly: readOnly})
	return e, out, dt, clk
}

func TestInboundSampleDroppedWhileDateTimeUnavailable(t *testing.T) {
	e, _, dt, _ := newTestEngine(ModeAny, true)
	dt.available = false

	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: sensor, Target: local, ValueID: 1, Value: 42})

	if _, ok := e.Get(Key{Device: sensor, ValueID: 1}); ok {
		t.Errorf("store should be unchanged while date-time is unavailable")
	}
}

func TestCaptureModeConfiguredNeverCreates(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeConfigured, true)
	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: sensor, Target: local, ValueID: 1, Value: 42})

	if _, ok := e.Get(Key{Device: sensor, ValueID: 1}); ok {
		t.Errorf("Configured mode must not create entries implicitly")
	}
}

func TestCaptureModeAnyCreatesAndUpdates(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeAny, true)
	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: sensor, Target: local, ValueID: 1, Value: 42})

	entry, ok := e.Get(Key{Device: sensor, ValueID: 1})
	if !ok {
		t.Fatalf("Any mode should create an entry")
	}
	if entry.RawValue != 42 {
		t.Errorf("RawValue = %d, want 42", entry.RawValue)
	}
}

func TestCaptureModeDefinedRequiresDefinition(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeDefined, true)
	// 0x0000 is a built-in definition (outside_temperature).
	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: sensor, Target: local, ValueID: 0x0000, Value: 200})
	if _, ok := e.Get(Key{Device: sensor, ValueID: 0x0000}); !ok {
		t.Errorf("Defined mode should create an entry when a definition exists")
	}

	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: sensor, Target: local, ValueID: 0xBEEF, Value: 1})
	if _, ok := e.Get(Key{Device: sensor, ValueID: 0xBEEF}); ok {
		t.Errorf("Defined mode should not create an entry with no definition")
	}
}

func TestWriteConfirmationClearsPendingAndFiresCallback(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeAny, false)
	key := Key{Device: sensor, ValueID: 5}

	// AddWritable needs a writable definition; value-id 0x000C is
	// heating_circuit_pump, WritableProtected.
	key = Key{Device: hpap.DeviceID{Type: hpap.TypeHeatingCircuit, Address: 1}, ValueID: 0x000C}
	if !e.AddWritable(key) {
		t.Fatalf("expected AddWritable to succeed for a writable definition")
	}

	var confirmed WriteResult
	result := e.Write(key, 1, true, func(r WriteResult) { confirmed = r })
	if result != Accepted {
		t.Fatalf("Write result = %v, want Accepted", result)
	}

	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: key.Device, Target: local, ValueID: key.ValueID, Value: 1})

	entry, _ := e.Get(key)
	if entry.PendingWrite != nil {
		t.Errorf("pending write should be cleared once confirmed")
	}
	if confirmed != Accepted {
		t.Errorf("confirm callback should have fired with Accepted, got %v", confirmed)
	}
}

func TestWriteRejectsWhenReadOnly(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeAny, true)
	key := Key{Device: sensor, ValueID: 1}
	if r := e.Write(key, 1, false, nil); r != ReadOnly {
		t.Errorf("expected ReadOnly, got %v", r)
	}
}

func TestAddSubscriptionRejectsWrongSourcePattern(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeAny, true)
	// outside_temperature (0x0000) is pattern-scoped to Sensor/ANY; a
	// Display source should not be accepted.
	key := Key{Device: hpap.DeviceID{Type: hpap.TypeDisplay, Address: 1}, ValueID: 0x0000}
	if e.AddSubscription(key) {
		t.Errorf("subscription should be rejected: source pattern mismatch")
	}
}

func TestMaintenanceRequestsThenWrites(t *testing.T) {
	e, out, _, clk := newTestEngine(ModeAny, false)
	key := Key{Device: hpap.DeviceID{Type: hpap.TypeHeatingCircuit, Address: 1}, ValueID: 0x000C}
	if !e.AddWritable(key) {
		t.Fatalf("AddWritable failed")
	}
	if r := e.Write(key, 1, false, nil); r != Accepted {
		t.Fatalf("Write = %v, want Accepted", r)
	}

	clk.Advance(400 * time.Millisecond)
	e.Tick() // no prior value observed -> should Request

	if len(out.requests) != 1 {
		t.Fatalf("expected one Request issued, got %d", len(out.requests))
	}

	// Simulate the observing response.
	e.HandleInbound(hpap.Message{Kind: hpap.KindResponse, Source: key.Device, Target: local, ValueID: key.ValueID, Value: 0})

	clk.Advance(400 * time.Millisecond)
	e.Tick() // now has a last-update, pending write still set -> should Write

	if len(out.writes) != 1 || out.writes[0].value != 1 {
		t.Fatalf("expected one Write(1) issued, got %v", out.writes)
	}
}

func TestSubscribedEntryRequestsFromFreshClock(t *testing.T) {
	e, out, _, clk := newTestEngine(ModeAny, true)
	// outside_temperature (0x0000) is a built-in definition.
	key := Key{Device: sensor, ValueID: 0x0000}
	if !e.AddSubscription(key) {
		t.Fatalf("AddSubscription failed")
	}

	clk.Advance(400 * time.Millisecond)
	e.Tick()

	if len(out.requests) != 1 || out.requests[0] != key {
		t.Fatalf("expected one Request for %v, got %v", key, out.requests)
	}

	// Immediately ticking again should not re-request within MinUpdateIntervalMs.
	clk.Advance(400 * time.Millisecond)
	e.Tick()
	if len(out.requests) != 1 {
		t.Fatalf("expected no additional Request before MinUpdateIntervalMs elapses, got %v", out.requests)
	}
}
