package hpap

import (
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/fanout"
)

// Transmitter is the outbound seam the dispatcher encodes frames onto. The
// canbus facade implements it; Ready reports the facade's readiness
// (spec.md §4.2, §4.4).
type Transmitter interface {
	Ready() bool
	SendCANMessage(canID uint16, payload [8]byte, length uint8) error
}

// Dispatcher registers local virtual devices, routes inbound messages to
// them and to global listeners, and exposes the outbound request/write/
// respond/register APIs (spec.md §4.4).
type Dispatcher struct {
	tx Transmitter

	devices map[string]VirtualDevice
	peers   map[DeviceID]struct{}

	onWrite    fanout.Chain[Message]
	onRequest  fanout.Chain[Message]
	onResponse fanout.Chain[Message]
}

// NewDispatcher builds a Dispatcher sending frames through tx.
func NewDispatcher(tx Transmitter) *Dispatcher {
	return &Dispatcher{
		tx:      tx,
		devices: map[string]VirtualDevice{},
		peers:   map[DeviceID]struct{}{},
	}
}

// RegisterDevice installs dev under name, replacing any device previously
// registered under the same name. Per spec.md §4.4/§9 the core may (but is
// not required to) emit a Register frame on behalf of the device; this
// implementation does so whenever the dispatcher is ready — a
// vendor-guessed behaviour the spec could not pin down from the source
// (see DESIGN.md's Open Questions).
func (d *Dispatcher) RegisterDevice(name string, dev VirtualDevice) {
	d.devices[name] = dev
	if d.tx.Ready() && dev.DeviceID().IsExact() {
		_ = d.sendRaw(KindRegister, dev.DeviceID(), dev.DeviceID(), 0, 0)
	}
}

// UnregisterDevice removes the device registered under name, if any.
func (d *Dispatcher) UnregisterDevice(name string) {
	delete(d.devices, name)
}

// OnWrite registers a global listener invoked for every inbound Write
// message, after local-device routing (spec.md §4.4 item 3).
func (d *Dispatcher) OnWrite(id string, fn func(Message)) { d.onWrite.Add(id, fn) }

// OnRequest registers a global listener for inbound Request messages.
func (d *Dispatcher) OnRequest(id string, fn func(Message)) { d.onRequest.Add(id, fn) }

// OnResponse registers a global listener for inbound Response messages.
func (d *Dispatcher) OnResponse(id string, fn func(Message)) { d.onResponse.Add(id, fn) }

// Deliver routes one decoded inbound message (spec.md §4.4 "Inbound
// routing"). It must be called in on-wire order. Fanout is synchronous;
// global listeners run in registration order, while matching devices
// are visited in no defined order (they are held in a map).
func (d *Dispatcher) Deliver(msg Message) {
	d.peers[msg.Source] = struct{}{}

	matched := false
	for _, dev := range d.devices {
		if !dev.DeviceID().Includes(msg.Target) {
			continue
		}
		matched = true
		switch msg.Kind {
		case KindWrite:
			dev.OnWrite(msg.Source, msg.ValueID, msg.Value)
		case KindRequest:
			dev.OnRequest(msg.Source, msg.ValueID)
		case KindResponse:
			dev.OnResponse(msg.Source, msg.ValueID, msg.Value)
		}
	}

	switch msg.Kind {
	case KindWrite:
		d.onWrite.Fire(msg)
	case KindRequest:
		d.onRequest.Fire(msg)
	case KindResponse:
		d.onResponse.Fire(msg)
	}

	if !matched && msg.Target.IsExact() {
		d.peers[msg.Target] = struct{}{}
	}
}

// ObservedPeers returns the set of device ids seen as a source, or as an
// unmatched exact target, since startup.
func (d *Dispatcher) ObservedPeers() []DeviceID {
	out := make([]DeviceID, 0, len(d.peers))
	for id := range d.peers {
		out = append(out, id)
	}
	return out
}

// Request issues an outbound Request for vid from target, speaking as
// source.
func (d *Dispatcher) Request(source, target DeviceID, vid ValueID) error {
	return d.sendRaw(KindRequest, source, target, vid, 0)
}

// Write issues an outbound Write of value for vid to target.
func (d *Dispatcher) Write(source, target DeviceID, vid ValueID, value uint16) error {
	return d.sendRaw(KindWrite, source, target, vid, value)
}

// Respond issues an outbound Response of value for vid to target.
func (d *Dispatcher) Respond(source, target DeviceID, vid ValueID, value uint16) error {
	return d.sendRaw(KindResponse, source, target, vid, value)
}

func (d *Dispatcher) sendRaw(kind Kind, source, target DeviceID, vid ValueID, value uint16) error {
	if !source.IsExact() || !target.IsExact() {
		return errcode.InvalidTarget
	}
	if !d.tx.Ready() {
		return errcode.NotReady
	}
	canID, payload, length := Encode(kind, source, target, vid, value)
	return d.tx.SendCANMessage(canID, payload, length)
}
