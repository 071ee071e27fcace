package hpap

// VirtualDevice is a locally registered participant on the bus (spec.md
// §4.4). It mirrors the teacher's Adaptor/Device shape (an id plus a
// handful of handler hooks, no bus or goroutine access of its own) — here
// generalised from sensor capabilities to CAN message handlers.
type VirtualDevice interface {
	DeviceID() DeviceID
	OnWrite(source DeviceID, vid ValueID, value uint16)
	OnRequest(source DeviceID, vid ValueID)
	OnResponse(source DeviceID, vid ValueID, value uint16)
}

// BaseDevice is an embeddable no-op VirtualDevice; concrete devices embed
// it and override only the handlers they care about.
type BaseDevice struct {
	ID DeviceID
}

func (b BaseDevice) DeviceID() DeviceID                              { return b.ID }
func (b BaseDevice) OnWrite(DeviceID, ValueID, uint16)                {}
func (b BaseDevice) OnRequest(DeviceID, ValueID)                      {}
func (b BaseDevice) OnResponse(DeviceID, ValueID, uint16)             {}
