package datapoint

import (
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/definitions"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/fanout"
)

// CaptureMode governs whether an inbound sample may create a new entry
// (spec.md §4.7).
type CaptureMode string

const (
	ModeNone       CaptureMode = "None"
	ModeConfigured CaptureMode = "Configured"
	ModeDefined    CaptureMode = "Defined"
	ModeAny        CaptureMode = "Any"
)

const (
	MaintenanceIntervalMs   = 375
	MaxConcurrentOperations = 2
	WriteIntervalMs         = 30_000
	MinUpdateIntervalMs     = 30_000
)

// Outbound is the HPAP seam the engine issues requests/writes through;
// hpap.Dispatcher satisfies it.
type Outbound interface {
	Request(source, target hpap.DeviceID, vid hpap.ValueID) error
	Write(source, target hpap.DeviceID, vid hpap.ValueID, value uint16) error
}

// DateTimeSource gates inbound samples: while unavailable, samples are
// dropped (spec.md §4.7 step 1, §4.8).
type DateTimeSource interface {
	Available() bool
}

// Config holds the environment-configurable DPE parameters (spec.md §6).
type Config struct {
	Mode     CaptureMode // default ModeConfigured
	ReadOnly bool        // zero value false; cmd/gateway's loader defaults it to true
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeConfigured
	}
	return c
}

// Engine is the data-point engine: keyed store, periodic maintenance,
// inbound sample handling, and the write protocol (spec.md §4.7).
type Engine struct {
	cfg Config

	store *store
	defs  *definitions.Repository
	out   Outbound
	dt    DateTimeSource
	clock clock.Clock

	// local is this gateway's own device identity, used as the source
	// of outbound Request/Write operations.
	local hpap.DeviceID

	lastMaintenanceMono int64

	onUpdate fanout.Chain[*Entry]

	confirmCallbacks map[Key]func(WriteResult)

	// Yield is invoked at least once per entry examined during
	// maintenance, the suspension point required by spec.md §5(c).
	Yield func()
}

// NewEngine builds an Engine. local is the device identity this gateway
// presents as the source of its own outbound traffic.
func NewEngine(defs *definitions.Repository, out Outbound, dt DateTimeSource, clk clock.Clock, local hpap.DeviceID, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:              cfg,
		store:            newStore(),
		defs:             defs,
		out:              out,
		dt:               dt,
		clock:            clk,
		local:            local,
		confirmCallbacks: map[Key]func(WriteResult){},
	}
}

// OnUpdate registers a listener invoked once per updated entry, in
// registration order (spec.md §4.7 "Update fanout").
func (e *Engine) OnUpdate(id string, fn func(*Entry)) { e.onUpdate.Add(id, fn) }

// Entries returns every entry currently in the store.
func (e *Engine) Entries() []*Entry {
	keys := e.store.keys()
	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.store.byKey[k])
	}
	return out
}

// Get looks up the entry for key, if any.
func (e *Engine) Get(key Key) (*Entry, bool) { return e.store.get(key) }

// HandleInbound processes one decoded HPAP message observed as a global
// Write or Response listener. Messages not addressed to this gateway
// (exactly, or via the ANY broadcast) are ignored, since the DPE only
// tracks data it asked for or that is meant for everyone (spec.md §4.7
// "Inbound sample").
func (e *Engine) HandleInbound(msg hpap.Message) {
	if msg.Kind != hpap.KindWrite && msg.Kind != hpap.KindResponse {
		return
	}
	if msg.Target != hpap.Any && msg.Target != e.local {
		return
	}
	if !msg.Source.IsExact() {
		return
	}
	if !e.dt.Available() {
		return
	}

	key := Key{Device: msg.Source, ValueID: msg.ValueID}
	entry, ok := e.selectEntry(key)
	if !ok {
		return
	}

	entry.RawValue = msg.Value
	entry.LastUpdate = e.clock.Now()
	entry.LastUpdateMonotonic = e.clock.MonotonicMillis()

	if entry.PendingWrite != nil && *entry.PendingWrite == msg.Value {
		entry.PendingWrite = nil
		entry.LastWriteMonotonic = 0
		if cb, ok := e.confirmCallbacks[key]; ok {
			delete(e.confirmCallbacks, key)
			cb(Accepted)
		}
	}

	e.onUpdate.Fire(entry)
}

func (e *Engine) selectEntry(key Key) (*Entry, bool) {
	if entry, ok := e.store.get(key); ok {
		return entry, true
	}
	switch e.cfg.Mode {
	case ModeNone, ModeConfigured:
		return nil, false
	case ModeDefined:
		def := e.defs.Get(uint16(key.ValueID))
		if def.AccessMode == definitions.AccessNone {
			return nil, false
		}
		return e.store.create(key, def), true
	case ModeAny:
		def := e.defs.Get(uint16(key.ValueID))
		return e.store.create(key, def), true
	default:
		return nil, false
	}
}

// Write queues raw as key's pending write (spec.md §4.7 "Write
// protocol", §6 upward API). It returns the phase-2 queueing outcome
// immediately. When confirm is true and onConfirm is non-nil, onConfirm
// is invoked with Accepted once the write is verified by a matching
// response (phase 3) — the asynchronous completion spec.md describes,
// realised here as a callback rather than a blocking return, matching
// the engine's cooperative, non-blocking call surface (spec.md §5).
func (e *Engine) Write(key Key, raw uint16, confirm bool, onConfirm func(WriteResult)) WriteResult {
	if e.cfg.ReadOnly {
		return ReadOnly
	}
	entry, ok := e.store.get(key)
	if !ok {
		return NotConfigured
	}
	if !entry.Writable {
		return NotWritable
	}
	v := raw
	entry.PendingWrite = &v
	if confirm && onConfirm != nil {
		e.confirmCallbacks[key] = onConfirm
	} else {
		delete(e.confirmCallbacks, key)
	}
	return Accepted
}

// AddSubscription marks key subscribed, creating the entry if needed.
// It fails (returns false) unless the definition's access mode permits
// reading and its source pattern includes the key's device (spec.md §3
// invariants).
func (e *Engine) AddSubscription(key Key) bool {
	def := e.definitionFor(key)
	if def.AccessMode == definitions.AccessNone || !def.SourcePattern.Includes(key.Device) {
		return false
	}
	entry := e.store.create(key, def)
	entry.Subscribed = true
	return true
}

// RemoveSubscription clears the subscribed flag, if the entry exists.
func (e *Engine) RemoveSubscription(key Key) {
	if entry, ok := e.store.get(key); ok {
		entry.Subscribed = false
	}
}

// AddWritable marks key writable, creating the entry if needed. It
// fails unless the definition's access mode is one of the Writable
// variants (spec.md §3 invariants).
func (e *Engine) AddWritable(key Key) bool {
	def := e.definitionFor(key)
	if !def.AccessMode.IsWritable() {
		return false
	}
	entry := e.store.create(key, def)
	entry.Writable = true
	return true
}

// RemoveWritable clears the writable flag, if the entry exists.
func (e *Engine) RemoveWritable(key Key) {
	if entry, ok := e.store.get(key); ok {
		entry.Writable = false
	}
}

// definitionFor resolves key's definition. A non-exact key resolves to
// the zero Definition (AccessNone), so AddSubscription and AddWritable
// never create an entry for a wildcard key.
func (e *Engine) definitionFor(key Key) definitions.Definition {
	if !key.Exact() {
		return definitions.Definition{}
	}
	return e.defs.Get(uint16(key.ValueID))
}

// Tick drives periodic maintenance. It is cheap to call every main-loop
// iteration: it only does work once MaintenanceIntervalMs has elapsed
// since the last round (spec.md §4.7 "Periodic maintenance").
func (e *Engine) Tick() {
	now := e.clock.MonotonicMillis()
	if now-e.lastMaintenanceMono < MaintenanceIntervalMs {
		return
	}
	e.lastMaintenanceMono = now
	e.runMaintenanceRound(now)
}

func (e *Engine) runMaintenanceRound(now int64) {
	n := e.store.len()
	ops := 0
	for i := 0; i < n && ops < MaxConcurrentOperations; i++ {
		entry := e.store.next()
		if entry == nil {
			break
		}
		if e.maintainEntry(entry, now) {
			ops++
		}
		if e.Yield != nil {
			e.Yield()
		}
	}
}

func (e *Engine) maintainEntry(entry *Entry, now int64) bool {
	if entry.Writable && entry.PendingWrite != nil {
		if entry.LastUpdateMonotonic == 0 {
			if entry.LastRequestMonotonic != 0 && now-entry.LastRequestMonotonic < MinUpdateIntervalMs {
				return false
			}
			_ = e.out.Request(e.local, entry.Key.Device, entry.Key.ValueID)
			entry.LastRequestMonotonic = now
			return true
		}
		if entry.LastWriteMonotonic == 0 || entry.LastWriteMonotonic+WriteIntervalMs < now {
			_ = e.out.Write(e.local, entry.Key.Device, entry.Key.ValueID, *entry.PendingWrite)
			entry.LastWriteMonotonic = now
			entry.LastUpdateMonotonic = 0
			return true
		}
		return false
	}

	if entry.Subscribed {
		interval := int64(MinUpdateIntervalMs)
		if entry.Definition.UpdateIntervalMs > interval {
			interval = entry.Definition.UpdateIntervalMs
		}
		due := entry.LastUpdateMonotonic == 0 || now > entry.LastUpdateMonotonic+interval
		neverRequested := entry.LastRequestMonotonic == 0
		if due && (neverRequested || now > entry.LastRequestMonotonic+MinUpdateIntervalMs) {
			_ = e.out.Request(e.local, entry.Key.Device, entry.Key.ValueID)
			entry.LastRequestMonotonic = now
			return true
		}
	}
	return false
}
