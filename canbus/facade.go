package canbus

import (
	"strings"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/fanout"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/obslog"
)

const (
	errorThreshold  = 5
	watchdogMs      = 30_000
	defaultBitrate  = 20_000
)

// Queuer is the RSFP seam the facade queues outbound text records onto.
type Queuer interface {
	Queue(payload []byte) error
}

// Config holds the environment-configurable CAN facade parameters
// (spec.md §6).
type Config struct {
	Mode    Mode
	Bitrate int
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeNormal
	}
	if c.Bitrate <= 0 {
		c.Bitrate = defaultBitrate
	}
	return c
}

// counters tracks the per-category rx/tx/err budget (spec.md §4.2).
type counters struct {
	rx, tx, err int
}

// Facade translates RSFP payloads to/from structured CAN frames and
// implements hpap.Transmitter. ListenOnly, when non-nil, is polled to
// decide the effective mode on every send (spec.md §4.2 "Listen-only").
type Facade struct {
	cfg   Config
	rsfp  Queuer
	clock clock.Clock

	ready             bool
	counts            counters
	lastProgressMono  int64

	onReady fanout.Chain[struct{}]
	onFrame fanout.Chain[hpap.Frame]

	ListenOnly func() bool

	// Log, when non-nil, receives readiness-transition and error-budget
	// events. Left nil (the zero value), the facade logs nothing.
	Log *obslog.Logger
}

// NewFacade builds a Facade that queues its text records through r.
func NewFacade(r Queuer, clk clock.Clock, cfg Config) *Facade {
	return &Facade{cfg: cfg.withDefaults(), rsfp: r, clock: clk}
}

// Ready reports whether the facade has completed SETUP and not since
// tripped its error threshold or watchdog.
func (f *Facade) Ready() bool { return f.ready }

// OnReady registers a listener fired on the false->true readiness
// transition.
func (f *Facade) OnReady(id string, fn func()) {
	f.onReady.Add(id, func(struct{}) { fn() })
}

// OnFrame registers a listener fired for every parsed inbound CAN frame.
func (f *Facade) OnFrame(id string, fn func(hpap.Frame)) { f.onFrame.Add(id, fn) }

// effectiveMode applies the listen-only override, if any, over the
// configured mode.
func (f *Facade) effectiveMode() Mode {
	if f.ListenOnly != nil && f.ListenOnly() {
		return ModeListenOnly
	}
	return f.cfg.Mode
}

// SendCANMessage implements hpap.Transmitter. In listen-only mode the
// frame is dropped silently: this is a safety property, not an error
// (spec.md §4.2).
func (f *Facade) SendCANMessage(canID uint16, payload [8]byte, length uint8) error {
	if !f.ready {
		return errcode.NotReady
	}
	if f.effectiveMode() == ModeListenOnly {
		return nil
	}
	frame := hpap.Frame{ID: canID, Len: length, Data: payload}
	line := buildCANTX(frame)
	return f.rsfp.Queue([]byte(line))
}

// HandlePayload processes one RSFP-delivered text record (spec.md §4.2).
// Wire it to rsfp.Endpoint.OnReceive.
func (f *Facade) HandlePayload(payload []byte) {
	line := string(payload)
	keyword, rest, _ := strings.Cut(line, " ")
	switch {
	case keyword == "READY":
		f.handleReady()
	case keyword == "SETUP" && strings.HasPrefix(rest, "OK"):
		f.handleSetupOK()
	case keyword == "SETUP" && strings.HasPrefix(rest, "E"):
		f.bumpError()
	case keyword == "CANRX":
		f.handleCANRX(rest)
	case keyword == "CANTX" && strings.HasPrefix(rest, "OK"):
		f.bumpProgress(&f.counts.tx)
	case keyword == "CANTX" && strings.HasPrefix(rest, "E"):
		f.bumpError()
	}
}

func (f *Facade) handleReady() {
	line := buildSetup(f.cfg.Bitrate, f.effectiveMode())
	_ = f.rsfp.Queue([]byte(line))
}

func (f *Facade) handleSetupOK() {
	f.counts = counters{}
	f.lastProgressMono = f.clock.MonotonicMillis()
	wasReady := f.ready
	f.ready = true
	if !wasReady {
		f.onReady.Fire(struct{}{})
	}
}

func (f *Facade) handleCANRX(rest string) {
	frame, ok := parseCANRX(fields(rest))
	if !ok {
		f.bumpError()
		return
	}
	f.bumpProgress(&f.counts.rx)
	f.onFrame.Fire(frame)
}

func (f *Facade) bumpProgress(counter *int) {
	*counter++
	f.lastProgressMono = f.clock.MonotonicMillis()
}

func (f *Facade) bumpError() {
	f.counts.err++
	if f.counts.err > errorThreshold {
		f.ready = false
		if f.Log != nil {
			f.Log.Warnf("error budget exhausted, resetting link", "errors", f.counts.err)
		}
		if reset, ok := f.rsfp.(interface{ Reset() }); ok {
			reset.Reset()
		}
	}
}

// Tick checks the readiness watchdog: 30s without rx/tx/setup progress
// demotes the facade back to not-ready (spec.md §4.2).
func (f *Facade) Tick() {
	if !f.ready {
		return
	}
	if f.clock.MonotonicMillis()-f.lastProgressMono > watchdogMs {
		f.ready = false
		if f.Log != nil {
			f.Log.Warnf("readiness watchdog expired", "sinceMs", watchdogMs)
		}
	}
}

var _ hpap.Transmitter = (*Facade)(nil)
