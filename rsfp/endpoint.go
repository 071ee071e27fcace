package rsfp

import (
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/fanout"
)

// Writer is the byte-stream seam an Endpoint sends framed lines over.
// The transport package supplies one backed by a real serial port.
type Writer interface {
	Write(p []byte) (int, error)
}

// Endpoint is one side of the reliable serial framing protocol: a
// six-slot transmit window plus a line-assembling receiver, both driven
// by explicit state machines rather than goroutines or timers (spec.md
// §4.1, §5). Feed and Tick are the only entry points that make progress;
// callers own the cooperative loop.
type Endpoint struct {
	cfg   Config
	clock clock.Clock
	out   Writer

	slots        [WindowSize]txSlot
	lastIndex    int // -1 means the ring has never been written
	firstUnacked int
	nextTxSeq    uint8

	rxBuf       []byte
	nextRxSeq   uint8
	lastAckSent uint8
	haveSentAck bool

	timeoutEnabled bool

	onReceive fanout.Chain[[]byte]
	onError   fanout.Chain[ErrorEvent]

	// Yield is called after each fully assembled line is processed, the
	// suspension point required by spec.md §5(a). It may be nil.
	Yield func()
}

// NewEndpoint builds an Endpoint writing framed lines to out.
func NewEndpoint(out Writer, clk clock.Clock, cfg Config) *Endpoint {
	e := &Endpoint{
		cfg:   cfg.withDefaults(),
		clock: clk,
		out:   out,
	}
	e.Reset()
	return e
}

// Reset flushes both buffers, zeroes all slots, and restarts sequence
// numbering (spec.md §4.1 "Lifecycle"). Called on startup and from the
// CAN facade's error-threshold recovery.
func (e *Endpoint) Reset() {
	e.slots = [WindowSize]txSlot{}
	e.lastIndex = -1
	e.firstUnacked = 0
	e.nextTxSeq = SeqModulo - 1 // wraps to 0 on next assignment
	e.rxBuf = e.rxBuf[:0]
	e.nextRxSeq = 0
	e.haveSentAck = false
	e.timeoutEnabled = true
}

// OnReceive registers a listener invoked with each delivered normal-frame
// payload, in on-wire order.
func (e *Endpoint) OnReceive(id string, fn func([]byte)) { e.onReceive.Add(id, fn) }

// OnError registers a listener invoked for locally detected and
// peer-reported protocol errors.
func (e *Endpoint) OnError(id string, fn func(ErrorEvent)) { e.onError.Add(id, fn) }

func (e *Endpoint) canQueue() bool {
	next := (e.lastIndex + 1) % WindowSize
	return e.slots[next].state == slotAcked
}

// Queue assigns the payload a sequence number and writes it into the
// next free slot, transmitting immediately if that slot is also the
// window head (spec.md §4.1 "Queueing contract").
func (e *Endpoint) Queue(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return errcode.Framing
	}
	if !e.canQueue() {
		return errcode.QueueFull
	}
	next := (e.lastIndex + 1) % WindowSize
	e.nextTxSeq = (e.nextTxSeq + 1) % SeqModulo
	seq := e.nextTxSeq

	e.slots[next] = txSlot{state: slotUnacked, seq: seq, payload: append([]byte(nil), payload...)}
	e.lastIndex = next

	if next == e.firstUnacked {
		e.send(next)
	}
	return nil
}

func (e *Endpoint) send(i int) {
	e.slots[i].state = slotSent
	e.slots[i].sendMonotonic = e.clock.MonotonicMillis()
	e.slots[i].retries = e.cfg.ResendLimit
	_, _ = e.out.Write(encodeNormal(e.slots[i].seq, e.slots[i].payload))
}

// Tick advances the transmit timeout/retry state machine. It must be
// called regularly by the cooperative main loop; it performs no I/O of
// its own beyond the occasional retransmit or give-up frame.
func (e *Endpoint) Tick() {
	i := e.firstUnacked
	if e.slots[i].state != slotSent || !e.timeoutEnabled {
		return
	}
	now := e.clock.MonotonicMillis()
	if now-e.slots[i].sendMonotonic < e.cfg.TimeoutMs {
		return
	}
	if e.slots[i].retries > 0 {
		remaining := e.slots[i].retries - 1
		e.send(i)
		e.slots[i].retries = remaining
		return
	}
	// Budget exhausted: tell the peer, give up locally (spec.md §4.1,
	// §7 BudgetExhausted).
	_, _ = e.out.Write(encodeControl(opError, errBudgetExceeded))
	e.onError.Fire(ErrorEvent{Code: errcode.BudgetExhausted, Detail: "retry budget exhausted"})
	e.advancePastHead()
}

func (e *Endpoint) advancePastHead() {
	e.slots[e.firstUnacked].state = slotAcked
	e.slots[e.firstUnacked].payload = nil
	e.firstUnacked = (e.firstUnacked + 1) % WindowSize
	if e.slots[e.firstUnacked].state == slotUnacked {
		e.send(e.firstUnacked)
	}
}

// processAck handles an inbound ack value s, acknowledging the slot
// whose sequence is s-1 mod 26 (spec.md §4.1 "cumulative-of-one").
// Stale acks (no matching Sent slot at the window head) are ignored.
func (e *Endpoint) processAck(s uint8) {
	ackedSeq := (s + SeqModulo - 1) % SeqModulo
	i := e.firstUnacked
	if e.slots[i].state == slotSent && e.slots[i].seq == ackedSeq {
		e.advancePastHead()
	}
}
