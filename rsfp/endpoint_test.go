package rsfp

import (
	"bytes"
	"testing"
	"time"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
)

type recordingWriter struct {
	lines [][]byte
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.lines = append(w.lines, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) last() []byte {
	if len(w.lines) == 0 {
		return nil
	}
	return w.lines[len(w.lines)-1]
}

func newTestEndpoint() (*Endpoint, *recordingWriter, *clock.Fake) {
	w := &recordingWriter{}
	clk := clock.NewFake(time.Unix(0, 0))
	e := NewEndpoint(w, clk, Config{})
	return e, w, clk
}

func TestQueueTransmitsImmediatelyAtWindowHead(t *testing.T) {
	e, w, _ := newTestEndpoint()
	if err := e.Queue([]byte("hello")); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	want := "+A hello\r\n"
	if got := string(w.last()); got != want {
		t.Errorf("wire line = %q, want %q", got, want)
	}
}

func TestQueueFillsWindowThenFails(t *testing.T) {
	e, _, _ := newTestEndpoint()
	for i := 0; i < WindowSize; i++ {
		if err := e.Queue([]byte{byte('a' + i)}); err != nil {
			t.Fatalf("Queue %d: %v", i, err)
		}
	}
	if err := e.Queue([]byte("overflow")); err == nil {
		t.Errorf("expected QueueFull once window is saturated")
	}
}

func TestAckAdvancesWindowAndSendsNextQueuedSlot(t *testing.T) {
	e, w, _ := newTestEndpoint()
	_ = e.Queue([]byte("first"))
	_ = e.Queue([]byte("second"))

	if len(w.lines) != 1 {
		t.Fatalf("only the head slot should have transmitted, got %d lines", len(w.lines))
	}

	// Ack seq 0 (the "first" frame) by sending ack value 1 ('B').
	e.Feed([]byte("#=B\r\n"))

	if len(w.lines) != 2 {
		t.Fatalf("acking the head should transmit the next queued slot, got %d lines", len(w.lines))
	}
	want := "+B second\r\n"
	if got := string(w.lines[1]); got != want {
		t.Errorf("second frame = %q, want %q", got, want)
	}
}

func TestStaleAckIgnored(t *testing.T) {
	e, w, _ := newTestEndpoint()
	_ = e.Queue([]byte("only"))
	before := len(w.lines)

	e.Feed([]byte("#=Z\r\n")) // unrelated ack value

	if len(w.lines) != before {
		t.Errorf("stale ack should not change transmit state, wrote %d new lines", len(w.lines)-before)
	}
}

func TestRetransmitOnTimeout(t *testing.T) {
	e, w, clk := newTestEndpoint()
	_ = e.Queue([]byte("x"))
	if len(w.lines) != 1 {
		t.Fatalf("expected initial transmission")
	}

	clk.Advance(2001 * time.Millisecond)
	e.Tick()

	if len(w.lines) != 2 {
		t.Fatalf("expected a retransmit after timeout, got %d lines", len(w.lines))
	}
	if !bytes.Equal(w.lines[0], w.lines[1]) {
		t.Errorf("retransmitted frame should be identical: %q vs %q", w.lines[0], w.lines[1])
	}
}

func TestBudgetExhaustedGivesUpLocally(t *testing.T) {
	e, w, clk := newTestEndpoint()
	_ = e.Queue([]byte("x"))
	_ = e.Queue([]byte("y"))

	var errs []ErrorEvent
	e.OnError("test", func(ev ErrorEvent) { errs = append(errs, ev) })

	for i := 0; i < 5; i++ { // 1 initial send + 4 retries = budget exhausted
		clk.Advance(2001 * time.Millisecond)
		e.Tick()
	}

	if len(errs) != 1 {
		t.Fatalf("expected exactly one BudgetExhausted error, got %d", len(errs))
	}
	foundGiveUp, foundNext := false, false
	for _, l := range w.lines {
		if string(l) == "#!R\r\n" {
			foundGiveUp = true
		}
		if bytes.Contains(l, []byte("y")) {
			foundNext = true
		}
	}
	if !foundGiveUp {
		t.Errorf("expected a peer-facing give-up frame (#!R) among %q", w.lines)
	}
	// Giving up on the head must release the window so the next queued
	// frame ("y") transmits.
	if !foundNext {
		t.Errorf("second frame should have transmitted once the head gave up")
	}
}

func TestReceiveDeliversInOrderAndAcks(t *testing.T) {
	e, w, _ := newTestEndpoint()
	var received [][]byte
	e.OnReceive("test", func(p []byte) { received = append(received, append([]byte(nil), p...)) })

	e.Feed([]byte("+A hello\r\n"))

	if len(received) != 1 || string(received[0]) != "hello" {
		t.Fatalf("expected delivered payload 'hello', got %v", received)
	}
	want := "#=B\r\n"
	if got := string(w.last()); got != want {
		t.Errorf("ack = %q, want %q", got, want)
	}
}

func TestReceiveOutOfOrderResendsLastAck(t *testing.T) {
	e, w, _ := newTestEndpoint()
	e.Feed([]byte("+A hello\r\n")) // establishes lastAckSent = B
	firstAck := string(w.last())

	e.Feed([]byte("+C unexpected\r\n")) // not the expected next seq (B)
	secondAck := string(w.last())

	if firstAck != secondAck {
		t.Errorf("out-of-order frame should re-send the last ack: %q != %q", firstAck, secondAck)
	}
}

func TestBadFramingEmitsError(t *testing.T) {
	e, w, _ := newTestEndpoint()
	var errs []ErrorEvent
	e.OnError("test", func(ev ErrorEvent) { errs = append(errs, ev) })

	e.Feed([]byte("+A bad\n")) // missing \r before \n

	if len(errs) != 1 {
		t.Fatalf("expected one framing error, got %d", len(errs))
	}
	if got := string(w.last()); got != "#!E\r\n" {
		t.Errorf("expected #!E on the wire, got %q", got)
	}
}

func TestWrongControlFrameSizeAndUnknownOp(t *testing.T) {
	e, w, _ := newTestEndpoint()
	e.Feed([]byte("#=\r\n")) // control frame too short
	if got := string(w.last()); got != "#!S\r\n" {
		t.Errorf("expected #!S for wrong size, got %q", got)
	}

	e.Feed([]byte("#Zx\r\n")) // unknown op
	if got := string(w.last()); got != "#!C\r\n" {
		t.Errorf("expected #!C for unknown op, got %q", got)
	}
}

func TestTimeoutToggleEchoesControlResponse(t *testing.T) {
	e, w, _ := newTestEndpoint()
	e.Feed([]byte("#T-\r\n"))
	if got := string(w.last()); got != ">T-\r\n" {
		t.Errorf("expected timeout-disable echo, got %q", got)
	}
	if e.timeoutEnabled {
		t.Errorf("timeout should now be disabled")
	}
}

func TestReset(t *testing.T) {
	e, _, _ := newTestEndpoint()
	_ = e.Queue([]byte("x"))
	e.Feed([]byte("+A y\r\n"))

	e.Reset()

	if e.nextTxSeq != SeqModulo-1 {
		t.Errorf("nextTxSeq after reset = %d, want %d", e.nextTxSeq, SeqModulo-1)
	}
	if e.nextRxSeq != 0 {
		t.Errorf("nextRxSeq after reset = %d, want 0", e.nextRxSeq)
	}
	if !e.canQueue() {
		t.Errorf("window should be empty after reset")
	}
}

// Universal invariant from spec.md §8: sequence numbers assigned to
// consecutively enqueued frames differ by 1 mod 26.
func TestConsecutiveSeqNumbersDifferByOne(t *testing.T) {
	e, _, _ := newTestEndpoint()
	var seqs []uint8
	// Drain one slot's worth of ack between each queue so every frame
	// reaches the wire head and we can observe its assigned seq via the
	// wire line's seq byte.
	w := &recordingWriter{}
	e.out = w
	for i := 0; i < 10; i++ {
		_ = e.Queue([]byte{'x'})
		line := w.lines[len(w.lines)-1]
		seqs = append(seqs, seqFromByte(line[1]))
		// Ack it immediately so the next Queue call transmits too.
		ackVal := (seqs[len(seqs)-1] + 1) % SeqModulo
		e.Feed(encodeControl(opAck, seqByte(ackVal)))
	}
	for i := 1; i < len(seqs); i++ {
		diff := (int(seqs[i]) - int(seqs[i-1]) + SeqModulo) % SeqModulo
		if diff != 1 {
			t.Errorf("seq %d -> %d differs by %d, want 1", seqs[i-1], seqs[i], diff)
		}
	}
}
