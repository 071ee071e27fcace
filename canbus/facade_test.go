package canbus

import (
	"testing"
	"time"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
)

type fakeQueuer struct {
	lines     []string
	resets    int
}

func (q *fakeQueuer) Queue(payload []byte) error {
	q.lines = append(q.lines, string(payload))
	return nil
}

func (q *fakeQueuer) Reset() { q.resets++ }

func newTestFacade() (*Facade, *fakeQueuer, *clock.Fake) {
	q := &fakeQueuer{}
	clk := clock.NewFake(time.Unix(0, 0))
	f := NewFacade(q, clk, Config{})
	return f, q, clk
}

func TestReadySequence(t *testing.T) {
	f, q, _ := newTestFacade()
	var readyFired int
	f.OnReady("test", func() { readyFired++ })

	f.HandlePayload([]byte("READY"))
	if len(q.lines) != 1 || q.lines[0] != "SETUP 4E20 NOR" {
		t.Fatalf("expected a SETUP line, got %v", q.lines)
	}

	if f.Ready() {
		t.Fatalf("facade should not be ready before SETUP OK")
	}
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))
	if !f.Ready() {
		t.Fatalf("facade should be ready after SETUP OK")
	}
	if readyFired != 1 {
		t.Errorf("ready listener should fire once, fired %d times", readyFired)
	}
}

func TestCANRXParsedAndDispatched(t *testing.T) {
	f, _, _ := newTestFacade()
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))

	var got hpap.Frame
	var fired bool
	f.OnFrame("test", func(fr hpap.Frame) { got = fr; fired = true })

	f.HandlePayload([]byte("CANRX 00000000 3 32 1F FA"))
	if !fired {
		t.Fatalf("expected onFrame to fire")
	}
	if got.ID != 0 || got.Len != 3 || got.Data[0] != 0x32 || got.Data[1] != 0x1F || got.Data[2] != 0xFA {
		t.Errorf("parsed frame mismatch: %+v", got)
	}
}

func TestSendCANMessageRequiresReady(t *testing.T) {
	f, q, _ := newTestFacade()
	err := f.SendCANMessage(0, [8]byte{}, 7)
	if err == nil {
		t.Fatalf("expected NotReady before SETUP OK")
	}
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))
	if err := f.SendCANMessage(0x10, [8]byte{0x32, 0x1F}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.lines) != 1 {
		t.Fatalf("expected one CANTX line queued, got %v", q.lines)
	}
}

func TestListenOnlyDropsSendsSilently(t *testing.T) {
	f, q, _ := newTestFacade()
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))
	f.ListenOnly = func() bool { return true }
	before := len(q.lines)

	if err := f.SendCANMessage(1, [8]byte{}, 7); err != nil {
		t.Errorf("listen-only drop must not be an error, got %v", err)
	}
	if len(q.lines) != before {
		t.Errorf("listen-only send should not queue a line")
	}
}

func TestErrorThresholdTripsResetAndNotReady(t *testing.T) {
	f, q, _ := newTestFacade()
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))

	for i := 0; i < errorThreshold+1; i++ {
		f.HandlePayload([]byte("CANTX E1 deadbeef"))
	}
	if f.Ready() {
		t.Errorf("facade should drop readiness once the error threshold is exceeded")
	}
	if q.resets == 0 {
		t.Errorf("expected RSFP reset to have been requested")
	}
}

func TestWatchdogDemotesReadiness(t *testing.T) {
	f, _, clk := newTestFacade()
	f.HandlePayload([]byte("SETUP OK 20000 NOR"))

	clk.Advance(31 * time.Second)
	f.Tick()

	if f.Ready() {
		t.Errorf("facade should lose readiness after 30s without progress")
	}
}
