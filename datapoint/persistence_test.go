package datapoint

import (
	"io"
	"testing"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
)

// memFile is an in-memory File for exercising persistence without real
// filesystem access.
type memFile struct{ data []byte }

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:], p)
	return len(p), nil
}

func (f *memFile) Truncate(size int64) error {
	if size == 0 {
		f.data = nil
		return nil
	}
	f.data = f.data[:size]
	return nil
}

func TestPersistenceRoundTrip(t *testing.T) {
	e, _, _, _ := newTestEngine(ModeAny, false)

	subKey := Key{Device: sensor, ValueID: 0x0000}
	writeKey := Key{Device: hpap.DeviceID{Type: hpap.TypeHeatingCircuit, Address: 1}, ValueID: 0x000C}
	if !e.AddSubscription(subKey) {
		t.Fatalf("AddSubscription failed")
	}
	if !e.AddWritable(writeKey) {
		t.Fatalf("AddWritable failed")
	}

	subFile := &memFile{}
	if err := e.SaveSubscriptions(subFile); err != nil {
		t.Fatalf("SaveSubscriptions: %v", err)
	}
	writableFile := &memFile{}
	if err := e.SaveWritables(writableFile); err != nil {
		t.Fatalf("SaveWritables: %v", err)
	}

	fresh, _, _, _ := newTestEngine(ModeAny, false)
	fresh.LoadSubscriptions(subFile, 256)
	fresh.LoadWritables(writableFile, 256)

	entry, ok := fresh.Get(subKey)
	if !ok || !entry.Subscribed {
		t.Errorf("expected %v reloaded as subscribed", subKey)
	}
	entry, ok = fresh.Get(writeKey)
	if !ok || !entry.Writable {
		t.Errorf("expected %v reloaded as writable", writeKey)
	}
}

func TestPersistenceTruncatedFileTreatedAsEmpty(t *testing.T) {
	f := &memFile{data: []byte(subscriptionsHeader + "\x00\x01")} // 2 trailing bytes, not a full record
	keys := decodeKeys(subscriptionsHeader, readAll(f, 256))
	if len(keys) != 0 {
		t.Errorf("truncated body should decode to zero keys, got %d", len(keys))
	}
}

func TestPersistenceMismatchedHeaderTreatedAsEmpty(t *testing.T) {
	f := &memFile{data: []byte("~X9.9" + "\x00\x00\x00\x00")}
	keys := decodeKeys(subscriptionsHeader, readAll(f, 256))
	if len(keys) != 0 {
		t.Errorf("mismatched header should decode to zero keys, got %d", len(keys))
	}
}
