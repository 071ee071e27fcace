package datapoint

import (
	"io"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
)

// subscriptionsHeader and writablesHeader are the fixed 5-byte version
// headers prefixing each persisted file (spec.md §4.7, §6).
const (
	subscriptionsHeader = "~S1.0"
	writablesHeader     = "~W1.0"
	recordSize          = 4
)

// File is the stable-storage seam persistence reads and writes through.
type File interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
}

func encodeRecord(k Key) [recordSize]byte {
	var rec [recordSize]byte
	rec[0] = byte(k.ValueID >> 8)
	rec[1] = byte(k.ValueID)
	rec[2] = byte(k.Device.Type)
	rec[3] = k.Device.Address
	return rec
}

func decodeRecord(rec [recordSize]byte) Key {
	return Key{
		Device:  hpap.DeviceID{Type: hpap.DeviceType(rec[2]), Address: rec[3]},
		ValueID: hpap.ValueID(uint16(rec[0])<<8 | uint16(rec[1])),
	}
}

// encodeKeys renders header followed by one fixed-size record per key.
func encodeKeys(header string, keys []Key) []byte {
	buf := make([]byte, 0, len(header)+len(keys)*recordSize)
	buf = append(buf, header...)
	for _, k := range keys {
		rec := encodeRecord(k)
		buf = append(buf, rec[:]...)
	}
	return buf
}

// decodeKeys parses a persisted file's contents. A missing or mismatched
// header, or a body not an exact multiple of the record size, is treated
// as an empty file — spec.md §4.7/§5's "tolerate truncated or
// header-mismatched files" policy — rather than an error, since callers
// only ever want "what's persisted, or nothing."
func decodeKeys(header string, data []byte) []Key {
	if len(data) < len(header) || string(data[:len(header)]) != header {
		return nil
	}
	body := data[len(header):]
	if len(body)%recordSize != 0 {
		return nil
	}
	n := len(body) / recordSize
	keys := make([]Key, 0, n)
	for i := 0; i < n; i++ {
		var rec [recordSize]byte
		copy(rec[:], body[i*recordSize:(i+1)*recordSize])
		keys = append(keys, decodeRecord(rec))
	}
	return keys
}

// rewriteFile replaces f's entire contents with data (spec.md §4.7 "On
// every add/remove, the corresponding file is rewritten in its
// entirety").
func rewriteFile(f File, data []byte) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt(data, 0)
	return err
}

// readAll drains f into memory for decodeKeys. Real files are small
// (header plus a handful of 4-byte records) so this never needs
// streaming.
func readAll(f File, maxLen int) []byte {
	buf := make([]byte, maxLen)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF && n == 0 {
		return nil
	}
	return buf[:n]
}

// LoadSubscriptions reads subscribed keys from f and marks them on the
// engine (creating entries as needed, same rules as AddSubscription).
func (e *Engine) LoadSubscriptions(f File, maxLen int) {
	for _, k := range decodeKeys(subscriptionsHeader, readAll(f, maxLen)) {
		e.AddSubscription(k)
	}
}

// LoadWritables reads writable keys from f and marks them on the engine.
func (e *Engine) LoadWritables(f File, maxLen int) {
	for _, k := range decodeKeys(writablesHeader, readAll(f, maxLen)) {
		e.AddWritable(k)
	}
}

// SaveSubscriptions rewrites f with every currently subscribed key.
func (e *Engine) SaveSubscriptions(f File) error {
	var keys []Key
	for _, k := range e.store.keys() {
		if e.store.byKey[k].Subscribed {
			keys = append(keys, k)
		}
	}
	return rewriteFile(f, encodeKeys(subscriptionsHeader, keys))
}

// SaveWritables rewrites f with every currently writable key.
func (e *Engine) SaveWritables(f File) error {
	var keys []Key
	for _, k := range e.store.keys() {
		if e.store.byKey[k].Writable {
			keys = append(keys, k)
		}
	}
	return rewriteFile(f, encodeKeys(writablesHeader, keys))
}
