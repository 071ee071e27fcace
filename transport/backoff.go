package transport

import (
	"errors"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/x/mathx"
)

var errNotConnected = errors.New("transport: link not connected")

// backoff is the doubling reconnect delay, grounded on the teacher's
// bridge.backoffSeq.
type backoff struct {
	min, max, cur int64
}

func newBackoff(min, max int64) backoff {
	if min <= 0 {
		min = 100
	}
	if max < min {
		max = min
	}
	return backoff{min: min, max: max, cur: min}
}

func (b *backoff) next() int64 {
	d := b.cur
	b.cur = mathx.Min(b.cur*2, b.max)
	return d
}

func (b *backoff) reset() { b.cur = b.min }
