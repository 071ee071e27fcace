// Package transport owns the physical serial link to the CAN
// co-processor: dialling, reconnect-with-backoff, and non-blocking byte
// delivery into the RSFP endpoint (spec.md §6). Adapted from the
// teacher's services/bridge link-supervision shape, generalised from a
// goroutine-per-link model to the cooperative single-loop model the
// rest of this repo uses (spec.md §5): there is no background reader
// goroutine, only a Poll call serviced from the main loop.
package transport

import (
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
)

// Port is the minimal byte-stream the Link drives. *serial.Port
// satisfies it; tests supply a fake.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Config describes the serial device to dial.
type Config struct {
	Device   string
	BaudRate int

	// ReadTimeoutMs bounds a single Poll's blocking read, so Poll always
	// returns promptly even with nothing to read (default 20ms).
	ReadTimeoutMs int

	// BackoffMinMs/BackoffMaxMs bound the reconnect backoff (default
	// 250ms / 5000ms, matching the teacher's bridge service).
	BackoffMinMs int64
	BackoffMaxMs int64
}

func (c Config) withDefaults() Config {
	if c.ReadTimeoutMs == 0 {
		c.ReadTimeoutMs = 20
	}
	if c.BackoffMinMs == 0 {
		c.BackoffMinMs = 250
	}
	if c.BackoffMaxMs == 0 {
		c.BackoffMaxMs = 5000
	}
	return c
}

// Dialer opens a Port for cfg. SerialDialer is the real implementation;
// tests inject a fake.
type Dialer func(cfg Config) (Port, error)

// SerialDialer opens cfg.Device via github.com/tarm/serial.
func SerialDialer(cfg Config) (Port, error) {
	return serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.BaudRate,
		ReadTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
	})
}

// Link owns one reconnecting serial connection. It is driven entirely
// by Tick (attempt reconnect) and Poll (read what's available); neither
// blocks for long, matching the cooperative loop model.
type Link struct {
	cfg   Config
	dial  Dialer
	clock clock.Clock

	port      Port
	connected bool

	nextAttemptMono int64
	backoff         backoff

	// OnConnect is invoked once a new connection is established -
	// callers use it to reset RSFP's endpoint state, since sequence
	// numbers on both ends of a freshly dialled link start over.
	OnConnect func()

	readBuf [256]byte
}

// NewLink builds a Link. dial is typically SerialDialer; tests pass a
// fake.
func NewLink(cfg Config, dial Dialer, clk clock.Clock) *Link {
	cfg = cfg.withDefaults()
	return &Link{
		cfg:     cfg,
		dial:    dial,
		clock:   clk,
		backoff: newBackoff(cfg.BackoffMinMs, cfg.BackoffMaxMs),
	}
}

// Connected reports whether the link currently has an open port.
func (l *Link) Connected() bool { return l.connected }

// Tick attempts to (re)connect if not currently connected and the
// backoff window has elapsed. Cheap to call every main-loop iteration.
func (l *Link) Tick() {
	if l.connected {
		return
	}
	now := l.clock.MonotonicMillis()
	if now < l.nextAttemptMono {
		return
	}
	port, err := l.dial(l.cfg)
	if err != nil {
		l.nextAttemptMono = now + l.backoff.next()
		return
	}
	l.port = port
	l.connected = true
	l.backoff.reset()
	if l.OnConnect != nil {
		l.OnConnect()
	}
}

// Poll performs one bounded read and passes any bytes received to feed.
// A read error disconnects the link, which Tick will then retry with
// backoff.
func (l *Link) Poll(feed func([]byte)) {
	if !l.connected {
		return
	}
	n, err := l.port.Read(l.readBuf[:])
	if n > 0 {
		feed(l.readBuf[:n])
	}
	if err != nil && err != io.EOF {
		l.disconnect()
	}
}

// Write implements rsfp.Writer, writing directly to the open port.
func (l *Link) Write(p []byte) (int, error) {
	if !l.connected {
		return 0, errNotConnected
	}
	n, err := l.port.Write(p)
	if err != nil {
		l.disconnect()
	}
	return n, err
}

func (l *Link) disconnect() {
	if l.port != nil {
		_ = l.port.Close()
	}
	l.port = nil
	l.connected = false
	l.nextAttemptMono = l.clock.MonotonicMillis() + l.backoff.next()
}
