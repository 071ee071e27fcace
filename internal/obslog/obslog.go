// Package obslog is the structured-logging facade every package logs
// local failures and notable state transitions through. It wraps
// zerolog, replacing the teacher's bare println(...) calls (seen in
// services/heartbeat/service.go) with leveled, component-scoped events.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped logger. The zero value is NOT usable —
// zerolog.Logger's zero value has no writer — so callers that hold an
// optional *Logger (e.g. canbus.Facade.Log) must nil-check before use
// rather than rely on a zero value working.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to w, tagged with component (e.g.
// "rsfp", "canbus", "datapoint").
func New(w io.Writer, component string) Logger {
	return Logger{z: zerolog.New(w).With().Timestamp().Str("component", component).Logger()}
}

// NewConsole builds a Logger writing human-readable output to stderr,
// the default for cmd/gateway.
func NewConsole(component string) Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, component)
}

func (l Logger) Info(msg string)               { l.z.Info().Msg(msg) }
func (l Logger) Infof(msg string, kv ...any)    { l.fields(l.z.Info(), kv).Msg(msg) }
func (l Logger) Warnf(msg string, kv ...any)    { l.fields(l.z.Warn(), kv).Msg(msg) }
func (l Logger) Errorf(msg string, kv ...any)   { l.fields(l.z.Error(), kv).Msg(msg) }
func (l Logger) ErrorErr(err error, msg string) { l.z.Error().Err(err).Msg(msg) }

// fields attaches alternating key/value pairs as structured fields. Odd
// trailing keys are dropped silently; callers always pass pairs.
func (l Logger) fields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
