// Package errcode defines the closed set of stable, caller-facing error
// identifiers used across the gateway core (spec.md §7).
package errcode

// Code is a stable error identifier. It is a string newtype, comparable,
// allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes, one per failure kind named in spec.md §7.
const (
	// RSFP
	Framing         Code = "framing"
	Sequence        Code = "sequence"
	BudgetExhausted Code = "budget_exhausted"
	QueueFull       Code = "queue_full"

	// HPAP / CAN facade
	NotReady     Code = "not_ready"
	InvalidTarget Code = "invalid_target"

	// DPE / value conversion
	ReadOnly             Code = "read_only"
	Unsubscribed         Code = "unsubscribed"
	NotWritable          Code = "not_writable"
	NotDefined           Code = "not_defined"
	NotConfigured        Code = "not_configured"
	OutOfRange           Code = "out_of_range"
	PersistenceTruncated Code = "persistence_truncated"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + string(e.C) + ": " + e.Msg
	}
	if e.Op != "" {
		return e.Op + ": " + string(e.C)
	}
	return string(e.C)
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap builds an *E, attaching the op and an optional cause.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
