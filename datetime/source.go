// Package datetime reconstructs wall-clock time from the five
// DATETIME_* HPAP fields plus monotonic ticks, and gates the DPE on
// their availability (spec.md §4.8).
package datetime

import (
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/hpap"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/internal/clock"
	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/x/mathx"
)

const (
	yearID   hpap.ValueID = 0x00F0
	monthID  hpap.ValueID = 0x00F1
	dayID    hpap.ValueID = 0x00F2
	hourID   hpap.ValueID = 0x00F3
	minuteID hpap.ValueID = 0x00F4

	requestIntervalMs = 30_000
	fieldAgeThreshold = 30_000
)

const (
	bitYear = 1 << iota
	bitMonth
	bitDay
	bitHour
	bitMinute
	allFields = bitYear | bitMonth | bitDay | bitHour | bitMinute
)

// field tracks one received DATETIME_* component and when it was last
// received (for the minute field: when its value last changed), for
// age-based re-request.
type field struct {
	value               int
	lastUpdateMonotonic int64
	seen                bool
}

// Outbound is the HPAP seam the source issues Request calls through.
type Outbound interface {
	Request(source, target hpap.DeviceID, vid hpap.ValueID) error
}

// Source subscribes to the System device's DATETIME_* fields and
// reconstructs the current wall-clock date-time from the last-received
// snapshot plus elapsed monotonic time (spec.md §4.8).
type Source struct {
	out   Outbound
	clock clock.Clock
	local hpap.DeviceID

	year, month, day, hour, minute field
	availableFields                uint8

	lastRequestRoundMono int64
}

// NewSource builds a Source. local is the gateway's own identity, used
// as the source of its outbound Request calls.
func NewSource(out Outbound, clk clock.Clock, local hpap.DeviceID) *Source {
	return &Source{out: out, clock: clk, local: local}
}

// HandleInbound observes a decoded HPAP message; call it as a listener
// on Dispatcher.OnResponse and OnWrite. Non-DATETIME_* fields, and
// messages not from the System device, are ignored.
func (s *Source) HandleInbound(msg hpap.Message) {
	if msg.Source.Type != hpap.TypeSystem {
		return
	}
	now := s.clock.MonotonicMillis()
	switch msg.ValueID {
	case yearID:
		s.year = field{value: int(msg.Value), lastUpdateMonotonic: now, seen: true}
		s.availableFields |= bitYear
	case monthID:
		s.month = field{value: int(msg.Value), lastUpdateMonotonic: now, seen: true}
		s.availableFields |= bitMonth
	case dayID:
		s.day = field{value: int(msg.Value), lastUpdateMonotonic: now, seen: true}
		s.availableFields |= bitDay
	case hourID:
		s.hour = field{value: int(msg.Value), lastUpdateMonotonic: now, seen: true}
		s.availableFields |= bitHour
	case minuteID:
		// The original only latches a new minute on an actual change (or
		// the very first sighting); a repeated identical minute value
		// must not reset the elapsed-time anchor.
		if !s.minute.seen || int(msg.Value) != s.minute.value {
			s.minute = field{value: int(msg.Value), lastUpdateMonotonic: now, seen: true}
		}
		s.availableFields |= bitMinute
	default:
		return
	}
}

// Available reports whether all five fields have been observed at
// least once.
func (s *Source) Available() bool { return s.availableFields == allFields }

// Tick requests any stale or never-seen field, at most once every
// requestIntervalMs (spec.md §4.8).
func (s *Source) Tick() {
	now := s.clock.MonotonicMillis()
	if now-s.lastRequestRoundMono < requestIntervalMs {
		return
	}
	s.lastRequestRoundMono = now

	s.requestIfStale(minuteID, s.minute, now)
	s.requestIfStale(hourID, s.hour, now)
	s.requestIfStale(dayID, s.day, now)
	s.requestIfStale(monthID, s.month, now)
	s.requestIfStale(yearID, s.year, now)
}

func (s *Source) requestIfStale(vid hpap.ValueID, f field, now int64) {
	if f.seen && now-f.lastUpdateMonotonic < fieldAgeThreshold {
		return
	}
	target := hpap.DeviceID{Type: hpap.TypeSystem, Address: s.local.Address}
	_ = s.out.Request(s.local, target, vid)
}

// DateTime is the reconstructed wall-clock value, carried forward from
// the last-received minute snapshot.
type DateTime struct {
	Year, Month, Day, Hour, Minute, Second int
}

// Current reconstructs the current date-time from the last snapshot
// plus elapsed monotonic time, carrying seconds through
// minutes/hours/days/months/years with Gregorian leap-year handling
// (every 4, not 100, yes 400). The second return is false until
// Available().
func (s *Source) Current() (DateTime, bool) {
	if !s.Available() {
		return DateTime{}, false
	}

	elapsedMs := mathx.Max(s.clock.MonotonicMillis()-s.minute.lastUpdateMonotonic, int64(0))
	elapsedSec := elapsedMs / 1000

	dt := DateTime{
		Year:   2000 + s.year.value,
		Month:  s.month.value,
		Day:    s.day.value,
		Hour:   s.hour.value,
		Minute: s.minute.value,
		Second: 0,
	}

	dt.Second = int(elapsedSec % 60)
	minuteAdjustment := elapsedSec / 60
	totalMinutes := dt.Minute + int(minuteAdjustment)
	dt.Minute = totalMinutes % 60
	hourAdjustment := totalMinutes / 60
	totalHours := dt.Hour + hourAdjustment
	dt.Hour = totalHours % 24
	dayAdjustment := totalHours / 24

	for dayAdjustment > 0 {
		n := daysInMonth(dt.Year, dt.Month)
		remaining := n - dt.Day
		add := dayAdjustment
		if add > remaining {
			add = remaining
		}
		if add == 0 {
			add = 1
		}
		newDay := (dt.Day % n) + add
		if newDay < dt.Day {
			newMonth := (dt.Month % 12) + 1
			if newMonth < dt.Month {
				dt.Year++
			}
			dt.Month = newMonth
		}
		dt.Day = newDay
		dayAdjustment -= add
	}

	return dt, true
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var daysInMonthTable = [2][12]int{
	{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
	{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
}

func daysInMonth(year, month int) int {
	leap := 0
	if isLeapYear(year) {
		leap = 1
	}
	return daysInMonthTable[leap][month-1]
}
