package datapoint

import "github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/definitions"

// store is the keyed entry map plus an insertion-ordered key list the
// maintenance scheduler walks round-robin (spec.md §4.7 "Keyed store").
// A plain cursor over an ordered slice, not a heap: starvation is bounded
// by a full lap, not by per-entry due times.
type store struct {
	byKey map[Key]*Entry
	order []Key
	cursor int
}

func newStore() *store {
	return &store{byKey: map[Key]*Entry{}}
}

func (s *store) get(key Key) (*Entry, bool) {
	e, ok := s.byKey[key]
	return e, ok
}

// create adds a new entry for key if absent, seeding its cached
// definition. Returns the existing entry unchanged if key is already
// present.
func (s *store) create(key Key, def definitions.Definition) *Entry {
	if e, ok := s.byKey[key]; ok {
		return e
	}
	e := &Entry{Key: key, Definition: def}
	s.byKey[key] = e
	s.order = append(s.order, key)
	return e
}

// remove deletes an entry entirely. Per spec.md §3 "Lifecycles", data
// points are destroyed only on factory reset; this is that primitive,
// not something the subscription/writable toggles call.
func (s *store) remove(key Key) {
	if _, ok := s.byKey[key]; !ok {
		return
	}
	delete(s.byKey, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			if s.cursor > i {
				s.cursor--
			}
			break
		}
	}
}

func (s *store) len() int { return len(s.order) }

// next returns the entry at the cursor and advances it, wrapping at the
// end of the order list (spec.md §4.7, §5 "round-robin").
func (s *store) next() *Entry {
	if len(s.order) == 0 {
		return nil
	}
	if s.cursor >= len(s.order) {
		s.cursor = 0
	}
	e := s.byKey[s.order[s.cursor]]
	s.cursor = (s.cursor + 1) % len(s.order)
	return e
}

// keys returns every key currently in the store, in insertion order.
func (s *store) keys() []Key {
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}
