package definitions

import "sort"

// Repository resolves value-id to Definition, overlaying user-written
// definitions on top of the compile-time built-in table (spec.md §4.6).
// Lookups are O(log n) on a sorted index; both tables are kept sorted by
// ValueID so lookups never need to scan.
type Repository struct {
	builtin []Definition // sorted by ValueID
	user    []Definition // sorted by ValueID

	tx *transaction
}

// transaction buffers store/remove calls made between Begin and
// Commit/Rollback so Commit can apply them atomically relative to
// observable state (spec.md §4.6).
type transaction struct {
	base    []Definition // snapshot of user table at Begin
	pending []Definition // working copy, mutated by Store/Remove
}

// NewRepository builds a Repository seeded with the built-in table.
func NewRepository() *Repository {
	r := &Repository{builtin: append([]Definition(nil), builtinTable...)}
	sort.Slice(r.builtin, func(i, j int) bool { return r.builtin[i].ValueID < r.builtin[j].ValueID })
	return r
}

func lookup(table []Definition, vid uint16) (Definition, bool) {
	i := sort.Search(len(table), func(i int) bool { return table[i].ValueID >= vid })
	if i < len(table) && table[i].ValueID == vid {
		return table[i], true
	}
	return Definition{}, false
}

// Get resolves vid, preferring a user definition over a built-in one,
// and falling back to the "undefined" sentinel (AccessMode None) if
// neither exists.
func (r *Repository) Get(vid uint16) Definition {
	if d, ok := lookup(r.user, vid); ok {
		return d
	}
	if d, ok := lookup(r.builtin, vid); ok {
		return d
	}
	return undefined(vid)
}

// Begin starts a mutation transaction. Only one transaction may be open
// at a time; Begin called while one is open replaces it (callers are
// expected to complete or roll back before issuing another).
func (r *Repository) Begin() {
	r.tx = &transaction{
		base:    r.user,
		pending: append([]Definition(nil), r.user...),
	}
}

// Store upserts def.ValueID into the open transaction's working set.
func (r *Repository) Store(def Definition) {
	t := r.tx
	i := sort.Search(len(t.pending), func(i int) bool { return t.pending[i].ValueID >= def.ValueID })
	if i < len(t.pending) && t.pending[i].ValueID == def.ValueID {
		t.pending[i] = def
		return
	}
	t.pending = append(t.pending, Definition{})
	copy(t.pending[i+1:], t.pending[i:])
	t.pending[i] = def
}

// Remove deletes vid from the open transaction's working set, if
// present.
func (r *Repository) Remove(vid uint16) {
	t := r.tx
	i := sort.Search(len(t.pending), func(i int) bool { return t.pending[i].ValueID >= vid })
	if i < len(t.pending) && t.pending[i].ValueID == vid {
		t.pending = append(t.pending[:i], t.pending[i+1:]...)
	}
}

// Commit makes the transaction's working set the repository's user
// table. Persistence of the user table to stable storage is the
// caller's responsibility (the repository itself only holds the
// in-memory overlay).
func (r *Repository) Commit() {
	if r.tx == nil {
		return
	}
	r.user = r.tx.pending
	r.tx = nil
}

// Rollback discards the open transaction's changes.
func (r *Repository) Rollback() {
	r.tx = nil
}
