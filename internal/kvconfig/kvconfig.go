// Package kvconfig parses and renders the textual `/config/<component>`
// file format: a `~C1.0` version header followed by `name=value;` pairs,
// capped at 256 bytes (spec.md §6). Hand-rolled against this exact
// grammar rather than reaching for a general TOML/YAML library, since
// none of those produce this bit-for-bit format (see DESIGN.md).
package kvconfig

import (
	"sort"
	"strconv"
	"strings"
)

const (
	header  = "~C1.0"
	MaxSize = 256
)

// Values is a parsed config file's key/value pairs.
type Values map[string]string

// Parse decodes data. A missing or mismatched header is treated as an
// empty file, the same tolerate-and-ignore policy datapoint/persistence
// applies to its own headered files: callers only ever want "what's
// configured, or nothing."
func Parse(data []byte) Values {
	if len(data) < len(header) || string(data[:len(header)]) != header {
		return Values{}
	}
	body := string(data[len(header):])
	out := Values{}
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		name, value, ok := strings.Cut(stmt, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

// Encode renders v back to the on-wire format, in sorted key order for
// deterministic output. The caller is responsible for keeping the
// result within MaxSize.
func Encode(v Values) []byte {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(header)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v[k])
		b.WriteByte(';')
	}
	return []byte(b.String())
}

// String returns v[name], or def if absent.
func (v Values) String(name, def string) string {
	if s, ok := v[name]; ok {
		return s
	}
	return def
}

// Int returns v[name] parsed as an integer, or def if absent or
// unparseable.
func (v Values) Int(name string, def int) int {
	s, ok := v[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Bool returns v[name] parsed as a bool ("true"/"false"), or def if
// absent or unparseable.
func (v Values) Bool(name string, def bool) bool {
	s, ok := v[name]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
