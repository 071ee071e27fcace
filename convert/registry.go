package convert

import (
	"encoding/json"
	"hash/fnv"
	"strconv"

	"github.com/simonlmn/can-wifi-gateway-stiebel-eltron-sub000/errcode"
)

// Built-in codec and converter ids. These are fixed and never reassigned
// so persisted definitions referencing them survive restarts (spec.md
// §4.5). Numeric and Boolean are the only converters with no parameters
// of their own, so they are the only ones pre-registered under a fixed
// id; Bitfield and Enumeration always carry per-value-id parameters
// (bit names, enum pairs) and get a stable id derived from those
// parameters via RegisterConverter/ConverterIDFor instead.
const (
	CodecUnsigned16    = 1
	CodecSigned16      = 2
	CodecUnsigned8High = 3

	ConverterNumeric = 1
	ConverterBoolean = 2
)

const firstCustomID = 1000

// Registry holds a dense-id table of codecs and converters. Built-ins are
// registered at fixed ids; custom converters created at runtime (from
// persisted per-value-id configuration) are assigned an id derived from a
// stable hash of their descriptor, so the same configuration always
// resolves to the same id regardless of registration order (spec.md
// §4.5).
type Registry struct {
	codecs      map[int]Codec
	converters  map[int]Converter
	customByKey map[string]int
}

// NewRegistry builds a Registry with the built-in codecs and converters
// pre-registered.
func NewRegistry() *Registry {
	r := &Registry{
		codecs:      map[int]Codec{},
		converters:  map[int]Converter{},
		customByKey: map[string]int{},
	}
	r.codecs[CodecUnsigned16] = Unsigned16{}
	r.codecs[CodecSigned16] = Signed16{}
	r.codecs[CodecUnsigned8High] = Unsigned8High{}

	r.converters[ConverterNumeric] = Numeric{DecimalPoint: 0}
	r.converters[ConverterBoolean] = Boolean{}
	return r
}

// Codec looks up a codec by id.
func (r *Registry) Codec(id int) (Codec, error) {
	c, ok := r.codecs[id]
	if !ok {
		return nil, errcode.NotDefined
	}
	return c, nil
}

// Converter looks up a converter by id.
func (r *Registry) Converter(id int) (Converter, error) {
	c, ok := r.converters[id]
	if !ok {
		return nil, errcode.NotDefined
	}
	return c, nil
}

// RegisterCodec installs c under a custom id derived from key, returning
// that id. Calling RegisterCodec again with the same key returns the
// same id (matching the stable-id requirement for restart round-tripped
// definitions) and replaces the codec stored under it with c.
func (r *Registry) RegisterCodec(key string, c Codec) int {
	id := stableID("codec:" + key)
	r.codecs[id] = c
	return id
}

// RegisterConverter installs c under a custom id derived from key,
// returning that id, with the same same-key-same-id behaviour as
// RegisterCodec. key should encode the converter's kind and parameters
// (e.g. "numeric:2" or "enum:0=off,1=on") so identical configurations
// always collide onto the same id.
func (r *Registry) RegisterConverter(key string, c Converter) int {
	id := stableID("converter:" + key)
	r.converters[id] = c
	return id
}

// ToJSON runs raw through the codec/converter pair named by codecID and
// converterID and marshals the resulting semantic value, the two-stage
// pipeline an upward HTTP/MQTT collaborator would call to render a
// data point's value (spec.md §4.5, §6).
func (r *Registry) ToJSON(codecID, converterID int, raw uint16) ([]byte, error) {
	c, err := r.Codec(codecID)
	if err != nil {
		return nil, err
	}
	conv, err := r.Converter(converterID)
	if err != nil {
		return nil, err
	}
	v, err := conv.FromInteger(c.Decode(raw))
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// FromJSON runs the inverse pipeline: unmarshal data as the converter's
// semantic type, convert to the integer domain, then encode to the
// codec's raw wire form.
func (r *Registry) FromJSON(codecID, converterID int, data []byte) (uint16, error) {
	c, err := r.Codec(codecID)
	if err != nil {
		return 0, err
	}
	conv, err := r.Converter(converterID)
	if err != nil {
		return 0, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	// JSON numbers decode as float64, which is the numeric type
	// Numeric.ToInteger accepts (it rejects int and json.Number).
	iv, err := conv.ToInteger(v)
	if err != nil {
		return 0, err
	}
	return c.Encode(iv)
}

// stableID derives a dense-looking but restart-stable custom id from an
// arbitrary descriptor string via FNV-1a, offset above the built-in id
// range.
func stableID(descriptor string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(descriptor))
	return firstCustomID + int(h.Sum32()%1_000_000)
}

// ConverterIDFor returns the same stable id RegisterConverter(key, ...)
// would assign, without registering anything. Callers that need to embed
// a converter id in a table built before any Registry exists (e.g.
// definitions.builtinTable) compute it this way; RegisterConverter must
// still be called against the Registry actually in use for Converter/
// ToJSON/FromJSON to resolve the id to a usable Converter.
func ConverterIDFor(key string) int {
	return stableID("converter:" + key)
}

// NumericKey builds the descriptor key RegisterConverter expects for a
// Numeric converter with the given decimal point.
func NumericKey(decimalPoint int) string {
	return "numeric:" + strconv.Itoa(decimalPoint)
}

// BitfieldKey builds the descriptor key for a Bitfield converter from its
// bit names, in bit order.
func BitfieldKey(names []string) string {
	key := "bitfield:"
	for i, n := range names {
		if i > 0 {
			key += ","
		}
		key += n
	}
	return key
}

// EnumerationKey builds the descriptor key for an Enumeration converter
// from its pairs, in declared order.
func EnumerationKey(pairs []EnumPair) string {
	key := "enum:"
	for i, p := range pairs {
		if i > 0 {
			key += ","
		}
		key += strconv.Itoa(int(p.Int)) + "=" + p.Name
	}
	return key
}
