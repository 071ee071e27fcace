package convert

import "math"

// Converter moves between a codec's integer domain and a semantic value
// shaped like a decoded JSON document: float64, bool, string, or
// map[string]bool for Bitfield (spec.md §4.5, §6).
type Converter interface {
	FromInteger(v int32) (any, error)
	ToInteger(v any) (int32, error)
}

// Numeric applies a fixed decimal point to the integer domain.
// DecimalPoint shifts the decimal point right (positive) or left
// (negative) by that many digits; zero means the integer is the value.
// DecimalPoint must be in [-6, 6].
type Numeric struct {
	DecimalPoint int
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

func (n Numeric) FromInteger(v int32) (any, error) {
	switch {
	case n.DecimalPoint == 0:
		return float64(v), nil
	case n.DecimalPoint > 0:
		return float64(v) * pow10(n.DecimalPoint), nil
	default:
		return float64(v) / pow10(-n.DecimalPoint), nil
	}
}

func (n Numeric) ToInteger(v any) (int32, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errOutOfRange
	}
	switch {
	case n.DecimalPoint > 0:
		f /= pow10(n.DecimalPoint)
	case n.DecimalPoint < 0:
		f *= pow10(-n.DecimalPoint)
	}
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errOutOfRange
	}
	return int32(math.Round(f)), nil
}

// Boolean converts between the integers 0/1 and false/true.
type Boolean struct{}

func (Boolean) FromInteger(v int32) (any, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return nil, errOutOfRange
	}
}

func (Boolean) ToInteger(v any) (int32, error) {
	b, ok := v.(bool)
	if !ok {
		return 0, errOutOfRange
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

// Bitfield names up to 16 individual bits of the integer domain.
// FromInteger yields a map holding every named bit, true where the bit
// is set and false where it is clear; unnamed bits are ignored on
// decode and left clear on encode.
type Bitfield struct {
	Names []string // Names[i] names bit i; empty entries are unnamed
}

func (bf Bitfield) FromInteger(v int32) (any, error) {
	out := make(map[string]bool, len(bf.Names))
	for i, name := range bf.Names {
		if name == "" {
			continue
		}
		out[name] = v&(1<<uint(i)) != 0
	}
	return out, nil
}

func (bf Bitfield) ToInteger(v any) (int32, error) {
	index := make(map[string]int, len(bf.Names))
	for i, name := range bf.Names {
		if name != "" {
			index[name] = i
		}
	}

	var out int32
	setBit := func(name string, set bool) error {
		i, known := index[name]
		if !known {
			return errOutOfRange
		}
		if set {
			out |= 1 << uint(i)
		}
		return nil
	}

	switch m := v.(type) {
	case map[string]bool:
		for name, set := range m {
			if err := setBit(name, set); err != nil {
				return 0, err
			}
		}
	case map[string]any:
		// The shape encoding/json produces when decoding into `any`,
		// e.g. as FromJSON's intermediate representation.
		for name, raw := range m {
			set, ok := raw.(bool)
			if !ok {
				return 0, errOutOfRange
			}
			if err := setBit(name, set); err != nil {
				return 0, err
			}
		}
	default:
		return 0, errOutOfRange
	}
	return out, nil
}

// EnumPair maps one integer value to its symbolic name.
type EnumPair struct {
	Int  int32
	Name string
}

// Enumeration maps integers to symbolic names and back. FromInteger
// returns a nil value for an integer with no matching pair; ToInteger
// errors for an unknown name.
type Enumeration struct {
	Pairs []EnumPair
}

func (e Enumeration) FromInteger(v int32) (any, error) {
	for _, p := range e.Pairs {
		if p.Int == v {
			return p.Name, nil
		}
	}
	return nil, nil
}

func (e Enumeration) ToInteger(v any) (int32, error) {
	name, ok := v.(string)
	if !ok {
		return 0, errOutOfRange
	}
	for _, p := range e.Pairs {
		if p.Name == name {
			return p.Int, nil
		}
	}
	return 0, errOutOfRange
}
