// Package journal defines the day-keyed diary record primitives shared by
// the sync engine: the sparse field map, sanitization, and field-level
// diffing against the last synced baseline.
package journal

import "math"

// Fields is a sparse map of diary fields for a single day.
//
// Values are scalars: integer ratings (1-5), decimal measurements,
// booleans, and free text. A missing key means the field was never set;
// the engine does not distinguish "unset" from "absent".
type Fields map[string]any

// Clone returns a shallow copy of the field map.
// Cloning a nil map returns an empty, non-nil map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Overlay returns a new map with overlay applied on top of base,
// overlay keys winning. Neither input is modified.
func Overlay(base, overlay Fields) Fields {
	out := base.Clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Sanitize returns a copy of fields with vacuous values removed:
// nils, empty strings, and NaN numbers. It never fails and never
// modifies its input.
func Sanitize(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if vacuous(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func vacuous(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// Diff returns the keys of the sanitized draft whose values differ from
// the baseline. A key missing from the baseline counts as a difference.
// Keys absent from the draft are never emitted: clearing a field is only
// possible through the full-payload save path, which transmits an
// explicit null.
func Diff(draft, baseline Fields) Fields {
	out := Fields{}
	for k, v := range Sanitize(draft) {
		base, ok := baseline[k]
		if !ok || !Equal(v, base) {
			out[k] = v
		}
	}
	return out
}

// Equal reports whether two scalar field values are equal. Numeric
// values compare by value regardless of Go type, since drafts mix CLI
// ints with JSON float64s.
func Equal(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
