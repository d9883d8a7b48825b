package journal

import "fmt"

// FieldKind describes the scalar type a diary field accepts.
type FieldKind int

const (
	// KindRating is an integer rating from 1 to 5.
	KindRating FieldKind = iota
	// KindDecimal is a non-negative decimal measurement.
	KindDecimal
	// KindBool is a boolean toggle.
	KindBool
	// KindText is free text.
	KindText
)

// KnownFields maps the fixed diary field set to its expected kind.
// The sync engine treats field maps generically; this table is for
// edit surfaces that validate user input before it enters a draft.
var KnownFields = map[string]FieldKind{
	"mood":        KindRating,
	"energy":      KindRating,
	"stress":      KindRating,
	"sleep_hours": KindDecimal,
	"weight_kg":   KindDecimal,
	"workout":     KindBool,
	"meditation":  KindBool,
	"notes":       KindText,
}

// ValidateField checks a value against the known field set.
// Unknown field names are rejected; vacuous values are allowed since
// the sanitizer drops them before they reach a payload.
func ValidateField(name string, value any) error {
	kind, ok := KnownFields[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	if vacuous(value) {
		return nil
	}
	switch kind {
	case KindRating:
		n, isNum := asFloat(value)
		if !isNum || n != float64(int(n)) {
			return fmt.Errorf("field %q wants an integer rating, got %v", name, value)
		}
		if n < 1 || n > 5 {
			return fmt.Errorf("field %q rating must be between 1 and 5, got %v", name, value)
		}
	case KindDecimal:
		n, isNum := asFloat(value)
		if !isNum {
			return fmt.Errorf("field %q wants a number, got %v", name, value)
		}
		if n < 0 {
			return fmt.Errorf("field %q must not be negative, got %v", name, value)
		}
	case KindBool:
		if _, isBool := value.(bool); !isBool {
			return fmt.Errorf("field %q wants true or false, got %v", name, value)
		}
	case KindText:
		if _, isStr := value.(string); !isStr {
			return fmt.Errorf("field %q wants text, got %v", name, value)
		}
	}
	return nil
}
