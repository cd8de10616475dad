package domain

import (
	"encoding/json"
	"strconv"
)

// UndefinedText is how an undefined figure crosses the serialization boundary.
const UndefinedText = "NA"

// Figure is a floating point aggregate that may be undefined (no data).
// The zero value is undefined, so a forgotten assignment never reads as 0.
type Figure struct {
	value   float64
	defined bool
}

// Defined wraps a computed value.
func Defined(v float64) Figure {
	return Figure{value: v, defined: true}
}

// Undefined returns the "no data" figure.
func Undefined() Figure {
	return Figure{}
}

// IsDefined reports whether the figure carries a value.
func (f Figure) IsDefined() bool { return f.defined }

// Float64 returns the value and whether it is defined.
func (f Figure) Float64() (float64, bool) {
	return f.value, f.defined
}

// String formats the figure with the shortest exact representation,
// or UndefinedText.
func (f Figure) String() string {
	if !f.defined {
		return UndefinedText
	}
	return strconv.FormatFloat(f.value, 'f', -1, 64)
}

// MarshalJSON encodes undefined as null.
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.defined {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
