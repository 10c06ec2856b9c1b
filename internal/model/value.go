package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind is the scalar category of a captured Value.
type ValueKind int

const (
	// KindInvalid marks the zero Value.
	KindInvalid ValueKind = iota
	// KindBool holds a boolean.
	KindBool
	// KindInt holds a signed integer.
	KindInt
	// KindUint holds an unsigned integer.
	KindUint
	// KindFloat holds a 64-bit float.
	KindFloat
	// KindString holds a string.
	KindString
)

var valueKindNames = map[ValueKind]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "float",
	KindString:  "string",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is a captured scalar. Values are compared exactly: no rounding or
// normalization is ever applied. Floats compare by bit pattern, except that
// every NaN equals every other NaN.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	U    uint64
	F    float64
	S    string
}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{Kind: KindInt, I: i} }

// Uint wraps an unsigned integer.
func Uint(u uint64) Value { return Value{Kind: KindUint, U: u} }

// Float wraps a float.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// String wraps a string.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool {
	return v.Kind != KindInvalid
}

// Equal reports exact equality, including the kind.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindBool:
		return v.B == other.B
	case KindInt:
		return v.I == other.I
	case KindUint:
		return v.U == other.U
	case KindFloat:
		if math.IsNaN(v.F) && math.IsNaN(other.F) {
			return true
		}

		return math.Float64bits(v.F) == math.Float64bits(other.F)
	case KindString:
		return v.S == other.S
	case KindInvalid:
		return true
	}

	return false
}

// Literal renders v as a Go expression that evaluates to the same value.
// Unsigned values are wrapped in a uint64 conversion so that they parse back
// to the same kind.
func (v Value) Literal() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindUint:
		return "uint64(" + strconv.FormatUint(v.U, 10) + ")"
	case KindFloat:
		return floatLiteral(v.F)
	case KindString:
		return strconv.Quote(v.S)
	case KindInvalid:
		return "<invalid>"
	}

	return "<invalid>"
}

func (v Value) String() string {
	return v.Literal()
}

func floatLiteral(f float64) string {
	switch {
	case math.IsNaN(f):
		return "math.NaN()"
	case math.IsInf(f, 1):
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		return "math.Inf(-1)"
	case f == 0 && math.Signbit(f):
		return "math.Copysign(0, -1)"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}
