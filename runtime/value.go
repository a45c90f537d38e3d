// Package runtime holds the Minima value model: tagged values, growable
// arrays, the scoped symbol table and run-time error codes.
package runtime

import (
	"fmt"
	"strconv"
)

// Type identifies the dynamic type of a Value.
type Type int

const (
	TypeVoid Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeArray

	// TypeAny is only valid as a declared parameter type.
	TypeAny
)

var typeNames = [...]string{
	TypeVoid:   "Void",
	TypeBool:   "Bool",
	TypeInt:    "Int",
	TypeFloat:  "Float",
	TypeString: "String",
	TypeArray:  "Array",
	TypeAny:    "Any",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ---------------------------------------------------------------------------
// Value
// ---------------------------------------------------------------------------

// Value is a tagged Minima value. The zero Value is Void.
type Value struct {
	typ Type
	i   int64 // Int payload, Bool as 0/1
	f   float64
	s   string
	a   *Array
}

// Void is the absence of a value.
var Void = Value{}

// FromBool creates a Bool value.
func FromBool(b bool) Value {
	if b {
		return Value{typ: TypeBool, i: 1}
	}
	return Value{typ: TypeBool}
}

// FromInt creates an Int value.
func FromInt(n int64) Value {
	return Value{typ: TypeInt, i: n}
}

// FromFloat64 creates a Float value.
func FromFloat64(f float64) Value {
	return Value{typ: TypeFloat, f: f}
}

// FromString creates a String value.
func FromString(s string) Value {
	return Value{typ: TypeString, s: s}
}

// FromArray creates an Array value holding a handle to a. Copies of the
// value share the array.
func FromArray(a *Array) Value {
	if a == nil {
		return Void
	}
	return Value{typ: TypeArray, a: a}
}

// Type returns the dynamic type of v.
func (v Value) Type() Type { return v.typ }

// IsVoid reports whether v carries no value.
func (v Value) IsVoid() bool { return v.typ == TypeVoid }

// IsNumeric reports whether v is an Int, Float or Bool.
func (v Value) IsNumeric() bool {
	return v.typ == TypeInt || v.typ == TypeFloat || v.typ == TypeBool
}

// Int returns the integer payload. Bools are 0 or 1 and floats truncate.
func (v Value) Int() int64 {
	if v.typ == TypeFloat {
		return int64(v.f)
	}
	return v.i
}

// Float64 returns the payload as a float. Ints and Bools are converted.
func (v Value) Float64() float64 {
	if v.typ == TypeFloat {
		return v.f
	}
	return float64(v.i)
}

// Bool returns the boolean payload of a Bool or Int value.
func (v Value) Bool() bool {
	return v.i != 0
}

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Array returns the array handle, or nil when v is not an Array.
func (v Value) Array() *Array { return v.a }

// IsTruthy reports whether v counts as true in a condition. Only numeric
// values have truth; everything else is false.
func (v Value) IsTruthy() bool {
	switch v.typ {
	case TypeInt, TypeBool:
		return v.i != 0
	case TypeFloat:
		return v.f != 0
	}
	return false
}

// String renders v the way print shows scalars.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.i != 0)
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return fmt.Sprintf("%f", v.f)
	case TypeString:
		return v.s
	case TypeArray:
		return fmt.Sprintf("<array len=%d>", v.a.Len())
	}
	return "void"
}
