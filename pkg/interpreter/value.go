package interpreter

import (
	"fmt"
	"math"
	"strconv"

	"novavm/pkg/program"
)

type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindFunction
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// StringObject is the shared payload behind a string reference.
type StringObject struct {
	Text string
}

// Value represents a dynamically-typed value in the VM.
// References (Str, Proto, Native) are handles: copying a Value shares the pointee.
type Value struct {
	Kind   ValueKind
	I64    int64
	F64    float64
	Str    *StringObject
	Proto  *program.Prototype
	Native *Builtin
}

// Nil is the zero Value.
var Nil = Value{}

// NewInt creates a new integer Value.
func NewInt(i int64) Value {
	return Value{Kind: KindInt, I64: i}
}

// NewFloat creates a new float Value.
func NewFloat(f float64) Value {
	return Value{Kind: KindFloat, F64: f}
}

// NewString wraps an existing string object.
func NewString(s *StringObject) Value {
	return Value{Kind: KindString, Str: s}
}

// NewFunction creates a reference to a bytecode prototype.
func NewFunction(p *program.Prototype) Value {
	return Value{Kind: KindFunction, Proto: p}
}

// NewBuiltin creates a reference to a built-in.
func NewBuiltin(b *Builtin) Value {
	return Value{Kind: KindFunction, Native: b}
}

func (v Value) IsNil() bool { return v.Kind == KindNil }

// IsNumeric reports whether the value takes part in arithmetic.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// IsHeap reports whether the value references a collectable heap object.
func (v Value) IsHeap() bool {
	return v.Kind == KindString && v.Str != nil
}

// AsFloat64 converts a numeric value to float64.
func (v Value) AsFloat64() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.F64, nil
	case KindInt:
		return float64(v.I64), nil
	default:
		return 0, fmt.Errorf("cannot convert %v to float", v.Kind)
	}
}

// Text returns the string payload, or "" for non-strings.
func (v Value) Text() string {
	if v.Kind == KindString && v.Str != nil {
		return v.Str.Text
	}
	return ""
}

// TypeName reports the user-facing kind name (functions and builtins are told apart).
func (v Value) TypeName() string {
	if v.Kind == KindFunction && v.Native != nil {
		return "builtin"
	}
	return v.Kind.String()
}

// String renders the value as PRINT shows it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return v.Text()
	case KindFunction:
		if v.Native != nil {
			return "<builtin " + v.Native.Name + ">"
		}
		if v.Proto != nil {
			return "<function " + v.Proto.Name + ">"
		}
		return "<function>"
	default:
		return "nil"
	}
}

// Identical reports whether two values have the same tag and payload bits.
// References compare by handle.
func (v Value) Identical(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindInt:
		return v.I64 == o.I64
	case KindFloat:
		return math.Float64bits(v.F64) == math.Float64bits(o.F64)
	case KindString:
		return v.Str == o.Str
	default:
		return v.Proto == o.Proto && v.Native == o.Native
	}
}
