package interpreter

import (
	"math"

	"novavm/pkg/bytecode"
)

// evalBinary evaluates an arithmetic opcode.
// Integer pairs stay integers (wrapping on overflow); any float operand
// promotes both sides to float.
func evalBinary(op bytecode.Opcode, a, b Value) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Nil, ErrTypeMismatch
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		return intBinary(op, a.I64, b.I64)
	}

	af, _ := a.AsFloat64()
	bf, _ := b.AsFloat64()
	return floatBinary(op, af, bf)
}

func intBinary(op bytecode.Opcode, x, y int64) (Value, error) {
	switch op {
	case bytecode.OpAdd:
		return NewInt(x + y), nil
	case bytecode.OpSub:
		return NewInt(x - y), nil
	case bytecode.OpMul:
		return NewInt(x * y), nil
	case bytecode.OpDiv:
		if y == 0 {
			return Nil, ErrDivisionByZero
		}
		// MinInt64 / -1 wraps to MinInt64
		return NewInt(x / y), nil
	case bytecode.OpMod:
		if y == 0 {
			return Nil, ErrDivisionByZero
		}
		return NewInt(x % y), nil
	case bytecode.OpPow:
		if y < 0 {
			return NewFloat(math.Pow(float64(x), float64(y))), nil
		}
		return NewInt(ipow(x, y)), nil
	}
	return Nil, ErrInvalidOpcode
}

func floatBinary(op bytecode.Opcode, x, y float64) (Value, error) {
	switch op {
	case bytecode.OpAdd:
		return NewFloat(x + y), nil
	case bytecode.OpSub:
		return NewFloat(x - y), nil
	case bytecode.OpMul:
		return NewFloat(x * y), nil
	case bytecode.OpDiv:
		if y == 0 {
			return Nil, ErrDivisionByZero
		}
		return NewFloat(x / y), nil
	case bytecode.OpMod:
		if y == 0 {
			return Nil, ErrDivisionByZero
		}
		return NewFloat(math.Mod(x, y)), nil
	case bytecode.OpPow:
		return NewFloat(math.Pow(x, y)), nil
	}
	return Nil, ErrInvalidOpcode
}

// ipow is square-and-multiply with wrapping arithmetic; e must be >= 0.
func ipow(base, e int64) int64 {
	result := int64(1)
	for e > 0 {
		if e&1 == 1 {
			result *= base
		}
		base *= base
		e >>= 1
	}
	return result
}

// compare evaluates a < b, or a <= b when orEqual is set.
func compare(a, b Value, orEqual bool) (bool, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return false, ErrTypeMismatch
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		if orEqual {
			return a.I64 <= b.I64, nil
		}
		return a.I64 < b.I64, nil
	}

	af, _ := a.AsFloat64()
	bf, _ := b.AsFloat64()
	if orEqual {
		return af <= bf, nil
	}
	return af < bf, nil
}
