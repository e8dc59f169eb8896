package interpreter

import (
	"fmt"
	"time"

	"novavm/pkg/bytecode"
)

// Builtin is a host function callable through CALL. Arguments are read from
// R1..R(Arity) and the result is stored in R0.
type Builtin struct {
	Name  string
	Arity int
	Fn    func(i *Interpreter, args []Value) (Value, error)
}

// DefaultBuiltins returns the standard built-in set.
func DefaultBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "time", Arity: 1, Fn: builtinTime},
		{Name: "str", Arity: 1, Fn: builtinStr},
		{Name: "typeof", Arity: 1, Fn: builtinTypeof},
		{Name: "len", Arity: 1, Fn: builtinLen},
	}
}

func builtinTime(_ *Interpreter, args []Value) (Value, error) {
	if args[0].Kind != KindString {
		return Nil, fmt.Errorf("time() requires a string argument, got %s", args[0].TypeName())
	}

	now := time.Now()
	switch unit := args[0].Text(); unit {
	case "sec":
		return NewInt(now.Unix()), nil
	case "milli":
		return NewInt(now.UnixMilli()), nil
	case "micro":
		return NewInt(now.UnixMicro()), nil
	case "nano":
		return NewInt(now.UnixNano()), nil
	default:
		return Nil, fmt.Errorf("time(): unknown unit %q", unit)
	}
}

func builtinStr(i *Interpreter, args []Value) (Value, error) {
	if args[0].Kind == KindString {
		return args[0], nil
	}
	return i.allocString(args[0].String()), nil
}

func builtinTypeof(i *Interpreter, args []Value) (Value, error) {
	return i.allocString(args[0].TypeName()), nil
}

func builtinLen(_ *Interpreter, args []Value) (Value, error) {
	if args[0].Kind != KindString {
		return Nil, fmt.Errorf("len() requires a string argument, got %s", args[0].TypeName())
	}
	return NewInt(int64(len(args[0].Text()))), nil
}

func validBuiltin(b *Builtin) error {
	if b == nil || b.Name == "" || b.Fn == nil {
		return fmt.Errorf("builtin must have a name and a function")
	}
	if b.Arity < 0 || b.Arity > bytecode.NumRegisters-1 {
		return fmt.Errorf("builtin %s: arity %d outside 0..%d", b.Name, b.Arity, bytecode.NumRegisters-1)
	}
	return nil
}
