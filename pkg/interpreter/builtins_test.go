package interpreter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"novavm/pkg/bytecode"
	"novavm/pkg/interpreter"
	"novavm/pkg/program"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		builtin     string
		arg         program.Constant
		expected    string
		description string
	}{
		{"str", program.Int(42), "42", "str of int"},
		{"str", program.Float(1.25), "1.25", "str of float"},
		{"typeof", program.Float(1.25), "float", "typeof float"},
		{"typeof", program.String("s"), "string", "typeof string"},
		{"typeof", program.Builtin("len"), "builtin", "typeof builtin"},
		{"len", program.String("hello"), "5", "len of string"},
	}

	for _, test := range tests {
		p := newProgram(
			[]program.Constant{program.Builtin(test.builtin), test.arg},
			bytecode.NewLoadK(1, 1),
			bytecode.NewCall(0),
			bytecode.NewPrint(0, false),
			bytecode.NewHalt(),
		)

		it, out, err := run(t, p)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.description, err)
			continue
		}
		if out != test.expected {
			t.Errorf("%s: expected %q, got %q", test.description, test.expected, out)
		}
		if it.Depth() != 0 {
			t.Errorf("%s: builtin call must not push a frame", test.description)
		}
	}
}

func TestBuiltinTime(t *testing.T) {
	p := newProgram(
		[]program.Constant{program.Builtin("time"), program.String("milli")},
		bytecode.NewLoadK(1, 1),
		bytecode.NewCall(0),
		bytecode.NewHalt(),
	)

	it, _, err := run(t, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r0 := it.Register(0); r0.Kind != interpreter.KindInt || r0.I64 <= 0 {
		t.Errorf("expected positive integer timestamp, got %s", r0)
	}
}

func TestBuiltinFailures(t *testing.T) {
	tests := []struct {
		builtin     string
		arg         program.Constant
		description string
	}{
		{"time", program.Int(1), "time with non-string unit"},
		{"time", program.String("fortnight"), "time with unknown unit"},
		{"len", program.Int(3), "len of int"},
	}

	for _, test := range tests {
		p := newProgram(
			[]program.Constant{program.Builtin(test.builtin), test.arg},
			bytecode.NewLoadK(1, 1),
			bytecode.NewCall(0),
			bytecode.NewHalt(),
		)

		_, _, err := run(t, p)
		f := mustFault(t, err, interpreter.ErrBuiltinFailed)
		if f.PC != 1 || !strings.HasPrefix(f.Detail, test.builtin+":") {
			t.Errorf("%s: unexpected diagnostic %v", test.description, f)
		}
	}
}

func TestCustomBuiltin(t *testing.T) {
	sum := &interpreter.Builtin{
		Name:  "sum",
		Arity: 2,
		Fn: func(_ *interpreter.Interpreter, args []interpreter.Value) (interpreter.Value, error) {
			return interpreter.NewInt(args[0].I64 + args[1].I64), nil
		},
	}
	p := newProgram(
		[]program.Constant{program.Builtin("sum"), program.Int(2), program.Int(3)},
		bytecode.NewLoadK(1, 1),
		bytecode.NewLoadK(2, 2),
		bytecode.NewCall(0),
		bytecode.NewPrint(0, false),
		bytecode.NewHalt(),
	)

	_, out, err := run(t, p, interpreter.WithBuiltins(sum))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "5" {
		t.Errorf("expected 5, got %q", out)
	}
}

func TestBuiltinRegistration(t *testing.T) {
	p := newProgram([]program.Constant{program.Builtin("missing")}, bytecode.NewHalt())
	if _, err := interpreter.NewInterpreter(p); err == nil {
		t.Errorf("expected unknown builtin to be rejected at load")
	}

	bad := &interpreter.Builtin{Name: "wide", Arity: bytecode.NumRegisters, Fn: func(*interpreter.Interpreter, []interpreter.Value) (interpreter.Value, error) {
		return interpreter.Nil, nil
	}}
	if _, err := interpreter.NewInterpreter(nil, interpreter.WithBuiltins(bad)); err == nil {
		t.Errorf("expected builtin with arity beyond the register file to be rejected")
	}
}

func TestExecUsesOptions(t *testing.T) {
	var out bytes.Buffer
	p := newProgram(
		[]program.Constant{program.Int(3)},
		bytecode.NewLoadK(0, 0),
		bytecode.NewPrint(0, true),
		bytecode.NewHalt(),
	)
	if err := interpreter.Exec(p, interpreter.WithWriter(&out)); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out.String() != "3\n" {
		t.Errorf("expected 3, got %q", out.String())
	}

	err := interpreter.Exec(newProgram(nil, bytecode.NewReturn()), interpreter.WithWriter(&out))
	if !errors.Is(err, interpreter.ErrFrameUnderflow) {
		t.Errorf("expected ErrFrameUnderflow, got %v", err)
	}
}
