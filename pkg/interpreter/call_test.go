package interpreter_test

import (
	"errors"
	"testing"

	"novavm/pkg/bytecode"
	"novavm/pkg/interpreter"
	"novavm/pkg/program"
)

// callProgram is main -> f where f clobbers R5 and R9, round-trips a value
// through its locals and returns 200 in R0.
func callProgram() *program.Program {
	main := &program.Prototype{Name: "main", Entry: 3, Registers: 16}
	f := &program.Prototype{Name: "f", Entry: 13, Registers: 10, Locals: 2}

	return newProgram(
		[]program.Constant{
			program.Function(main), // 0
			program.Function(f),    // 1
			program.Int(7),         // 2
			program.Int(100),       // 3
			program.Int(42),        // 4
		},
		bytecode.NewCall(0),                         // 0
		bytecode.NewFrame(),                         // 1
		bytecode.NewJump(1, false),                  // 2 -> 3
		bytecode.NewLoadK(5, 2),                     // 3 main
		bytecode.NewLoadK(0, 2),                     // 4
		bytecode.NewLoadK(9, 4),                     // 5
		bytecode.NewCall(1),                         // 6
		bytecode.NewFrame(),                         // 7
		bytecode.NewJump(5, false),                  // 8 -> 13
		bytecode.NewPrint(0, true),                  // 9
		bytecode.NewPrint(5, true),                  // 10
		bytecode.NewPrint(9, true),                  // 11
		bytecode.NewReturn(),                        // 12
		bytecode.NewLoadK(5, 3),                     // 13 f
		bytecode.NewLoadK(9, 3),                     // 14
		bytecode.NewI(bytecode.OpStoreLocal, 5, 1),  // 15
		bytecode.NewI(bytecode.OpLoadLocal, 0, 1),   // 16
		bytecode.NewBinary(bytecode.OpAdd, 0, 0, 0), // 17
		bytecode.NewReturn(),                        // 18
	)
}

func TestCallReturn(t *testing.T) {
	it, out, err := run(t, callProgram())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "200\n7\n42\n" {
		t.Errorf("expected callee result and restored caller registers, got %q", out)
	}
	if got := it.Result(); !got.Identical(interpreter.NewInt(200)) {
		t.Errorf("expected result 200, got %s", got)
	}
	if it.Depth() != 0 {
		t.Errorf("expected empty frame stack, got depth %d", it.Depth())
	}
	if it.Locals().Len() != 0 {
		t.Errorf("expected callee locals discarded, got %d slots", it.Locals().Len())
	}
}

func TestCallPreservesCallerRegisters(t *testing.T) {
	it, err := interpreter.NewInterpreter(callProgram())
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}

	for it.PC() != 6 {
		if _, err := it.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	before := it.Registers()

	sawCallee := false
	for it.PC() != 9 {
		if _, err := it.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
		if it.Depth() == 2 {
			sawCallee = true
			if frames := it.Frames(); frames[1].Callee.Name != "f" || frames[1].ReturnPC != 9 {
				t.Fatalf("unexpected frame %+v", frames[1])
			}
		}
	}
	if !sawCallee {
		t.Fatalf("callee frame never became active")
	}

	after := it.Registers()
	for r := 1; r < bytecode.NumRegisters; r++ {
		if !after[r].Identical(before[r]) {
			t.Errorf("R%d changed across call: %s -> %s", r, before[r], after[r])
		}
	}
	if !after[0].Identical(interpreter.NewInt(200)) {
		t.Errorf("expected return value in R0, got %s", after[0])
	}
}

func TestCalleeLocalsAreFramed(t *testing.T) {
	main := &program.Prototype{Name: "main", Entry: 3, Registers: 4, Locals: 1}
	g := &program.Prototype{Name: "g", Entry: 9, Registers: 4, Locals: 3}
	p := newProgram(
		[]program.Constant{program.Function(main), program.Function(g), program.Int(1), program.Int(2)},
		bytecode.NewCall(0),
		bytecode.NewFrame(),
		bytecode.NewJump(1, false),
		bytecode.NewLoadK(1, 2), // 3 main
		bytecode.NewI(bytecode.OpStoreLocal, 1, 0),
		bytecode.NewCall(1),
		bytecode.NewFrame(),
		bytecode.NewJump(2, false), // 7 -> 9
		bytecode.NewReturn(),       // 8
		bytecode.NewLoadK(1, 3),    // 9 g
		bytecode.NewI(bytecode.OpStoreLocal, 1, 0),
		bytecode.NewI(bytecode.OpLoadLocal, 0, 0),
		bytecode.NewReturn(),
	)

	it, err := interpreter.NewInterpreter(p)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	for it.PC() != 12 {
		if _, err := it.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if it.Locals().Base() != 1 || it.Locals().Size() != 3 {
		t.Errorf("expected callee region base 1 size 3, got base %d size %d", it.Locals().Base(), it.Locals().Size())
	}

	if err := it.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !it.Result().Identical(interpreter.NewInt(2)) {
		t.Errorf("expected result 2, got %s", it.Result())
	}
}

func TestStackOverflow(t *testing.T) {
	rec := &program.Prototype{Name: "rec", Entry: 3, Registers: 1}
	p := newProgram(
		[]program.Constant{program.Function(rec)},
		bytecode.NewCall(0),
		bytecode.NewFrame(),
		bytecode.NewJump(1, false),
		bytecode.NewCall(0), // 3
		bytecode.NewFrame(),
		bytecode.NewJump(2, true), // 5 -> 3
	)

	tests := []struct {
		opts        []interpreter.Option
		depth       int
		description string
	}{
		{[]interpreter.Option{interpreter.WithMaxFrameDepth(8)}, 8, "configured limit"},
		{nil, interpreter.DefaultMaxFrameDepth, "default limit"},
	}

	for _, test := range tests {
		it, _, err := run(t, p, test.opts...)
		f := mustFault(t, err, interpreter.ErrStackOverflow)
		if f.Op != bytecode.OpNewFrame {
			t.Errorf("%s: expected NEWFRAME fault, got %s", test.description, f.Op)
		}
		if it.Depth() != test.depth {
			t.Errorf("%s: expected depth %d, got %d", test.description, test.depth, it.Depth())
		}
	}
}

func TestCallProtocolFaults(t *testing.T) {
	fn := &program.Prototype{Name: "fn", Entry: 3, Registers: 1}
	consts := []program.Constant{program.Function(fn), program.Int(1)}

	tests := []struct {
		code        []bytecode.Instruction
		expected    error
		faultPC     int
		description string
	}{
		{[]bytecode.Instruction{bytecode.NewReturn(), bytecode.NewHalt(), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrFrameUnderflow, 0, "return without frame"},
		{[]bytecode.Instruction{bytecode.NewFrame(), bytecode.NewJump(2, false), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrProtocolViolation, 0, "newframe without call"},
		{[]bytecode.Instruction{bytecode.NewCall(0), bytecode.NewHalt(), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrProtocolViolation, 1, "call not followed by newframe"},
		{[]bytecode.Instruction{bytecode.NewCall(0), bytecode.NewFrame(), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrProtocolViolation, 1, "newframe not followed by jump"},
		{[]bytecode.Instruction{bytecode.NewCall(0), bytecode.NewFrame(), bytecode.NewJump(0, false), bytecode.NewHalt()},
			interpreter.ErrProtocolViolation, 2, "jump misses entry"},
		{[]bytecode.Instruction{bytecode.NewCall(0), bytecode.NewFrame(), bytecode.NewJump(9, false), bytecode.NewHalt()},
			interpreter.ErrPCOutOfRange, 2, "jump outside code"},
		{[]bytecode.Instruction{bytecode.NewCall(1), bytecode.NewHalt(), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrBadConstant, 0, "call on integer"},
		{[]bytecode.Instruction{bytecode.NewCall(7), bytecode.NewHalt(), bytecode.NewHalt(), bytecode.NewHalt()},
			interpreter.ErrBadConstant, 0, "call outside pool"},
	}

	for _, test := range tests {
		_, _, err := run(t, newProgram(consts, test.code...))
		if !errors.Is(err, test.expected) {
			t.Errorf("%s: expected %v, got %v", test.description, test.expected, err)
			continue
		}
		f, _ := interpreter.AsFault(err)
		if f.PC != test.faultPC {
			t.Errorf("%s: expected fault at pc %d, got %d", test.description, test.faultPC, f.PC)
		}
	}
}
