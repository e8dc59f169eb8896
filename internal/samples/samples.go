// Package samples holds small hand-assembled programs for the CLI and tests.
package samples

import (
	"sort"

	"novavm/pkg/bytecode"
	"novavm/pkg/program"
)

var registry = map[string]func() *program.Program{
	"math":    Math,
	"loop":    Loop,
	"globals": Globals,
	"locals":  Locals,
	"call":    Call,
}

// Names lists the available samples in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get builds the named sample.
func Get(name string) (*program.Program, bool) {
	build, ok := registry[name]
	if !ok {
		return nil, false
	}
	return build(), true
}

// Math prints 25, 10, a string constant and 150.
func Math() *program.Program {
	p := program.New()
	greeting := p.AddConstant(program.String("I am Timothy"))

	p.Emit(bytecode.NewLoadFloat(0, 10)...)
	p.Emit(bytecode.NewLoadFloat(1, 15)...)
	p.Emit(
		bytecode.NewBinary(bytecode.OpAdd, 0, 0, 1),
		bytecode.NewPrint(0, true),
		bytecode.NewBinary(bytecode.OpMod, 0, 0, 1),
		bytecode.NewPrint(0, true),
		bytecode.NewLoadK(2, greeting),
		bytecode.NewPrint(2, true),
		bytecode.NewBinary(bytecode.OpMul, 0, 0, 1),
		bytecode.NewPrint(0, true),
		bytecode.NewHalt(),
	)
	return p
}

// Loop prints 1 through 9.
func Loop() *program.Program {
	p := program.New()
	p.Emit(bytecode.NewLoadFloat(0, 1)...)
	p.Emit(bytecode.NewLoadFloat(1, 10)...)
	p.Emit(bytecode.NewMove(2, 0))

	top := p.Emit(bytecode.NewCompareJump(bytecode.OpLessJump, 0, 1))
	exit := p.Emit(bytecode.NewJump(0, false)) // patched below
	p.Emit(
		bytecode.NewPrint(0, true),
		bytecode.NewBinary(bytecode.OpAdd, 0, 0, 2),
	)
	back := p.Emit(bytecode.NewJump(0, false))
	p.Code[back] = bytecode.NewJump(back-top, true)
	end := p.Emit(bytecode.NewHalt())
	p.Code[exit] = bytecode.NewJump(end-exit, false)
	return p
}

// Globals stores two numbers in named globals and reads them back swapped.
func Globals() *program.Program {
	p := program.New()
	first := p.AddConstant(program.String("number1"))
	second := p.AddConstant(program.String("number2"))

	p.Emit(
		bytecode.NewI(bytecode.OpDefineGlobalIndirect, 0, first),
		bytecode.NewI(bytecode.OpDefineGlobalIndirect, 0, second),
	)
	p.Emit(bytecode.NewLoadFloat(0, 1000)...)
	p.Emit(bytecode.NewLoadFloat(1, 88)...)
	p.Emit(
		bytecode.NewPrint(0, true),
		bytecode.NewPrint(1, true),
		bytecode.NewI(bytecode.OpStoreGlobalIndirect, 0, first),
		bytecode.NewI(bytecode.OpStoreGlobalIndirect, 1, second),
		bytecode.NewI(bytecode.OpLoadGlobalIndirect, 1, first),
		bytecode.NewI(bytecode.OpLoadGlobalIndirect, 0, second),
		bytecode.NewPrint(0, true),
		bytecode.NewPrint(1, true),
		bytecode.NewHalt(),
	)
	return p
}

// Locals round-trips two numbers through local slots, swapping them.
func Locals() *program.Program {
	p := program.New()
	p.Emit(bytecode.NewI(bytecode.OpAllocateLocal, 0, 2))
	p.Emit(bytecode.NewLoadFloat(0, 100)...)
	p.Emit(bytecode.NewLoadFloat(1, -60)...)
	p.Emit(
		bytecode.NewPrint(0, true),
		bytecode.NewPrint(1, true),
		bytecode.NewI(bytecode.OpStoreLocal, 0, 0),
		bytecode.NewI(bytecode.OpStoreLocal, 1, 1),
		bytecode.NewI(bytecode.OpLoadLocal, 1, 0),
		bytecode.NewI(bytecode.OpLoadLocal, 0, 1),
		bytecode.NewPrint(0, true),
		bytecode.NewPrint(1, true),
		bytecode.NewI(bytecode.OpDeallocateLocal, 0, 2),
		bytecode.NewHalt(),
	)
	return p
}

// Call enters main through the call protocol, squares 12 in a callee and
// asks a built-in for the result's type. The program ends on main's RETURN.
func Call() *program.Program {
	main := &program.Prototype{Name: "main", Registers: 2}
	square := &program.Prototype{Name: "square", Registers: 3, Locals: 1}

	p := program.New()
	mainIdx := p.AddConstant(program.Function(main))
	squareIdx := p.AddConstant(program.Function(square))
	twelve := p.AddConstant(program.Int(12))
	typeOf := p.AddConstant(program.Builtin("typeof"))

	// entry jumps are patched once every prototype has its entry
	type patch struct {
		pc    int
		proto *program.Prototype
	}
	var fixups []patch
	enter := func(fn int, proto *program.Prototype) {
		p.Emit(bytecode.NewCall(fn), bytecode.NewFrame())
		jump := p.Emit(bytecode.NewJump(0, false))
		fixups = append(fixups, patch{jump, proto})
	}

	enter(mainIdx, main)

	main.Entry = uint32(p.PC())
	p.Emit(bytecode.NewLoadK(1, twelve))
	enter(squareIdx, square)
	p.Emit(
		bytecode.NewPrint(0, true),
		bytecode.NewPrint(1, true),
		bytecode.NewMove(1, 0),
		bytecode.NewCall(typeOf),
		bytecode.NewPrint(0, true),
		bytecode.NewReturn(),
	)

	square.Entry = uint32(p.PC())
	p.Emit(
		bytecode.NewI(bytecode.OpStoreLocal, 1, 0),
		bytecode.NewI(bytecode.OpLoadLocal, 2, 0),
		bytecode.NewBinary(bytecode.OpMul, 0, 1, 2),
		bytecode.NewLoadNil(1),
		bytecode.NewReturn(),
	)

	for _, fix := range fixups {
		p.Code[fix.pc] = bytecode.NewJump(int(fix.proto.Entry)-fix.pc, false)
	}
	return p
}
