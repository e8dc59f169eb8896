package program

import (
	"fmt"

	"novavm/pkg/bytecode"
)

// MaxConstants is the number of constant pool slots addressable by a 16-bit immediate.
const MaxConstants = bytecode.MaxImmediate + 1

type ConstantKind uint8

const (
	ConstInt      ConstantKind = 1
	ConstFloat    ConstantKind = 2
	ConstString   ConstantKind = 3
	ConstFunction ConstantKind = 4
	ConstBuiltin  ConstantKind = 5
)

func (k ConstantKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstFloat:
		return "float"
	case ConstString:
		return "string"
	case ConstFunction:
		return "function"
	case ConstBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("ConstantKind(%d)", k)
	}
}

// Prototype describes a bytecode function.
type Prototype struct {
	Name      string // function name, for diagnostics
	Entry     uint32 // PC of the first instruction
	Registers uint8  // declared register-window size (1-16)
	Locals    uint16 // local slots reserved on frame entry
}

// Constant is a single constant pool literal.
type Constant struct {
	Kind  ConstantKind
	Int   int64
	Float float64
	Str   string     // string literal, or built-in name
	Proto *Prototype // set for ConstFunction
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstFloat:
		return fmt.Sprintf("%g", c.Float)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstFunction:
		return fmt.Sprintf("<function %s entry=%d regs=%d locals=%d>",
			c.Proto.Name, c.Proto.Entry, c.Proto.Registers, c.Proto.Locals)
	case ConstBuiltin:
		return fmt.Sprintf("<builtin %s>", c.Str)
	default:
		return "<invalid>"
	}
}

func Int(i int64) Constant           { return Constant{Kind: ConstInt, Int: i} }
func Float(f float64) Constant       { return Constant{Kind: ConstFloat, Float: f} }
func String(s string) Constant       { return Constant{Kind: ConstString, Str: s} }
func Builtin(name string) Constant   { return Constant{Kind: ConstBuiltin, Str: name} }
func Function(p *Prototype) Constant { return Constant{Kind: ConstFunction, Proto: p} }

// Program is a loaded program image.
type Program struct {
	Code        []bytecode.Instruction
	Constants   []Constant
	GlobalNames []string // optional precomputed global table, defined before execution starts
}

// New creates an empty program.
func New() *Program {
	return &Program{}
}

// AddConstant appends a constant to the pool and returns its index.
func (p *Program) AddConstant(c Constant) int {
	p.Constants = append(p.Constants, c)
	return len(p.Constants) - 1
}

// Emit appends instruction words and returns the PC of the first one.
func (p *Program) Emit(words ...bytecode.Instruction) int {
	pc := len(p.Code)
	p.Code = append(p.Code, words...)
	return pc
}

// PC returns the address the next emitted word will occupy.
func (p *Program) PC() int {
	return len(p.Code)
}

// Validate checks the structural limits of the image (not the semantics of the code).
func (p *Program) Validate() error {
	if len(p.Constants) > MaxConstants {
		return fmt.Errorf("constant pool has %d entries, limit is %d", len(p.Constants), MaxConstants)
	}
	for idx, c := range p.Constants {
		switch c.Kind {
		case ConstInt, ConstFloat, ConstString:
		case ConstBuiltin:
			if c.Str == "" {
				return fmt.Errorf("constant %d: builtin without a name", idx)
			}
		case ConstFunction:
			if c.Proto == nil {
				return fmt.Errorf("constant %d: function without a prototype", idx)
			}
			if c.Proto.Registers == 0 || int(c.Proto.Registers) > bytecode.NumRegisters {
				return fmt.Errorf("constant %d: register window %d outside 1..%d", idx, c.Proto.Registers, bytecode.NumRegisters)
			}
			if int(c.Proto.Entry) >= len(p.Code) {
				return fmt.Errorf("constant %d: entry %d outside code (%d words)", idx, c.Proto.Entry, len(p.Code))
			}
		default:
			return fmt.Errorf("constant %d: unknown kind %d", idx, c.Kind)
		}
	}
	return nil
}
