package bytecode

import (
	"fmt"
	"math"
)

// Instruction is a single 32-bit instruction word.
//
// Layout (bit 0 is the least significant bit):
//
//	opcode  bits 0-5
//	DR / A  bits 6-9    (R and I formats)
//	SW      bit  6      (J format)
//	SR1     bits 10-13  (R format)
//	SR2     bits 14-17  (R format)
//	IMM     bits 10-25  (I and J formats)
type Instruction uint32

const (
	opcodeMask = 0x3F
	regMask    = 0xF
	immMask    = 0xFFFF

	drShift  = 6
	swShift  = 6
	sr1Shift = 10
	sr2Shift = 14
	immShift = 10

	// NumRegisters is the size of the register file addressed by 4-bit fields.
	NumRegisters = 16
	// MaxImmediate is the largest value an IMM field can hold.
	MaxImmediate = immMask
)

// Opcode returns the opcode field.
func (in Instruction) Opcode() Opcode {
	return Opcode(in & opcodeMask)
}

// DR returns the destination register field (also the register of I-format words).
func (in Instruction) DR() int {
	return int(in>>drShift) & regMask
}

// A returns the register operand of an I-format word.
func (in Instruction) A() int {
	return in.DR()
}

// SR1 returns the first source register field.
func (in Instruction) SR1() int {
	return int(in>>sr1Shift) & regMask
}

// SR2 returns the second source register field.
func (in Instruction) SR2() int {
	return int(in>>sr2Shift) & regMask
}

// Imm returns the 16-bit immediate field.
func (in Instruction) Imm() int {
	return int(in>>immShift) & immMask
}

// SW returns the jump direction bit: true means backwards.
func (in Instruction) SW() bool {
	return (in>>swShift)&1 == 1
}

// Float32 reinterprets a raw word as an IEEE-754 binary32 value.
func (in Instruction) Float32() float32 {
	return math.Float32frombits(uint32(in))
}

// Operands is the decoded operand bundle of a word, interpreted per its format.
type Operands struct {
	Format Format
	DR     int
	SR1    int
	SR2    int
	Imm    int
	SW     bool
}

// Decode splits a word into opcode and operands according to the opcode's format.
func Decode(in Instruction) (Opcode, Operands) {
	op := in.Opcode()
	ops := Operands{Format: op.Format()}
	switch ops.Format {
	case FormatR:
		ops.DR, ops.SR1, ops.SR2 = in.DR(), in.SR1(), in.SR2()
	case FormatI:
		ops.DR, ops.Imm = in.A(), in.Imm()
	case FormatJ:
		ops.SW, ops.Imm = in.SW(), in.Imm()
	}
	return op, ops
}

// Encoders

// NewR builds an R-format word.
func NewR(op Opcode, dr, sr1, sr2 int) Instruction {
	return Instruction(op)&opcodeMask |
		Instruction(dr&regMask)<<drShift |
		Instruction(sr1&regMask)<<sr1Shift |
		Instruction(sr2&regMask)<<sr2Shift
}

// NewI builds an I-format word.
func NewI(op Opcode, reg, imm int) Instruction {
	return Instruction(op)&opcodeMask |
		Instruction(reg&regMask)<<drShift |
		Instruction(imm&immMask)<<immShift
}

// NewJump builds a JUMP word. When backward is set the jump subtracts offset.
func NewJump(offset int, backward bool) Instruction {
	in := Instruction(OpJump) | Instruction(offset&immMask)<<immShift
	if backward {
		in |= 1 << swShift
	}
	return in
}

// NewBinary builds an arithmetic instruction DR := SR1 op SR2.
func NewBinary(op Opcode, dr, sr1, sr2 int) Instruction {
	return NewR(op, dr, sr1, sr2)
}

// NewMove builds MOVE DR, SR1.
func NewMove(dr, sr1 int) Instruction {
	return NewR(OpMove, dr, sr1, 0)
}

// NewLoadNil builds LOADNIL DR.
func NewLoadNil(dr int) Instruction {
	return NewR(OpLoadNil, dr, 0, 0)
}

// NewLoadK builds LOADK DR, #index.
func NewLoadK(dr, index int) Instruction {
	return NewI(OpLoadK, dr, index)
}

// NewLoadFloat builds the two words of LOADFLOAT DR, f.
func NewLoadFloat(dr int, f float32) []Instruction {
	return []Instruction{NewR(OpLoadFloat, dr, 0, 0), Instruction(math.Float32bits(f))}
}

// NewCompareJump builds LESSJUMP / LESSEQUALJUMP SR1, SR2.
func NewCompareJump(op Opcode, sr1, sr2 int) Instruction {
	return NewR(op, 0, sr1, sr2)
}

// NewCall builds CALL #index.
func NewCall(index int) Instruction {
	return NewI(OpCall, 0, index)
}

// NewFrame builds NEWFRAME.
func NewFrame() Instruction {
	return NewR(OpNewFrame, 0, 0, 0)
}

// NewReturn builds RETURN.
func NewReturn() Instruction {
	return NewR(OpReturn, 0, 0, 0)
}

// NewPrint builds PRINT SR1; newline selects a trailing line break.
func NewPrint(sr1 int, newline bool) Instruction {
	dr := 0
	if newline {
		dr = 1
	}
	return NewR(OpPrint, dr, sr1, 0)
}

// NewHalt builds HALT.
func NewHalt() Instruction {
	return NewR(OpHalt, 0, 0, 0)
}

// String renders the word in assembly-like form.
func (in Instruction) String() string {
	op, o := Decode(in)
	switch op {
	case OpHalt, OpNewFrame, OpReturn:
		return op.String()
	case OpMove:
		return fmt.Sprintf("%s R%d, R%d", op, o.DR, o.SR1)
	case OpLoadNil, OpLoadFloat:
		return fmt.Sprintf("%s R%d", op, o.DR)
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
		return fmt.Sprintf("%s R%d, R%d, R%d", op, o.DR, o.SR1, o.SR2)
	case OpLessJump, OpLessEqualJump:
		return fmt.Sprintf("%s R%d, R%d", op, o.SR1, o.SR2)
	case OpJump:
		sign := "+"
		if o.SW {
			sign = "-"
		}
		return fmt.Sprintf("%s %s%d", op, sign, o.Imm)
	case OpCall, OpDefineGlobalIndirect:
		return fmt.Sprintf("%s #%d", op, o.Imm)
	case OpAllocateLocal, OpDeallocateLocal:
		return fmt.Sprintf("%s %d", op, o.Imm)
	case OpLoadK, OpLoadGlobalIndirect, OpStoreGlobalIndirect:
		return fmt.Sprintf("%s R%d, #%d", op, o.DR, o.Imm)
	case OpLoadGlobal, OpStoreGlobal, OpLoadLocal, OpStoreLocal:
		return fmt.Sprintf("%s R%d, %d", op, o.DR, o.Imm)
	case OpPrint:
		if o.DR != 0 {
			return fmt.Sprintf("%s R%d, nl", op, o.SR1)
		}
		return fmt.Sprintf("%s R%d", op, o.SR1)
	default:
		return fmt.Sprintf("%s 0x%08X", op, uint32(in))
	}
}

// JumpTarget computes the destination of a JUMP located at pc.
func JumpTarget(pc int, jump Instruction) int {
	if jump.SW() {
		return pc - jump.Imm()
	}
	return pc + jump.Imm()
}
