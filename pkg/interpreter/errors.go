package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"novavm/pkg/bytecode"
)

// Fault kinds. Every fault is fatal to the running program.
var (
	ErrInvalidOpcode         = errors.New("invalid opcode")
	ErrPCOutOfRange          = errors.New("program counter out of range")
	ErrArithmetic            = errors.New("arithmetic error")
	ErrDivisionByZero        = fmt.Errorf("%w: division by zero", ErrArithmetic)
	ErrTypeMismatch          = fmt.Errorf("%w: type mismatch", ErrArithmetic)
	ErrGlobalIndexOutOfRange = errors.New("global index out of range")
	ErrUndefinedGlobal       = errors.New("undefined global")
	ErrDuplicateGlobal       = errors.New("duplicate global")
	ErrLocalIndexOutOfRange  = errors.New("local index out of range")
	ErrFrameUnderflow        = errors.New("frame underflow")
	ErrStackOverflow         = errors.New("stack overflow")
	ErrBadConstant           = errors.New("bad constant reference")
	ErrProtocolViolation     = errors.New("instruction protocol violation")
	ErrBuiltinFailed         = errors.New("builtin failed")
)

// Host-level errors; these are not VM faults.
var (
	ErrNotImplemented   = errors.New("interpreter step function not linked")
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
	ErrNotLoaded        = errors.New("no program loaded")
)

// Fault is the diagnostic attached to a fatal VM error.
type Fault struct {
	Err      error // one of the fault kinds above
	Fetched  bool  // false when PC pointed outside the code
	Op       bytecode.Opcode
	PC       int
	Word     bytecode.Instruction
	Operands bytecode.Operands
	Values   map[string]Value // register values named by the operands
	Detail   string
}

func (f *Fault) Error() string {
	var sb strings.Builder
	if !f.Fetched {
		fmt.Fprintf(&sb, "%v at pc=%d", f.Err, f.PC)
		if f.Detail != "" {
			sb.WriteString(": ")
			sb.WriteString(f.Detail)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "%v at pc=%d (%s", f.Err, f.PC, f.Op)
	switch f.Operands.Format {
	case bytecode.FormatR:
		fmt.Fprintf(&sb, " dr=%d sr1=%d sr2=%d", f.Operands.DR, f.Operands.SR1, f.Operands.SR2)
	case bytecode.FormatI:
		fmt.Fprintf(&sb, " reg=%d imm=%d", f.Operands.DR, f.Operands.Imm)
	case bytecode.FormatJ:
		fmt.Fprintf(&sb, " sw=%t imm=%d", f.Operands.SW, f.Operands.Imm)
	}
	sb.WriteString(")")

	for _, name := range []string{"DR", "SR1", "SR2"} {
		if v, ok := f.Values[name]; ok {
			fmt.Fprintf(&sb, " %s=%s:%s", name, v.TypeName(), v)
		}
	}
	if f.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Detail)
	}
	return sb.String()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// AsFault extracts the fault diagnostic from err, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
