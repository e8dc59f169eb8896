package program

import (
	"fmt"
	"strings"

	"novavm/pkg/bytecode"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; Nova bytecode v%d.%d\n", VersionMajor, VersionMinor))
	sb.WriteString(fmt.Sprintf("; %d words, %d constants, %d globals\n\n", len(p.Code), len(p.Constants), len(p.GlobalNames)))

	if len(p.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range p.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %-8s %s\n", i, c.Kind, c))
		}
		sb.WriteString("\n")
	}

	if len(p.GlobalNames) > 0 {
		sb.WriteString("; Globals:\n")
		for i, name := range p.GlobalNames {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, name))
		}
		sb.WriteString("\n")
	}

	entries := make(map[int]string)
	for _, c := range p.Constants {
		if c.Kind == ConstFunction {
			entries[int(c.Proto.Entry)] = c.Proto.Name
		}
	}

	sb.WriteString("; Code:\n")
	for pc := 0; pc < len(p.Code); {
		if name, ok := entries[pc]; ok {
			sb.WriteString(fmt.Sprintf("%s:\n", name))
		}
		line, n := p.DisassembleAt(pc)
		sb.WriteString(fmt.Sprintf("%04d  %s\n", pc, line))
		pc += n
	}

	return sb.String()
}

// DisassembleAt renders the instruction at pc and returns the number of words it occupies.
func (p *Program) DisassembleAt(pc int) (string, int) {
	if pc < 0 || pc >= len(p.Code) {
		return "<end of code>", 1
	}

	in := p.Code[pc]
	op := in.Opcode()

	switch op {
	case bytecode.OpLoadFloat:
		if pc+1 >= len(p.Code) {
			return in.String() + " <missing immediate>", 1
		}
		return fmt.Sprintf("%s, %g", in, p.Code[pc+1].Float32()), 2

	case bytecode.OpJump:
		return fmt.Sprintf("%-24s ; -> %04d", in, bytecode.JumpTarget(pc, in)), 1

	case bytecode.OpLoadK, bytecode.OpCall, bytecode.OpDefineGlobalIndirect,
		bytecode.OpLoadGlobalIndirect, bytecode.OpStoreGlobalIndirect:
		idx := in.Imm()
		if idx < len(p.Constants) {
			return fmt.Sprintf("%-24s ; %s", in, p.Constants[idx]), 1
		}
		return in.String(), 1

	case bytecode.OpLoadGlobal, bytecode.OpStoreGlobal:
		idx := in.Imm()
		if idx < len(p.GlobalNames) {
			return fmt.Sprintf("%-24s ; %s", in, p.GlobalNames[idx]), 1
		}
		return in.String(), 1
	}

	return in.String(), 1
}
