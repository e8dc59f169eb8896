package bytecode

import "fmt"

// Opcode is the 6-bit operation field of an instruction word.
type Opcode uint8

// List of VM operations. The numeric values are part of the wire format.
const (
	OpHalt                 Opcode = iota // HALT
	OpMove                               // MOVE DR, SR1
	OpLoadNil                            // LOADNIL DR
	OpLoadK                              // LOADK DR, #IMM
	OpLoadFloat                          // LOADFLOAT DR + raw float32 word
	OpAdd                                // ADD DR, SR1, SR2
	OpSub                                // SUB DR, SR1, SR2
	OpMul                                // MUL DR, SR1, SR2
	OpDiv                                // DIV DR, SR1, SR2
	OpMod                                // MOD DR, SR1, SR2
	OpPow                                // POW DR, SR1, SR2
	OpLessJump                           // LESSJUMP SR1, SR2 (next word is a JUMP)
	OpLessEqualJump                      // LESSEQUALJUMP SR1, SR2 (next word is a JUMP)
	OpJump                               // JUMP SW, IMM
	OpCall                               // CALL #IMM
	OpNewFrame                           // NEWFRAME (next word is a JUMP)
	OpReturn                             // RETURN
	OpDefineGlobalIndirect               // DEFINEGLOBALINDIRECT #IMM
	OpStoreGlobal                        // STOREGLOBAL SR, IMM
	OpLoadGlobal                         // LOADGLOBAL DR, IMM
	OpStoreGlobalIndirect                // STOREGLOBALINDIRECT SR, #IMM
	OpLoadGlobalIndirect                 // LOADGLOBALINDIRECT DR, #IMM
	OpAllocateLocal                      // ALLOCATELOCAL IMM
	OpDeallocateLocal                    // DEALLOCATELOCAL IMM
	OpStoreLocal                         // STORELOCAL SR, IMM
	OpLoadLocal                          // LOADLOCAL DR, IMM
	OpPrint                              // PRINT SR1 (DR != 0 appends a newline)

	opcodeCount
)

// Format selects how the 26 operand bits of a word are interpreted.
type Format uint8

const (
	FormatR Format = iota // DR(4) SR1(4) SR2(4)
	FormatI               // A(4) IMM(16)
	FormatJ               // SW(1) IMM(16)
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatJ:
		return "J"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// OpcodeInfo describes an opcode.
type OpcodeInfo struct {
	Name   string
	Format Format
	Words  int // words consumed by the instruction, including the opcode word
}

var opcodeTable = [opcodeCount]OpcodeInfo{
	OpHalt:                 {"HALT", FormatR, 1},
	OpMove:                 {"MOVE", FormatR, 1},
	OpLoadNil:              {"LOADNIL", FormatR, 1},
	OpLoadK:                {"LOADK", FormatI, 1},
	OpLoadFloat:            {"LOADFLOAT", FormatR, 2},
	OpAdd:                  {"ADD", FormatR, 1},
	OpSub:                  {"SUB", FormatR, 1},
	OpMul:                  {"MUL", FormatR, 1},
	OpDiv:                  {"DIV", FormatR, 1},
	OpMod:                  {"MOD", FormatR, 1},
	OpPow:                  {"POW", FormatR, 1},
	OpLessJump:             {"LESSJUMP", FormatR, 1},
	OpLessEqualJump:        {"LESSEQUALJUMP", FormatR, 1},
	OpJump:                 {"JUMP", FormatJ, 1},
	OpCall:                 {"CALL", FormatI, 1},
	OpNewFrame:             {"NEWFRAME", FormatR, 1},
	OpReturn:               {"RETURN", FormatR, 1},
	OpDefineGlobalIndirect: {"DEFINEGLOBALINDIRECT", FormatI, 1},
	OpStoreGlobal:          {"STOREGLOBAL", FormatI, 1},
	OpLoadGlobal:           {"LOADGLOBAL", FormatI, 1},
	OpStoreGlobalIndirect:  {"STOREGLOBALINDIRECT", FormatI, 1},
	OpLoadGlobalIndirect:   {"LOADGLOBALINDIRECT", FormatI, 1},
	OpAllocateLocal:        {"ALLOCATELOCAL", FormatI, 1},
	OpDeallocateLocal:      {"DEALLOCATELOCAL", FormatI, 1},
	OpStoreLocal:           {"STORELOCAL", FormatI, 1},
	OpLoadLocal:            {"LOADLOCAL", FormatI, 1},
	OpPrint:                {"PRINT", FormatR, 1},
}

// Valid reports whether op names a known instruction.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// Info returns the opcode description. Unknown opcodes report a synthetic name.
func (op Opcode) Info() OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("OP_%d", uint8(op)), Format: FormatR, Words: 1}
	}
	return opcodeTable[op]
}

func (op Opcode) String() string {
	return op.Info().Name
}

// Format returns the operand format of the opcode.
func (op Opcode) Format() Format {
	return op.Info().Format
}

// IsCompareJump reports whether op is one of the fused compare-and-branch opcodes.
func (op Opcode) IsCompareJump() bool {
	return op == OpLessJump || op == OpLessEqualJump
}

// OpcodeByName looks up an opcode by its mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	for op := Opcode(0); op < opcodeCount; op++ {
		if opcodeTable[op].Name == name {
			return op, true
		}
	}
	return 0, false
}
