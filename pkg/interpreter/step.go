package interpreter

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"novavm/pkg/bytecode"
	"novavm/pkg/program"
)

// Exec runs a program with the default step function and stdout as writer
func Exec(p *program.Program, opts ...Option) error {
	it, err := NewInterpreter(p, append([]Option{WithWriter(os.Stdout)}, opts...)...)
	if err != nil {
		return err
	}
	it.SetExecStep(coreStep)
	return it.Run()
}

// coreStep is the main single-step execution function
// it returns (halted, error).
func coreStep(i *Interpreter) (bool, error) {
	// fetch current PC and instruction
	pc := i.pc
	if pc < 0 || pc >= len(i.code) {
		return true, i.fault(ErrPCOutOfRange, pc, fmt.Sprintf("fetch outside code (%d words)", len(i.code)))
	}

	in := i.code[pc]
	op := in.Opcode()

	if i.trace {
		log.Debug("exec", "pc", pc, "depth", i.frames.depth, "instr", in)
	}

	// a pending prototype CALL admits nothing but NEWFRAME
	if i.pending != nil && op != bytecode.OpNewFrame {
		return true, i.fault(ErrProtocolViolation, pc, fmt.Sprintf("CALL %s not followed by NEWFRAME", i.pending.Name))
	}

	switch op {
	case bytecode.OpHalt:
		return true, nil

	case bytecode.OpMove:
		i.regs[in.DR()] = i.regs[in.SR1()]

	case bytecode.OpLoadNil:
		i.regs[in.DR()] = Nil

	case bytecode.OpLoadK:
		v, ok := i.Constant(in.Imm())
		if !ok {
			return true, i.fault(ErrBadConstant, pc, fmt.Sprintf("constant %d outside pool (%d entries)", in.Imm(), len(i.pool)))
		}
		i.regs[in.DR()] = v

	case bytecode.OpLoadFloat:
		if pc+1 >= len(i.code) {
			return true, i.fault(ErrPCOutOfRange, pc, "LOADFLOAT immediate word missing")
		}
		i.regs[in.DR()] = NewFloat(float64(i.code[pc+1].Float32()))
		i.pc = pc + 2
		return false, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
		res, err := evalBinary(op, i.regs[in.SR1()], i.regs[in.SR2()])
		if err != nil {
			return true, i.fault(err, pc, "")
		}
		i.regs[in.DR()] = res

	case bytecode.OpLessJump, bytecode.OpLessEqualJump:
		return i.execCompareJump(pc, in)

	case bytecode.OpJump:
		target := bytecode.JumpTarget(pc, in)
		if err := i.checkTarget(pc, target); err != nil {
			return true, err
		}
		i.pc = target
		return false, nil

	case bytecode.OpCall:
		return i.execCall(pc, in)

	case bytecode.OpNewFrame:
		return i.execNewFrame(pc)

	case bytecode.OpReturn:
		return i.execReturn(pc)

	case bytecode.OpDefineGlobalIndirect:
		name, err := i.constName(pc, in.Imm())
		if err != nil {
			return true, err
		}
		idx, err := i.globals.Define(name)
		if err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("global %q", name))
		}
		i.nameCache[in.Imm()] = idx

	case bytecode.OpStoreGlobal:
		if err := i.globals.Store(in.Imm(), i.regs[in.A()]); err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("%d globals defined", i.globals.Len()))
		}

	case bytecode.OpLoadGlobal:
		v, err := i.globals.Load(in.Imm())
		if err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("%d globals defined", i.globals.Len()))
		}
		i.regs[in.A()] = v

	case bytecode.OpStoreGlobalIndirect:
		idx, err := i.resolveGlobal(pc, in.Imm())
		if err != nil {
			return true, err
		}
		i.globals.slots[idx] = i.regs[in.A()]

	case bytecode.OpLoadGlobalIndirect:
		idx, err := i.resolveGlobal(pc, in.Imm())
		if err != nil {
			return true, err
		}
		i.regs[in.A()] = i.globals.slots[idx]

	case bytecode.OpAllocateLocal:
		i.locals.Allocate(in.Imm())

	case bytecode.OpDeallocateLocal:
		if err := i.locals.Deallocate(in.Imm()); err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("%d slots allocated", i.locals.Size()))
		}

	case bytecode.OpStoreLocal:
		if err := i.locals.Store(in.Imm(), i.regs[in.A()]); err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("%d slots allocated", i.locals.Size()))
		}

	case bytecode.OpLoadLocal:
		v, err := i.locals.Load(in.Imm())
		if err != nil {
			return true, i.fault(err, pc, fmt.Sprintf("%d slots allocated", i.locals.Size()))
		}
		i.regs[in.A()] = v

	case bytecode.OpPrint:
		text := i.regs[in.SR1()].String()
		if in.DR() != 0 {
			text += "\n"
		}
		if _, err := fmt.Fprint(i.out, text); err != nil {
			return true, fmt.Errorf("print at pc=%d: %w", pc, err)
		}

	default:
		return true, i.fault(ErrInvalidOpcode, pc, fmt.Sprintf("opcode field %d", op))
	}

	i.pc = pc + 1
	return false, nil
}

// execCompareJump runs LESSJUMP/LESSEQUALJUMP together with the JUMP that must follow.
func (i *Interpreter) execCompareJump(pc int, in bytecode.Instruction) (bool, error) {
	jpc := pc + 1
	if jpc >= len(i.code) || i.code[jpc].Opcode() != bytecode.OpJump {
		return true, i.fault(ErrProtocolViolation, pc, "compare not followed by JUMP")
	}

	taken, err := compare(i.regs[in.SR1()], i.regs[in.SR2()], in.Opcode() == bytecode.OpLessEqualJump)
	if err != nil {
		return true, i.fault(err, pc, "")
	}

	if taken {
		// condition holds: skip the JUMP
		i.pc = jpc + 1
		return false, nil
	}

	target := bytecode.JumpTarget(jpc, i.code[jpc])
	if err := i.checkTarget(jpc, target); err != nil {
		return true, err
	}
	i.pc = target
	return false, nil
}

func (i *Interpreter) execCall(pc int, in bytecode.Instruction) (bool, error) {
	callee, ok := i.Constant(in.Imm())
	if !ok {
		return true, i.fault(ErrBadConstant, pc, fmt.Sprintf("constant %d outside pool (%d entries)", in.Imm(), len(i.pool)))
	}

	switch {
	case callee.Kind == KindFunction && callee.Native != nil:
		b := callee.Native
		args := make([]Value, b.Arity)
		copy(args, i.regs[1:1+b.Arity])
		res, err := b.Fn(i, args)
		if err != nil {
			return true, i.fault(ErrBuiltinFailed, pc, fmt.Sprintf("%s: %v", b.Name, err))
		}
		i.regs[0] = res

	case callee.Kind == KindFunction && callee.Proto != nil:
		i.pending = callee.Proto

	default:
		return true, i.fault(ErrBadConstant, pc, fmt.Sprintf("constant %d is %s, not callable", in.Imm(), callee.TypeName()))
	}

	i.pc = pc + 1
	return false, nil
}

// execNewFrame enters the pending callee through the JUMP that follows NEWFRAME.
func (i *Interpreter) execNewFrame(pc int) (bool, error) {
	proto := i.pending
	if proto == nil {
		return true, i.fault(ErrProtocolViolation, pc, "NEWFRAME without a pending CALL")
	}

	jpc := pc + 1
	if jpc >= len(i.code) || i.code[jpc].Opcode() != bytecode.OpJump {
		return true, i.fault(ErrProtocolViolation, pc, "NEWFRAME not followed by JUMP")
	}
	target := bytecode.JumpTarget(jpc, i.code[jpc])
	if err := i.checkTarget(jpc, target); err != nil {
		return true, err
	}
	if target != int(proto.Entry) {
		return true, i.fault(ErrProtocolViolation, jpc, fmt.Sprintf("jump to %04d, %s enters at %04d", target, proto.Name, proto.Entry))
	}

	f := i.frames.push()
	if f == nil {
		return true, i.fault(ErrStackOverflow, pc, fmt.Sprintf("calling %s at depth %d", proto.Name, i.frames.depth))
	}
	f.ReturnPC = jpc + 1
	f.Saved = i.regs
	f.LocalBase = i.locals.base
	f.Callee = proto
	if i.frames.depth == i.frames.maxDepth*3/4 {
		log.Debug("call depth nearing limit", "depth", i.frames.depth, "max", i.frames.maxDepth, "callee", proto.Name)
	}

	i.locals.enter(int(proto.Locals))
	i.pending = nil
	i.pc = target
	return false, nil
}

func (i *Interpreter) execReturn(pc int) (bool, error) {
	f, ok := i.frames.pop()
	if !ok {
		return true, i.fault(ErrFrameUnderflow, pc, "no active frame")
	}

	ret := i.regs[0]
	i.regs = f.Saved
	i.regs[0] = ret
	i.locals.leave(f.LocalBase)
	i.pc = f.ReturnPC

	if i.frames.depth == 0 {
		i.result = ret
		return true, nil
	}
	return false, nil
}

func (i *Interpreter) checkTarget(jpc, target int) error {
	if target < 0 || target >= len(i.code) {
		return i.fault(ErrPCOutOfRange, jpc, fmt.Sprintf("jump target %d outside code (%d words)", target, len(i.code)))
	}
	return nil
}

// constName returns Pool[idx] as a global name.
func (i *Interpreter) constName(pc, idx int) (string, error) {
	v, ok := i.Constant(idx)
	if !ok {
		return "", i.fault(ErrBadConstant, pc, fmt.Sprintf("constant %d outside pool (%d entries)", idx, len(i.pool)))
	}
	if v.Kind != KindString {
		return "", i.fault(ErrBadConstant, pc, fmt.Sprintf("constant %d is %s, not a name", idx, v.TypeName()))
	}
	return v.Text(), nil
}

// resolveGlobal maps the name in Pool[idx] to a global slot, memoizing the result.
func (i *Interpreter) resolveGlobal(pc, idx int) (int, error) {
	if idx < len(i.nameCache) && i.nameCache[idx] >= 0 {
		return i.nameCache[idx], nil
	}

	name, err := i.constName(pc, idx)
	if err != nil {
		return 0, err
	}
	g, ok := i.globals.Lookup(name)
	if !ok {
		return 0, i.fault(ErrUndefinedGlobal, pc, fmt.Sprintf("global %q", name))
	}
	i.nameCache[idx] = g
	return g, nil
}

// fault builds the diagnostic for the instruction at pc.
func (i *Interpreter) fault(kind error, pc int, detail string) *Fault {
	f := &Fault{Err: kind, PC: pc, Detail: detail}
	if pc < 0 || pc >= len(i.code) {
		return f
	}

	f.Fetched = true
	f.Word = i.code[pc]
	f.Op, f.Operands = bytecode.Decode(f.Word)
	f.Values = make(map[string]Value)

	switch {
	case f.Op.IsCompareJump(), f.Op >= bytecode.OpAdd && f.Op <= bytecode.OpPow:
		f.Values["SR1"] = i.regs[f.Operands.SR1]
		f.Values["SR2"] = i.regs[f.Operands.SR2]
	case f.Op == bytecode.OpMove, f.Op == bytecode.OpPrint:
		f.Values["SR1"] = i.regs[f.Operands.SR1]
	case f.Op.Valid() && f.Operands.Format == bytecode.FormatI:
		f.Values["DR"] = i.regs[f.Operands.DR]
	}
	return f
}
