package interpreter

import (
	"fmt"
	"io"
	"os"

	"novavm/pkg/bytecode"
	"novavm/pkg/program"
)

// Interpreter executes a loaded program image. It is single-threaded: all
// state is owned by the fetch-decode-dispatch loop.
type Interpreter struct {
	prog      *program.Program
	code      []bytecode.Instruction
	pool      []Value // constant pool resolved to values
	nameCache []int   // constant index -> global index, -1 when unresolved

	pc      int
	regs    Registers
	globals GlobalStore
	locals  LocalStack
	frames  frameStack
	pending *program.Prototype // callee resolved by CALL, awaiting NEWFRAME

	result Value // R0 at the terminal RETURN
	halted bool
	err    error // fault that stopped execution

	builtins  map[string]*Builtin
	collector Collector
	out       io.Writer

	// Exec hook, coreStep unless replaced through SetExecStep
	execStep func(*Interpreter) (halted bool, err error)

	trace         bool
	maxFrameDepth int
	maxSteps      int // maximum steps (0 = unlimited)
	steps         int // steps executed
}

type Option func(*Interpreter)

// WithWriter sets the output writer for PRINT
func WithWriter(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithMaxSteps sets a maximum number of interpreter steps before returning ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithMaxFrameDepth bounds the call frame stack; deeper calls fault with ErrStackOverflow
func WithMaxFrameDepth(n int) Option {
	return func(i *Interpreter) { i.maxFrameDepth = n }
}

// WithCollector installs a garbage collector collaborator
func WithCollector(c Collector) Option {
	return func(i *Interpreter) { i.collector = c }
}

// WithBuiltins registers additional built-ins, replacing defaults with the same name
func WithBuiltins(bs ...*Builtin) Option {
	return func(i *Interpreter) {
		for _, b := range bs {
			if b != nil {
				i.builtins[b.Name] = b
			}
		}
	}
}

// WithTrace logs every dispatched instruction at debug level
func WithTrace(enabled bool) Option {
	return func(i *Interpreter) { i.trace = enabled }
}

// NewInterpreter creates a new Interpreter instance and loads p (which may be nil)
func NewInterpreter(p *program.Program, opts ...Option) (*Interpreter, error) {
	it := &Interpreter{
		globals:       newGlobalStore(),
		builtins:      make(map[string]*Builtin),
		maxFrameDepth: DefaultMaxFrameDepth,
	}
	for _, b := range DefaultBuiltins() {
		it.builtins[b.Name] = b
	}

	for _, o := range opts {
		o(it)
	}

	for _, b := range it.builtins {
		if err := validBuiltin(b); err != nil {
			return nil, err
		}
	}

	if it.out == nil {
		it.out = os.Stdout
	}
	if it.collector == nil {
		it.collector = noCollector{}
	}
	if it.execStep == nil {
		it.execStep = coreStep
	}
	it.frames = newFrameStack(it.maxFrameDepth)

	if p != nil {
		if err := it.Load(p); err != nil {
			return nil, err
		}
	}

	return it, nil
}

// Load replaces the current program with p, resolving its constant pool and resetting state
func (i *Interpreter) Load(p *program.Program) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}

	pool := make([]Value, len(p.Constants))
	for idx, c := range p.Constants {
		switch c.Kind {
		case program.ConstInt:
			pool[idx] = NewInt(c.Int)
		case program.ConstFloat:
			pool[idx] = NewFloat(c.Float)
		case program.ConstString:
			pool[idx] = NewString(&StringObject{Text: c.Str})
		case program.ConstFunction:
			pool[idx] = NewFunction(c.Proto)
		case program.ConstBuiltin:
			b, ok := i.builtins[c.Str]
			if !ok {
				return fmt.Errorf("constant %d: unknown builtin %q", idx, c.Str)
			}
			pool[idx] = NewBuiltin(b)
		}
	}

	seen := make(map[string]bool, len(p.GlobalNames))
	for _, name := range p.GlobalNames {
		if seen[name] {
			return fmt.Errorf("global table: %w %q", ErrDuplicateGlobal, name)
		}
		seen[name] = true
	}

	i.prog = p
	i.code = p.Code
	i.pool = pool
	i.nameCache = make([]int, len(pool))
	i.Reset()
	return nil
}

// Reset clears runtime state (registers, globals, locals, call stack, PC, counters)
func (i *Interpreter) Reset() {
	i.pc = 0
	i.regs = Registers{}
	i.locals.reset()
	i.frames.reset()
	i.pending = nil
	i.result = Nil
	i.halted = false
	i.err = nil
	i.steps = 0

	i.globals.reset()
	if i.prog != nil {
		for _, name := range i.prog.GlobalNames {
			i.globals.Define(name)
		}
	}
	for idx := range i.nameCache {
		i.nameCache[idx] = -1
	}
}

// Program returns the loaded program
func (i *Interpreter) Program() *program.Program {
	return i.prog
}

// Output returns the output writer used by PRINT
func (i *Interpreter) Output() io.Writer {
	return i.out
}

// SetExecStep installs the core step function
func (i *Interpreter) SetExecStep(fn func(*Interpreter) (bool, error)) {
	i.execStep = fn
}

// Step executes a single instruction, returning (halted, error)
func (i *Interpreter) Step() (bool, error) {
	if i.execStep == nil {
		return false, ErrNotImplemented
	}
	if i.prog == nil {
		return false, ErrNotLoaded
	}
	if i.err != nil {
		return true, i.err
	}
	if i.halted {
		return true, nil
	}

	if i.maxSteps > 0 && i.steps >= i.maxSteps {
		return false, ErrMaxStepsExceeded
	}

	halted, err := i.execStep(i)
	i.steps++

	if err != nil {
		i.err = err
		i.halted = true
		return true, err
	}
	i.halted = halted

	return halted, nil
}

// Run executes until halt or error
func (i *Interpreter) Run() error {
	for {
		halted, err := i.Step()
		if err != nil {
			return err
		}

		if halted {
			return nil
		}
	}
}

// PC returns the current program counter
func (i *Interpreter) PC() int {
	return i.pc
}

// SetPC moves the program counter
func (i *Interpreter) SetPC(pc int) {
	i.pc = pc
}

// Register returns the value held in register r
func (i *Interpreter) Register(r int) Value {
	return i.regs[r]
}

// SetRegister writes register r
func (i *Interpreter) SetRegister(r int, v Value) {
	i.regs[r] = v
}

// Registers returns a copy of the register file
func (i *Interpreter) Registers() Registers {
	return i.regs
}

// Globals exposes the global store
func (i *Interpreter) Globals() *GlobalStore {
	return &i.globals
}

// Locals exposes the local stack
func (i *Interpreter) Locals() *LocalStack {
	return &i.locals
}

// Depth returns the number of active call frames
func (i *Interpreter) Depth() int {
	return i.frames.depth
}

// Frames returns a copy of the active call frames, outermost first
func (i *Interpreter) Frames() []Frame {
	return append([]Frame(nil), i.frames.active()...)
}

// Result returns R0 as it was at the terminal RETURN
func (i *Interpreter) Result() Value {
	return i.result
}

// Steps returns the number of executed instructions
func (i *Interpreter) Steps() int {
	return i.steps
}

// Halted reports whether execution has stopped
func (i *Interpreter) Halted() bool {
	return i.halted
}

// Err returns the fault that stopped execution, if any
func (i *Interpreter) Err() error {
	return i.err
}

// Constant returns constant pool entry idx as a value
func (i *Interpreter) Constant(idx int) (Value, bool) {
	if idx < 0 || idx >= len(i.pool) {
		return Nil, false
	}
	return i.pool[idx], true
}
