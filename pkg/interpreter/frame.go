package interpreter

import (
	"novavm/pkg/bytecode"
	"novavm/pkg/program"
)

// DefaultMaxFrameDepth bounds the call frame stack when no limit is configured.
const DefaultMaxFrameDepth = 1024

// Registers is the register file, and also the shape of a saved register window.
type Registers [bytecode.NumRegisters]Value

// Frame represents a function call frame.
type Frame struct {
	ReturnPC  int                // PC in caller to continue after RETURN
	Saved     Registers          // register file at call time
	LocalBase int                // caller's local base
	Callee    *program.Prototype // function this frame runs
}

// frameStack is an arena of frames indexed by call depth. Slots above the
// current depth are kept for reuse, so pushing allocates only when the
// arena grows past its previous high-water mark.
type frameStack struct {
	frames   []Frame
	depth    int
	maxDepth int
}

func newFrameStack(maxDepth int) frameStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxFrameDepth
	}
	initial := maxDepth
	if initial > 64 {
		initial = 64
	}
	return frameStack{frames: make([]Frame, 0, initial), maxDepth: maxDepth}
}

// push claims the next frame slot, returning nil when the depth limit is reached.
func (s *frameStack) push() *Frame {
	if s.depth >= s.maxDepth {
		return nil
	}
	if s.depth == len(s.frames) {
		s.frames = append(s.frames, Frame{})
	}
	f := &s.frames[s.depth]
	s.depth++
	return f
}

// pop releases the top frame and returns a copy of it, or false when empty.
func (s *frameStack) pop() (Frame, bool) {
	if s.depth == 0 {
		return Frame{}, false
	}
	s.depth--
	f := s.frames[s.depth]
	s.frames[s.depth] = Frame{} // drop references held by the released slot
	return f, true
}

func (s *frameStack) active() []Frame {
	return s.frames[:s.depth]
}

func (s *frameStack) reset() {
	for i := 0; i < s.depth; i++ {
		s.frames[i] = Frame{}
	}
	s.depth = 0
}
