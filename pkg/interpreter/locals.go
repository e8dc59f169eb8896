package interpreter

// LocalStack is the contiguous local variable region shared by all frames.
// The current frame sees slots [base, len).
type LocalStack struct {
	slots []Value
	base  int
}

// Allocate grows the current region by n Nil slots.
func (l *LocalStack) Allocate(n int) {
	for i := 0; i < n; i++ {
		l.slots = append(l.slots, Nil)
	}
}

// Deallocate shrinks the current region by n slots.
func (l *LocalStack) Deallocate(n int) error {
	if n > l.Size() {
		return ErrLocalIndexOutOfRange
	}
	l.truncate(len(l.slots) - n)
	return nil
}

// Load reads the slot at base+offset.
func (l *LocalStack) Load(offset int) (Value, error) {
	if offset < 0 || offset >= l.Size() {
		return Nil, ErrLocalIndexOutOfRange
	}
	return l.slots[l.base+offset], nil
}

// Store writes the slot at base+offset.
func (l *LocalStack) Store(offset int, v Value) error {
	if offset < 0 || offset >= l.Size() {
		return ErrLocalIndexOutOfRange
	}
	l.slots[l.base+offset] = v
	return nil
}

// Size is the number of slots allocated in the current frame.
func (l *LocalStack) Size() int {
	return len(l.slots) - l.base
}

// Base returns the current local base.
func (l *LocalStack) Base() int {
	return l.base
}

// Len returns the total number of occupied slots across all frames.
func (l *LocalStack) Len() int {
	return len(l.slots)
}

// enter starts a new frame region at the current top.
func (l *LocalStack) enter(n int) {
	l.base = len(l.slots)
	l.Allocate(n)
}

// leave discards the current frame region and restores the caller's base.
func (l *LocalStack) leave(callerBase int) {
	l.truncate(l.base)
	l.base = callerBase
}

func (l *LocalStack) truncate(n int) {
	clear(l.slots[n:])
	l.slots = l.slots[:n]
}

func (l *LocalStack) reset() {
	l.truncate(0)
	l.base = 0
}
