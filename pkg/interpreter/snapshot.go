package interpreter

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// canonical mode keeps dumps of identical states byte-identical
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("interpreter: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SlotValue is the serialized form of a Value.
type SlotValue struct {
	Kind  string  `cbor:"kind"`
	Int   int64   `cbor:"int,omitempty"`
	Float float64 `cbor:"float,omitempty"`
	Text  string  `cbor:"text,omitempty"`
}

// GlobalSlot is one named global in a snapshot.
type GlobalSlot struct {
	Name  string    `cbor:"name"`
	Value SlotValue `cbor:"value"`
}

// FrameSnapshot is the serialized form of a call frame.
type FrameSnapshot struct {
	Callee    string      `cbor:"callee"`
	ReturnPC  int         `cbor:"return_pc"`
	LocalBase int         `cbor:"local_base"`
	Saved     []SlotValue `cbor:"saved"`
}

// Snapshot captures interpreter state for post-mortem inspection.
type Snapshot struct {
	PC        int             `cbor:"pc"`
	Steps     int             `cbor:"steps"`
	Registers []SlotValue     `cbor:"registers"`
	Globals   []GlobalSlot    `cbor:"globals"`
	Locals    []SlotValue     `cbor:"locals"`
	LocalBase int             `cbor:"local_base"`
	Frames    []FrameSnapshot `cbor:"frames"`
	Fault     string          `cbor:"fault,omitempty"`
}

func slotValue(v Value) SlotValue {
	s := SlotValue{Kind: v.TypeName()}
	switch v.Kind {
	case KindInt:
		s.Int = v.I64
	case KindFloat:
		s.Float = v.F64
	case KindString, KindFunction:
		s.Text = v.String()
	}
	return s
}

func slotValues(vs []Value) []SlotValue {
	out := make([]SlotValue, len(vs))
	for idx, v := range vs {
		out[idx] = slotValue(v)
	}
	return out
}

// Snapshot captures the current state, including the stopping fault if any.
func (i *Interpreter) Snapshot() *Snapshot {
	s := &Snapshot{
		PC:        i.pc,
		Steps:     i.steps,
		Registers: slotValues(i.regs[:]),
		Locals:    slotValues(i.locals.slots),
		LocalBase: i.locals.base,
	}
	for idx, v := range i.globals.slots {
		s.Globals = append(s.Globals, GlobalSlot{Name: i.globals.Name(idx), Value: slotValue(v)})
	}
	for _, f := range i.frames.active() {
		fs := FrameSnapshot{ReturnPC: f.ReturnPC, LocalBase: f.LocalBase, Saved: slotValues(f.Saved[:])}
		if f.Callee != nil {
			fs.Callee = f.Callee.Name
		}
		s.Frames = append(s.Frames, fs)
	}
	if i.err != nil {
		s.Fault = i.err.Error()
	}
	return s
}

// EncodeSnapshot serializes a Snapshot to CBOR bytes.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// DecodeSnapshot deserializes a Snapshot from CBOR bytes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("interpreter: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
