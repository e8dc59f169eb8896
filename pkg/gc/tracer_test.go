package gc_test

import (
	"testing"

	"novavm/pkg/bytecode"
	"novavm/pkg/gc"
	"novavm/pkg/interpreter"
	"novavm/pkg/program"
)

type fakeRoots struct {
	slots []interpreter.Value
}

func (r *fakeRoots) WalkRoots(visit func(*interpreter.Value)) {
	for i := range r.slots {
		visit(&r.slots[i])
	}
}

func str(s string) interpreter.Value {
	return interpreter.NewString(&interpreter.StringObject{Text: s})
}

func TestCollectDropsUnreachable(t *testing.T) {
	tr := gc.NewTracer(10)
	a, b, c := tr.Allocate(str("a")), tr.Allocate(str("b")), tr.Allocate(str("c"))
	tr.Allocate(interpreter.NewInt(1))

	tr.Collect(&fakeRoots{slots: []interpreter.Value{interpreter.NewInt(3), b}})

	if tr.Tracks(a.Str) || tr.Tracks(c.Str) {
		t.Errorf("expected unreachable strings to be dropped")
	}
	if !tr.Tracks(b.Str) {
		t.Errorf("expected rooted string to survive")
	}

	stats := tr.Stats()
	expected := gc.Stats{Cycles: 1, Allocated: 3, Freed: 2, Live: 1}
	if stats != expected {
		t.Errorf("expected %+v, got %+v", expected, stats)
	}
}

func TestSafePointThreshold(t *testing.T) {
	tr := gc.NewTracer(2)
	roots := &fakeRoots{}

	tr.Allocate(str("x"))
	tr.SafePoint(roots)
	if tr.Stats().Cycles != 0 {
		t.Fatalf("expected no cycle below threshold")
	}

	tr.Allocate(str("y"))
	tr.SafePoint(roots)
	if s := tr.Stats(); s.Cycles != 1 || s.Live != 0 {
		t.Errorf("expected one cycle freeing everything, got %+v", s)
	}
}

func TestDefaultThreshold(t *testing.T) {
	if tr := gc.NewTracer(0); tr.Threshold != gc.DefaultThreshold {
		t.Errorf("expected default threshold %d, got %d", gc.DefaultThreshold, tr.Threshold)
	}
}

func TestTracerWithInterpreter(t *testing.T) {
	p := program.New()
	p.AddConstant(program.Builtin("str"))
	p.AddConstant(program.Int(0))
	p.AddConstant(program.Int(1))
	p.AddConstant(program.Int(5))
	p.Emit(
		bytecode.NewLoadK(1, 1),
		bytecode.NewLoadK(2, 2),
		bytecode.NewLoadK(3, 3),
		bytecode.NewCall(0), // 3: R0 = str(R1)
		bytecode.NewBinary(bytecode.OpAdd, 1, 1, 2),
		bytecode.NewCompareJump(bytecode.OpLessJump, 1, 3),
		bytecode.NewJump(2, false), // 6 -> 8
		bytecode.NewJump(4, true),  // 7 -> 3
		bytecode.NewHalt(),
	)

	tr := gc.NewTracer(2)
	it, err := interpreter.NewInterpreter(p, interpreter.WithCollector(tr))
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	if err := it.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	expected := gc.Stats{Cycles: 2, Allocated: 5, Freed: 3, Live: 2}
	if s := tr.Stats(); s != expected {
		t.Errorf("expected %+v, got %+v", expected, s)
	}
	if r0 := it.Register(0); !tr.Tracks(r0.Str) || r0.Text() != "4" {
		t.Errorf("expected the last string to stay tracked, got %s", r0)
	}
}
