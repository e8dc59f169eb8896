// Package gc provides a mark-and-sweep collector for interpreter heap strings.
package gc

import (
	"github.com/charmbracelet/log"

	"novavm/pkg/interpreter"
)

// DefaultThreshold is the number of allocations between collection cycles.
const DefaultThreshold = 256

// Stats summarizes collector activity.
type Stats struct {
	Cycles    int // completed mark-and-sweep cycles
	Allocated int // objects registered through Allocate
	Freed     int // objects dropped by sweeps
	Live      int // objects currently tracked
}

// Tracer tracks every heap string the interpreter allocates and, once
// Threshold allocations have happened since the previous cycle, marks from
// the interpreter's roots at the next safe point and forgets the rest.
type Tracer struct {
	Threshold int

	heap  map[*interpreter.StringObject]struct{}
	since int
	stats Stats
}

// NewTracer returns a collector that runs a cycle every threshold allocations.
func NewTracer(threshold int) *Tracer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracer{
		Threshold: threshold,
		heap:      make(map[*interpreter.StringObject]struct{}),
	}
}

// SafePoint runs a cycle when the allocation threshold has been reached.
func (t *Tracer) SafePoint(roots interpreter.RootWalker) {
	if t.since < t.Threshold {
		return
	}
	t.Collect(roots)
}

// Allocate registers a new heap object.
func (t *Tracer) Allocate(v interpreter.Value) interpreter.Value {
	if v.IsHeap() {
		t.heap[v.Str] = struct{}{}
		t.since++
		t.stats.Allocated++
	}
	return v
}

// Collect marks every object reachable from roots and drops the others.
func (t *Tracer) Collect(roots interpreter.RootWalker) {
	marked := make(map[*interpreter.StringObject]bool, len(t.heap))
	roots.WalkRoots(func(slot *interpreter.Value) {
		if slot.IsHeap() {
			marked[slot.Str] = true
		}
	})

	freed := 0
	for obj := range t.heap {
		if !marked[obj] {
			delete(t.heap, obj)
			freed++
		}
	}

	t.since = 0
	t.stats.Cycles++
	t.stats.Freed += freed
	log.Debug("gc cycle", "cycle", t.stats.Cycles, "freed", freed, "live", len(t.heap))
}

// Tracks reports whether obj is still tracked.
func (t *Tracer) Tracks(obj *interpreter.StringObject) bool {
	_, ok := t.heap[obj]
	return ok
}

// Stats returns a snapshot of collector counters.
func (t *Tracer) Stats() Stats {
	s := t.stats
	s.Live = len(t.heap)
	return s
}
