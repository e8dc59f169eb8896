package interpreter

// RootWalker enumerates every slot that may hold a live reference.
type RootWalker interface {
	WalkRoots(visit func(slot *Value))
}

// Collector is the garbage collector collaborator. The interpreter calls
// SafePoint immediately before every heap allocation, then Allocate to
// register the new object. Neither is called anywhere else.
type Collector interface {
	SafePoint(roots RootWalker)
	Allocate(v Value) Value
}

type noCollector struct{}

func (noCollector) SafePoint(RootWalker) {}
func (noCollector) Allocate(v Value) Value { return v }

// WalkRoots visits the register file, every occupied local slot, every
// global slot and the register snapshots saved in active call frames.
func (i *Interpreter) WalkRoots(visit func(slot *Value)) {
	for r := range i.regs {
		visit(&i.regs[r])
	}
	for l := range i.locals.slots {
		visit(&i.locals.slots[l])
	}
	for g := range i.globals.slots {
		visit(&i.globals.slots[g])
	}
	frames := i.frames.active()
	for f := range frames {
		for r := range frames[f].Saved {
			visit(&frames[f].Saved[r])
		}
	}
}

// allocString creates a new heap string, pausing for the collector first.
func (i *Interpreter) allocString(s string) Value {
	i.collector.SafePoint(i)
	return i.collector.Allocate(NewString(&StringObject{Text: s}))
}
