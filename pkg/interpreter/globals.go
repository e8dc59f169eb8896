package interpreter

// GlobalStore holds global variables: a positional array plus a name index.
// Names are never removed, so a resolved index stays valid for the lifetime
// of the store.
type GlobalStore struct {
	slots []Value
	index map[string]int
	names []string // names[i] is the name bound to slot i
}

func newGlobalStore() GlobalStore {
	return GlobalStore{index: make(map[string]int)}
}

// Define appends a Nil slot bound to name and returns its index.
func (g *GlobalStore) Define(name string) (int, error) {
	if _, ok := g.index[name]; ok {
		return 0, ErrDuplicateGlobal
	}
	idx := len(g.slots)
	g.slots = append(g.slots, Nil)
	g.names = append(g.names, name)
	g.index[name] = idx
	return idx, nil
}

// Lookup resolves a name to its slot index.
func (g *GlobalStore) Lookup(name string) (int, bool) {
	idx, ok := g.index[name]
	return idx, ok
}

// Load reads a slot positionally.
func (g *GlobalStore) Load(idx int) (Value, error) {
	if idx < 0 || idx >= len(g.slots) {
		return Nil, ErrGlobalIndexOutOfRange
	}
	return g.slots[idx], nil
}

// Store writes a slot positionally.
func (g *GlobalStore) Store(idx int, v Value) error {
	if idx < 0 || idx >= len(g.slots) {
		return ErrGlobalIndexOutOfRange
	}
	g.slots[idx] = v
	return nil
}

// Len returns the number of defined globals.
func (g *GlobalStore) Len() int {
	return len(g.slots)
}

// Name returns the name bound to slot idx.
func (g *GlobalStore) Name(idx int) string {
	if idx < 0 || idx >= len(g.names) {
		return ""
	}
	return g.names[idx]
}

func (g *GlobalStore) reset() {
	g.slots = g.slots[:0]
	g.names = g.names[:0]
	g.index = make(map[string]int)
}
