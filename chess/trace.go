package chess

// arc is a backward-jump edge (from-pc, to-pc), the unit tracked to detect
// a trace re-entering the same loop body a second time.
type arc struct {
	from, to uint16
}

// Trace is one in-flight abstract execution: a snapshot of both stacks at
// some PC, tagged with an id and (for forked traces) a parent id so a
// consumer can reconstruct the fork tree.
type Trace struct {
	ID       int
	ParentID int
	PC       uint16
	WST, RST *Stack
	Entry    *AddressInfo
	Sig      Signature
	Arcs     map[arc]bool
}

// clone produces an independent copy for forking at a branch; the arc set
// is copied so each fork continues to detect repeats along its own path
// without polluting its sibling.
func (t *Trace) clone() *Trace {
	arcs := make(map[arc]bool, len(t.Arcs))
	for a := range t.Arcs {
		arcs[a] = true
	}
	return &Trace{
		ID: t.ID, ParentID: t.ParentID, PC: t.PC,
		WST: t.WST.Clone(), RST: t.RST.Clone(),
		Entry: t.Entry, Sig: t.Sig, Arcs: arcs,
	}
}

// worklist is a LIFO stack of pending traces (no happens-before guarantee
// is implied across entries) plus a monotonically increasing id source
// for fork-tree bookkeeping.
type worklist struct {
	pending []*Trace
	nextID  int
}

func (w *worklist) push(t *Trace) { w.pending = append(w.pending, t) }

func (w *worklist) pop() (*Trace, bool) {
	if len(w.pending) == 0 {
		return nil, false
	}
	n := len(w.pending) - 1
	t := w.pending[n]
	w.pending = w.pending[:n]
	return t, true
}

func (w *worklist) newID() int {
	id := w.nextID
	w.nextID++
	return id
}

// fork clones parent onto a fresh id and enqueues it, returning the clone.
func (w *worklist) fork(parent *Trace) *Trace {
	child := parent.clone()
	child.ParentID = parent.ID
	child.ID = w.newID()
	w.push(child)
	return child
}
