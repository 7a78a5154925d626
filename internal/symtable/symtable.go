// Package symtable implements the assembler's symbol table: a
// name-to-definition map with a monotone lattice of states
// (unknown -> {macro | forward-ref | label}) and a singly linked,
// pool-recycled chain of pending forward references per unresolved name.
//
// A real hash-array-mapped-trie buys concurrent, persistent snapshots;
// this assembler runs single-threaded over one arena-scoped invocation, so
// a plain Go map serves the same lattice without the extra structure.
package symtable

import (
	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
)

// RefKind selects how a forward reference's target address is encoded at
// its patch site once resolved.
type RefKind int

const (
	RefZeroPage RefKind = iota // 1 byte, absolute zero-page address
	RefAbsolute                // 2 bytes, absolute address
	RefRelative                // 1 or 2 bytes, PC-relative (value - (site+2))
)

// ForwardRef is one pending use of a not-yet-defined name. Refs for the
// same name are chained; Next is nil at the end of the chain.
type ForwardRef struct {
	Site   uint16
	Kind   RefKind
	Size   int // 1 or 2 bytes written at Site
	Region source.Region
	Next   *ForwardRef
}

// Kind discriminates what an Entry holds.
type Kind int

const (
	KindLabel Kind = iota
	KindMacro
)

// Entry is one symbol-table node. Exactly one of Addr (for a resolved
// label) or Body (for a macro) is meaningful, selected by Kind.
type Entry struct {
	Name *string
	Kind Kind
	ID   uint16 // unique non-zero id, assigned on first creation

	// Label state.
	Defined   bool
	Addr      uint16
	DefRegion source.Region
	Pending   *ForwardRef // chain of unresolved uses, nil once Defined

	// Macro state.
	Body       []lexer.Token
	Positional bool // name ends with ':': consumes one argument, substituted for '*'
	Expanding  bool // recursion guard

	Referenced bool
}

// Table is the assembler's symbol table for one translation unit.
type Table struct {
	entries map[*string]*Entry
	free    *ForwardRef // recycled forward-ref nodes
	nextID  uint16
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[*string]*Entry, 256), nextID: 1}
}

// NewID allocates a unique non-zero id, for entries (e.g. generated lambda
// and anonymous labels) that are never stored in the name map.
func (t *Table) NewID() uint16 {
	id := t.nextID
	t.nextID++
	return id
}

// Lookup returns the entry for name, or nil if the name has never been
// seen.
func (t *Table) Lookup(name *string) *Entry {
	return t.entries[name]
}

// Entries returns every entry, for end-of-pass sweeps (unreferenced
// symbols, unresolved forward references).
func (t *Table) Entries() map[*string]*Entry {
	return t.entries
}

// entry returns the entry for name, creating an unresolved label entry if
// none exists yet.
func (t *Table) entry(name *string) *Entry {
	e := t.entries[name]
	if e == nil {
		e = &Entry{Name: name, Kind: KindLabel, ID: t.NewID()}
		t.entries[name] = e
	}
	return e
}

func (t *Table) allocRef() *ForwardRef {
	if t.free != nil {
		r := t.free
		t.free = r.Next
		*r = ForwardRef{}
		return r
	}
	return &ForwardRef{}
}

func (t *Table) releaseChain(head *ForwardRef) {
	if head == nil {
		return
	}
	tail := head
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = t.free
	t.free = head
}

// DefineLabel records name as defined at addr. It fails (returning false)
// if name already names a macro or an already-defined label; the caller is
// responsible for reporting the conflict. On success region is recorded as
// the entry's DefRegion.
func (t *Table) DefineLabel(name *string, addr uint16, region source.Region) (*Entry, bool) {
	e := t.entry(name)
	if e.Kind != KindLabel || e.Defined {
		return e, false
	}
	e.Defined = true
	e.Addr = addr
	e.DefRegion = region
	return e, true
}

// DefineMacro records name as a macro with the given body. It fails if
// name already names anything.
func (t *Table) DefineMacro(name *string, body []lexer.Token) (*Entry, bool) {
	if existing := t.entries[name]; existing != nil {
		return existing, false
	}
	e := &Entry{
		Name:       name,
		Kind:       KindMacro,
		ID:         t.NewID(),
		Body:       body,
		Positional: hasPositionalSuffix(name),
	}
	t.entries[name] = e
	return e, true
}

func hasPositionalSuffix(name *string) bool {
	s := *name
	return len(s) > 0 && s[len(s)-1] == ':'
}

// Reference marks name as used and returns its entry, creating an
// unresolved label entry on first use. ok is false if name already names a
// macro (macros cannot be referenced as addresses).
func (t *Table) Reference(name *string) (*Entry, bool) {
	e := t.entry(name)
	e.Referenced = true
	if e.Kind == KindMacro {
		return e, false
	}
	return e, true
}

// AddForwardRef chains a pending use onto e (which must be an undefined
// label entry).
func (t *Table) AddForwardRef(e *Entry, site uint16, kind RefKind, size int, region source.Region) {
	r := t.allocRef()
	r.Site = site
	r.Kind = kind
	r.Size = size
	r.Region = region
	r.Next = e.Pending
	e.Pending = r
}

// ResolvePending walks e's forward-reference chain (e must now be Defined),
// invoking patch for each site, then recycles the chain.
func (t *Table) ResolvePending(e *Entry, patch func(ref *ForwardRef)) {
	for r := e.Pending; r != nil; r = r.Next {
		patch(r)
	}
	t.releaseChain(e.Pending)
	e.Pending = nil
}
