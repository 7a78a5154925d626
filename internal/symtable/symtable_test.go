package symtable_test

import (
	"testing"

	"github.com/davehorner/buxn-sub000/internal/source"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

func TestDefineLabelRejectsRedefinition(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	name := in.Intern("main")

	if _, ok := tab.DefineLabel(name, 0x0100, source.Region{}); !ok {
		t.Fatal("first definition should succeed")
	}
	if _, ok := tab.DefineLabel(name, 0x0200, source.Region{}); ok {
		t.Fatal("redefinition should be rejected")
	}
}

func TestDefineMacroRejectsNameClash(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	name := in.Intern("foo")

	tab.Reference(name) // create an unresolved label entry first
	if _, ok := tab.DefineMacro(name, nil); ok {
		t.Fatal("macro definition should fail once the name is taken")
	}
}

func TestReferenceRejectsMacroAsAddress(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	name := in.Intern("mac:")

	if _, ok := tab.DefineMacro(name, nil); !ok {
		t.Fatal("macro definition should succeed")
	}
	if _, ok := tab.Reference(name); ok {
		t.Fatal("referencing a macro as an address should fail")
	}
}

func TestPositionalSuffixDetected(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	name := in.Intern("add:")

	e, ok := tab.DefineMacro(name, nil)
	if !ok {
		t.Fatal("macro definition should succeed")
	}
	if !e.Positional {
		t.Fatal("a name ending in ':' should be marked positional")
	}
}

func TestForwardRefResolvedInOrder(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	name := in.Intern("loop")

	e, _ := tab.Reference(name)
	tab.AddForwardRef(e, 0x10, symtable.RefRelative, 2, source.Region{})
	tab.AddForwardRef(e, 0x20, symtable.RefAbsolute, 2, source.Region{})

	e, _ = tab.DefineLabel(name, 0x0150, source.Region{})

	var sites []uint16
	tab.ResolvePending(e, func(r *symtable.ForwardRef) {
		sites = append(sites, r.Site)
	})

	// chained most-recent-first: last added resolves first.
	want := []uint16{0x20, 0x10}
	if len(sites) != len(want) || sites[0] != want[0] || sites[1] != want[1] {
		t.Fatalf("got %v, want %v", sites, want)
	}
	if e.Pending != nil {
		t.Fatal("pending chain should be cleared after resolving")
	}
}

func TestNewIDIsUniqueAndNonZero(t *testing.T) {
	tab := symtable.New()
	a := tab.NewID()
	b := tab.NewID()
	if a == 0 || b == 0 || a == b {
		t.Fatalf("expected distinct non-zero ids, got %d, %d", a, b)
	}
}

func TestLookupMissingNameReturnsNil(t *testing.T) {
	tab := symtable.New()
	in := source.NewInterner()
	if e := tab.Lookup(in.Intern("nope")); e != nil {
		t.Fatalf("expected nil for an unseen name, got %+v", e)
	}
}
