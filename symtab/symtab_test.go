package symtab_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/symtab"
)

func TestRoundTrip(t *testing.T) {
	var c report.Collector
	res, ok := asm.Assemble("test.tal", strings.NewReader("|0100 @main #01 #0f DEO BRK"), &c, nil)
	if !ok {
		t.Fatalf("assembly failed: %v", c.Errors())
	}

	st := symtab.FromResult(res)
	if len(st.Symbols) == 0 {
		t.Fatal("expected at least one symbol record")
	}

	var buf bytes.Buffer
	if err := symtab.Write(&buf, st); err != nil {
		t.Fatal(err)
	}

	got, err := symtab.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Symbols) != len(st.Symbols) {
		t.Fatalf("got %d symbols, want %d", len(got.Symbols), len(st.Symbols))
	}
	for i, rec := range st.Symbols {
		g := got.Symbols[i]
		if g.Type != rec.Type || g.ID != rec.ID || g.AddrMin != rec.AddrMin ||
			g.AddrMax != rec.AddrMax || g.Filename != rec.Filename {
			t.Fatalf("record %d round-tripped wrong: got %+v, want %+v", i, g, rec)
		}
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := symtab.Read(strings.NewReader("not a symtab file at all"))
	if err == nil {
		t.Fatal("expected an error for a bad magic header")
	}
}

// A 2-byte absolute reference ("=name") emits the same reference record at
// two consecutive addresses; FromResult must collapse that run into one
// record spanning [addr_min, addr_max] rather than two singletons.
func TestFromResultGroupsContiguousRuns(t *testing.T) {
	var c report.Collector
	res, ok := asm.Assemble("test.tal", strings.NewReader("|0100 =main BRK @main BRK"), &c, nil)
	if !ok {
		t.Fatalf("assembly failed: %v", c.Errors())
	}
	st := symtab.FromResult(res)
	found := false
	for _, rec := range st.Symbols {
		if rec.Type == symtab.TypeLabelRef && rec.AddrMax == rec.AddrMin+1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a merged 2-address label-ref record, got %+v", st.Symbols)
	}
}
