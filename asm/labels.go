package asm

import (
	"strings"

	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

// globalLabel handles a "@name" token: "@@" defines an anonymous backward
// label, anything else defines (or redefines, which is an error) a global
// label and resets the current scope.
func (a *Assembler) globalLabel(tok lexer.Token) {
	name := tok.Text[1:]
	if name == "@" {
		a.defineAnon(tok)
		return
	}
	if name == "" || isRunic(name) {
		a.errorf(tok.Region, tok.Text, "invalid label name %q", name)
		return
	}
	scopeName := name
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		scopeName = name[:idx]
	}
	interned := a.interner.Intern(name)
	entry, ok := a.table.DefineLabel(interned, a.writeAddr, tok.Region)
	if !ok {
		if entry.Kind == symtable.KindMacro {
			a.errorf(tok.Region, tok.Text, "%q is already defined as a macro", name)
		} else {
			a.errorf(tok.Region, tok.Text, "%q is already defined", name)
		}
		return
	}
	a.table.ResolvePending(entry, func(r *symtable.ForwardRef) {
		a.applyPatch(r.Site, r.Kind, r.Size, entry.Addr)
	})
	a.scope = a.interner.Intern(scopeName)
	a.Symbols = append(a.Symbols, Symbol{Kind: SymLabel, ID: entry.ID, Name: interned, Addr: a.writeAddr, Region: tok.Region})
}

// localLabel handles a "&name" token: defines <scope>/name.
func (a *Assembler) localLabel(tok lexer.Token) {
	bare := tok.Text[1:]
	if bare == "" || isRunic(bare) {
		a.errorf(tok.Region, tok.Text, "invalid local label name %q", bare)
		return
	}
	full := a.localName(bare)
	interned := a.interner.Intern(full)
	entry, ok := a.table.DefineLabel(interned, a.writeAddr, tok.Region)
	if !ok {
		a.errorf(tok.Region, tok.Text, "%q is already defined", full)
		return
	}
	a.table.ResolvePending(entry, func(r *symtable.ForwardRef) {
		a.applyPatch(r.Site, r.Kind, r.Size, entry.Addr)
	})
	a.Symbols = append(a.Symbols, Symbol{Kind: SymLabel, ID: entry.ID, Name: interned, Addr: a.writeAddr, Region: tok.Region})
}
