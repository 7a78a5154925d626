package asm

import (
	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

// applyPatch writes a resolved address into mem at site according to kind
// and size.
func (a *Assembler) applyPatch(site uint16, kind symtable.RefKind, size int, addr uint16) {
	switch kind {
	case symtable.RefZeroPage:
		a.mem[site] = byte(addr)
	case symtable.RefAbsolute:
		if size == 2 {
			a.mem[site] = byte(addr >> 8)
			a.mem[site+1] = byte(addr)
		} else {
			a.mem[site] = byte(addr)
		}
	case symtable.RefRelative:
		if size == 2 {
			rel := addr - (site + 2)
			a.mem[site] = byte(rel >> 8)
			a.mem[site+1] = byte(rel)
		} else {
			// measured from past the opcode that follows the offset byte,
			// where the VM's PC points when that opcode applies it
			rel := addr - (site + 2)
			a.mem[site] = byte(rel)
		}
	}
}

// resolveName looks up (or creates) name's entry, returning false if the
// name cannot be used as a reference (runic, or already a macro).
func (a *Assembler) resolveName(name string, region source.Region) (*symtable.Entry, bool) {
	if isRunic(name) {
		a.errorf(region, name, "%q may not be used as a reference", name)
		return nil, false
	}
	interned := a.interner.Intern(name)
	entry, ok := a.table.Reference(interned)
	if !ok {
		a.errorf(region, name, "%q is a macro, not a label", name)
		return nil, false
	}
	return entry, true
}

// localName qualifies a bare local-reference target with the current
// scope.
func (a *Assembler) localName(bare string) string {
	scope := ""
	if a.scope != nil {
		scope = *a.scope
	}
	return scope + "/" + bare
}

// emitRefSite reserves size bytes at the current write pointer and either
// patches them immediately (entry already defined) or queues a forward
// reference.
func (a *Assembler) emitRefSite(entry *symtable.Entry, kind symtable.RefKind, size int, region source.Region, tok string) {
	site := a.reserve(size, region, tok, SymLabelRef, entry.Name)
	entry.Referenced = true
	if entry.Defined {
		a.applyPatch(site, kind, size, entry.Addr)
		return
	}
	a.table.AddForwardRef(entry, site, kind, size, region)
}

// emitCall assembles a JSI (0x60) plus a 2-byte relative reference to
// target, which is either a plain global name or (local=true) a name
// scoped under the current label and/or starting with '&'.
func (a *Assembler) emitCall(tok lexer.Token, target string, local bool) {
	if target == "{" {
		a.openLambdaCallSite(tok)
		return
	}
	if target == "@" {
		a.emitBackrefCall(tok)
		return
	}
	name := target
	if local || len(target) > 0 && target[0] == '&' {
		if len(name) > 0 && name[0] == '&' {
			name = name[1:]
		}
		name = a.localName(name)
	}
	entry, ok := a.resolveName(name, tok.Region)
	if !ok {
		return
	}
	a.emitOpcode(0x60, tok.Region, tok.Text)
	a.emitRefSite(entry, symtable.RefRelative, 2, tok.Region, tok.Text)
}

// emitIndirectJump assembles JMI (0x40) or JCI (0x20) plus a 2-byte
// relative reference, dispatching '{' and '@' targets the same way
// emitCall does.
func (a *Assembler) emitIndirectJump(tok lexer.Token, opc byte) {
	target := tok.Text[1:]
	a.emitOpcode(opc, tok.Region, tok.Text)
	switch {
	case target == "{":
		a.reserveLambdaRef(tok)
	case target == "@":
		a.reserveBackrefRef(tok)
	default:
		name := target
		if len(name) > 0 && (name[0] == '&' || name[0] == '/') {
			name = a.localName(name[1:])
		}
		entry, ok := a.resolveName(name, tok.Region)
		if !ok {
			return
		}
		a.emitRefSite(entry, symtable.RefRelative, 2, tok.Region, tok.Text)
	}
}

// emitRef assembles the .,-,,,_,;,= rune family: an optional LIT/LIT2
// prefix (withLit) followed by a 1- or 2-byte reference of the given kind.
func (a *Assembler) emitRef(tok lexer.Token, target string, kind symtable.RefKind, size int, withLit bool) {
	if withLit {
		if size == 2 {
			a.emitOpcode(0xa0, tok.Region, tok.Text) // LIT2
		} else {
			a.emitOpcode(0x80, tok.Region, tok.Text) // LIT
		}
	}
	if target == "@" {
		addr, ok := a.popAnon(tok)
		if !ok {
			return
		}
		site := a.reserve(size, tok.Region, tok.Text, SymLabelRef, nil)
		a.applyPatch(site, kind, size, addr)
		return
	}
	name := target
	if len(name) > 0 && (name[0] == '&' || name[0] == '/') {
		name = a.localName(name[1:])
	}
	entry, ok := a.resolveName(name, tok.Region)
	if !ok {
		return
	}
	a.emitRefSite(entry, kind, size, tok.Region, tok.Text)
}

// isRunic reports whether name starts with one of the characters that
// select a source construct rather than being plain text.
func isRunic(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case '(', ')', '[', ']', '~', '%', '@', '&', '!', '?', '{', '}', '/', '|', '$', '#', '.', '-', ',', '_', ';', '=', '"':
		return true
	}
	return false
}
