package asm

import (
	"fmt"

	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

// newGenerated allocates a fresh, never-collision generated label name
// "@xxxx" (minimum four hex digits) not stored in the symbol table's name
// map, since it is only ever reached through the forward-ref chain
// created alongside it.
func (a *Assembler) newGenerated(region source.Region) *symtable.Entry {
	id := a.table.NewID()
	name := fmt.Sprintf("@%04x", id)
	return &symtable.Entry{
		Name:      a.interner.Intern(name),
		Kind:      symtable.KindLabel,
		ID:        id,
		DefRegion: region,
	}
}

// openLambda assembles a JSI (0x60) to a fresh forward-declared label and
// pushes it as the innermost open lambda.
func (a *Assembler) openLambda(tok lexer.Token) {
	a.emitOpcode(0x60, tok.Region, tok.Text)
	a.reserveLambdaRef(tok)
}

// reserveLambdaRef reserves the 2-byte relative reference for a lambda
// call whose opcode the caller has already emitted (JCI/JMI/JSI all share
// this form when their target is "{").
func (a *Assembler) reserveLambdaRef(tok lexer.Token) {
	entry := a.newGenerated(tok.Region)
	site := a.reserve(2, tok.Region, tok.Text, SymLabelRef, entry.Name)
	a.table.AddForwardRef(entry, site, symtable.RefRelative, 2, tok.Region)
	a.lambdas = append(a.lambdas, entry)
}

func (a *Assembler) openLambdaCallSite(tok lexer.Token) {
	a.openLambda(tok)
}

// closeLambda resolves the innermost open lambda at the current address.
func (a *Assembler) closeLambda(tok lexer.Token) {
	if len(a.lambdas) == 0 {
		a.errorf(tok.Region, tok.Text, "unmatched lambda close")
		return
	}
	n := len(a.lambdas) - 1
	entry := a.lambdas[n]
	a.lambdas = a.lambdas[:n]

	entry.Defined = true
	entry.Addr = a.writeAddr
	a.table.ResolvePending(entry, func(r *symtable.ForwardRef) {
		a.applyPatch(r.Site, r.Kind, r.Size, entry.Addr)
	})
	a.Symbols = append(a.Symbols, Symbol{
		Kind:            SymLabel,
		ID:              entry.ID,
		Name:            entry.Name,
		NameIsGenerated: true,
		Addr:            a.writeAddr,
		Region:          tok.Region,
	})
}

// reserveBackrefRef reserves a 2-byte relative reference resolved
// immediately against the most recently defined anonymous backward label.
func (a *Assembler) reserveBackrefRef(tok lexer.Token) {
	addr, ok := a.popAnon(tok)
	if !ok {
		return
	}
	site := a.reserve(2, tok.Region, tok.Text, SymLabelRef, nil)
	a.applyPatch(site, symtable.RefRelative, 2, addr)
}

func (a *Assembler) emitBackrefCall(tok lexer.Token) {
	a.emitOpcode(0x60, tok.Region, tok.Text)
	a.reserveBackrefRef(tok)
}

func (a *Assembler) popAnon(tok lexer.Token) (uint16, bool) {
	if len(a.anon) == 0 {
		a.errorf(tok.Region, tok.Text, "no pending anonymous backward label")
		return 0, false
	}
	n := len(a.anon) - 1
	addr := a.anon[n]
	a.anon = a.anon[:n]
	return addr, true
}

// defineAnon records the current address as a new anonymous backward
// label ("@@"), pushed onto the LIFO consumed by a later bare "@"
// reference.
func (a *Assembler) defineAnon(tok lexer.Token) {
	a.anon = append(a.anon, a.writeAddr)
	id := a.table.NewID()
	name := fmt.Sprintf("@%04x", id)
	a.Symbols = append(a.Symbols, Symbol{
		Kind:            SymLabel,
		ID:              id,
		Name:            a.interner.Intern(name),
		NameIsGenerated: true,
		Addr:            a.writeAddr,
		Region:          tok.Region,
	})
}
