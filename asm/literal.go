package asm

import (
	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

// emitLiteralNumber handles "#n": emits LIT/LIT2 followed by the literal
// value, sized by the hex-digit-count rule.
func (a *Assembler) emitLiteralNumber(tok lexer.Token) {
	digits := tok.Text[1:]
	v, short, err := parseHex(digits)
	if err != nil {
		a.errorf(tok.Region, tok.Text, "%s", err)
		return
	}
	if short {
		a.emitOpcode(0xa0, tok.Region, tok.Text) // LIT2
		a.emitWord(v, tok.Region, tok.Text, SymNumber, v)
	} else {
		a.emitOpcode(0x80, tok.Region, tok.Text) // LIT
		a.emitByte(byte(v), tok.Region, tok.Text, SymNumber, v)
	}
}

// padAbsolute handles "|target": numbers, "@", or a resolved label name.
func (a *Assembler) padAbsolute(tok lexer.Token) {
	target := tok.Text[1:]
	if target == "@" {
		if addr, ok := a.popAnon(tok); ok {
			a.padAbsoluteTo(addr, tok.Region, tok.Text)
		}
		return
	}
	if v, _, ok := parseBareNumber(target); ok {
		a.padAbsoluteTo(v, tok.Region, tok.Text)
		return
	}
	if v, _, err := parseDecimal(target); err == nil {
		a.padAbsoluteTo(v, tok.Region, tok.Text)
		return
	}
	entry, ok := a.resolveName(target, tok.Region)
	if !ok {
		return
	}
	if !entry.Defined {
		a.errorf(tok.Region, tok.Text, "padding target %q is not yet defined", target)
		return
	}
	a.padAbsoluteTo(entry.Addr, tok.Region, tok.Text)
}

// padRelative handles "$n": numeric only.
func (a *Assembler) padRelative(tok lexer.Token) {
	target := tok.Text[1:]
	v, _, ok := parseBareNumber(target)
	if !ok {
		var err error
		v, _, err = parseDecimal(target)
		if err != nil {
			a.errorf(tok.Region, tok.Text, "invalid relative padding amount %q", target)
			return
		}
	}
	a.padRelativeBy(v, tok.Region, tok.Text)
}

// emitPlain handles a token with no leading rune: an opcode mnemonic, a
// bare hex/decimal number (emitted raw), or a bare word (a JSI call to a
// global label).
func (a *Assembler) emitPlain(tok lexer.Token) {
	text := tok.Text
	if op, redundant, ok := parseOpcodeToken(text); ok {
		if redundant {
			a.warnf(tok.Region, text, "redundant opcode flag in %q", text)
		}
		a.emitOpcode(op, tok.Region, text)
		return
	}
	if v, short, ok := parseBareNumber(text); ok {
		if short {
			a.emitWord(v, tok.Region, text, SymNumber, v)
		} else {
			a.emitByte(byte(v), tok.Region, text, SymNumber, v)
		}
		return
	}
	if v, short, err := parseDecimal(text); err == nil {
		if short {
			a.emitWord(v, tok.Region, text, SymNumber, v)
		} else {
			a.emitByte(byte(v), tok.Region, text, SymNumber, v)
		}
		return
	}
	if isRunic(text) {
		a.errorf(tok.Region, text, "%q may not be used as a reference", text)
		return
	}
	if a.expandMacro(text, tok) {
		return
	}
	entry, ok := a.resolveName(text, tok.Region)
	if !ok {
		return
	}
	a.emitOpcode(0x60, tok.Region, text)
	a.emitRefSite(entry, symtable.RefRelative, 2, tok.Region, text)
}
