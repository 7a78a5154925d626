package asm

import (
	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
)

// checkWritable reports whether the current write pointer is allowed to
// receive a byte; writing below the reset vector is always an error.
func (a *Assembler) checkWritable(region source.Region, tok string) bool {
	if a.writeAddr < ResetVector {
		a.errorf(region, tok, "write pointer 0x%04x is below the reset vector 0x%04x", a.writeAddr, ResetVector)
		return false
	}
	return true
}

// emitByte writes one byte at the current write pointer and advances it,
// recording a symbol of the given kind/id at the affected address.
func (a *Assembler) emitByte(v byte, region source.Region, tok string, kind SymbolKind, id uint16) uint16 {
	if !a.checkWritable(region, tok) {
		return a.writeAddr
	}
	addr := a.writeAddr
	a.mem[addr] = v
	a.writeAddr++
	a.Symbols = append(a.Symbols, Symbol{Kind: kind, ID: id, Addr: addr, Region: region})
	return addr
}

// emitWord writes v big-endian as two bytes, both tagged with the same
// symbol kind/id/region (matching "for shorts, two consecutive addresses
// receive the same reference record").
func (a *Assembler) emitWord(v uint16, region source.Region, tok string, kind SymbolKind, id uint16) uint16 {
	addr := a.emitByte(byte(v>>8), region, tok, kind, id)
	a.emitByte(byte(v), region, tok, kind, id)
	return addr
}

// reserve writes n zero placeholder bytes (to be patched later by a
// forward reference) and returns the address of the first one.
func (a *Assembler) reserve(n int, region source.Region, tok string, kind SymbolKind, name *string) uint16 {
	if !a.checkWritable(region, tok) {
		return a.writeAddr
	}
	site := a.writeAddr
	for i := 0; i < n; i++ {
		a.mem[a.writeAddr] = 0
		a.writeAddr++
	}
	a.Symbols = append(a.Symbols, Symbol{Kind: SymLabelRef, ID: 0, Name: name, Addr: site, Region: region})
	if n == 2 {
		a.Symbols = append(a.Symbols, Symbol{Kind: SymLabelRef, ID: 0, Name: name, Addr: site + 1, Region: region})
	}
	return site
}

func (a *Assembler) emitOpcode(op byte, region source.Region, tok string) {
	a.emitByte(op, region, tok, SymOpcode, uint16(op))
}

func (a *Assembler) emitMark(tok lexer.Token) {
	a.Symbols = append(a.Symbols, Symbol{Kind: SymMark, Addr: a.writeAddr, Region: tok.Region})
}

func (a *Assembler) emitText(tok lexer.Token) {
	body := tok.Text[1:]
	for i := 0; i < len(body); i++ {
		a.emitByte(body[i], tok.Region, tok.Text, SymText, uint16(i))
	}
}

// padAbsoluteTo sets the write pointer to target. A target below the reset
// vector is not itself an error (a zero-page label can legitimately be
// defined there); the error surfaces at the next actual byte emission via
// checkWritable.
func (a *Assembler) padAbsoluteTo(target uint16, region source.Region, tok string) {
	a.writeAddr = target
}

// padRelativeBy advances the write pointer by n, warning on wraparound.
func (a *Assembler) padRelativeBy(n uint16, region source.Region, tok string) {
	next := a.writeAddr + n
	if n > 0 && next < a.writeAddr {
		a.warnf(region, tok, "relative padding wraps around memory")
	}
	a.writeAddr = next
}
