package asm

import (
	"strings"

	"github.com/davehorner/buxn-sub000/internal/lexer"
)

// beginComment opens a (possibly nested) parenthesized comment. Nesting is
// tracked so a comment body may itself contain literal "(" "+" ")" text
// without prematurely closing. Every token scanned inside a comment gets
// its own SymComment record, id set to the nesting depth in effect when
// that token was read (0 for the outermost opening paren, matching
// SPEC_FULL.md/original_source's buxn_asm_process_comment).
func (a *Assembler) beginComment(tok lexer.Token) {
	id := uint16(a.commentDepth)
	if a.commentDepth == 0 {
		a.commentRegion = tok.Region
		a.commentBuf = a.commentBuf[:0]
		id = 0
	}
	a.Symbols = append(a.Symbols, Symbol{Kind: SymComment, ID: id, Addr: a.writeAddr, Region: tok.Region})
	a.commentDepth++
}

func (a *Assembler) endComment(tok lexer.Token) {
	if a.commentDepth == 0 {
		a.errorf(tok.Region, tok.Text, "unmatched comment close")
		return
	}
	a.Symbols = append(a.Symbols, Symbol{Kind: SymComment, ID: uint16(a.commentDepth), Addr: a.writeAddr, Region: tok.Region})
	a.commentDepth--
	if a.commentDepth > 0 {
		return
	}
	a.commentRegion.End = tok.Region.End
	text := strings.Join(a.commentBuf, " ")
	a.Comments = append(a.Comments, Comment{Text: text, Addr: a.writeAddr, Region: a.commentRegion})
	a.commentBuf = a.commentBuf[:0]
}
