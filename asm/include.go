package asm

import "github.com/davehorner/buxn-sub000/internal/lexer"

// include handles "~name": layers the named file onto the input stack,
// subject to the same depth bound as macro expansion.
func (a *Assembler) include(tok lexer.Token) {
	name := tok.Text[1:]
	if name == "" {
		a.errorf(tok.Region, tok.Text, "missing include filename")
		return
	}
	if a.includer == nil {
		a.errorf(tok.Region, tok.Text, "no includer configured for %q", name)
		return
	}
	if a.lex.Depth() >= 32 {
		a.errorf(tok.Region, tok.Text, "preprocessor depth exceeded including %q", name)
		return
	}
	r, err := a.includer.Open(name)
	if err != nil {
		a.errorf(tok.Region, tok.Text, "cannot open include %q: %s", name, err)
		return
	}
	a.lex.PushFile(name, r)
	a.pendingCloses = append(a.pendingCloses, r)
}
