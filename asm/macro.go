package asm

import (
	"strings"

	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/symtable"
)

// defineMacro handles "%name": consumes tokens up to (and through) the
// opening "{" and then collects body tokens verbatim up to the matching
// "}", tracking brace nesting so a macro body may itself contain a
// lambda. "%" appearing inside a body is a nested-definition error.
func (a *Assembler) defineMacro(tok lexer.Token) {
	name := tok.Text[1:]
	if name == "" || isRunic(name) {
		a.errorf(tok.Region, tok.Text, "invalid macro name %q", name)
		return
	}
	for {
		open, err := a.lex.Next()
		if err != nil {
			a.errorf(tok.Region, tok.Text, "macro %q must be followed by '{'", name)
			return
		}
		if open.Text == "{" {
			break
		}
	}
	var body []lexer.Token
	depth := 1
	for {
		t, err := a.lex.Next()
		if err != nil {
			a.errorf(tok.Region, tok.Text, "unterminated macro body for %q", name)
			return
		}
		switch t.Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				interned := a.interner.Intern(name)
				if _, ok := a.table.DefineMacro(interned, body); !ok {
					a.errorf(tok.Region, tok.Text, "%q is already defined", name)
					return
				}
				a.Symbols = append(a.Symbols, Symbol{Kind: SymMacro, Name: interned, Addr: a.writeAddr, Region: tok.Region})
				return
			}
		default:
			if strings.HasPrefix(t.Text, "%") {
				a.errorf(t.Region, t.Text, "nested macro definition inside %q", name)
				return
			}
		}
		body = append(body, t)
	}
}

// expandMacro is invoked when a bare-word lookup resolves to a macro
// entry rather than a label. It performs the recursion check, reads a
// positional argument from the enclosing unit if the name ends in ':',
// and pushes a lexer macro unit so subsequent Next calls replay the body.
func (a *Assembler) expandMacro(name string, tok lexer.Token) bool {
	interned := a.interner.Intern(name)
	entry := a.table.Lookup(interned)
	if entry == nil || entry.Kind != symtable.KindMacro {
		return false
	}
	if entry.Expanding {
		a.errorf(tok.Region, tok.Text, "macro recursion detected in %q", name)
		return true
	}
	a.Symbols = append(a.Symbols, Symbol{Kind: SymMacroRef, Name: interned, Addr: a.writeAddr, Region: tok.Region})
	var subst func(string) string
	if entry.Positional {
		arg, err := a.lex.Next()
		if err != nil {
			a.errorf(tok.Region, tok.Text, "macro %q expects an argument", name)
			return true
		}
		subst = func(s string) string { return strings.ReplaceAll(s, "*", arg.Text) }
	}
	if a.lex.Depth() >= 32 {
		a.errorf(tok.Region, tok.Text, "preprocessor depth exceeded expanding %q", name)
		return true
	}
	entry.Expanding = true
	a.lex.PushMacro(entry.Body, subst)
	a.macroFrames = append(a.macroFrames, macroFrame{entry: entry, depth: a.lex.Depth()})
	return true
}

// macroFrame tracks one in-flight expansion so its recursion guard can be
// cleared once the lexer has popped the macro's token-replay unit. depth
// is the lexer depth observed immediately after pushing the unit; once
// Lexer.Depth() falls below it the unit (and everything it nested) is
// gone.
type macroFrame struct {
	entry *symtable.Entry
	depth int
}

func (a *Assembler) drainFinishedMacros() {
	for len(a.macroFrames) > 0 && a.lex.Depth() < a.macroFrames[len(a.macroFrames)-1].depth {
		n := len(a.macroFrames) - 1
		a.macroFrames[n].entry.Expanding = false
		a.macroFrames = a.macroFrames[:n]
	}
}
