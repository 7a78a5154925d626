package asm

import (
	"io"

	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
	"github.com/davehorner/buxn-sub000/internal/symtable"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/pkg/errors"
)

// romSize is the full addressable image; ROM files and the symtab record
// addresses within [ResetVector, 0xffff].
const romSize = 1 << 16

// ResetVector mirrors vm.ResetVector without importing the vm package for
// a single constant; keeping it here also decouples the assembler's
// write-pointer floor from VM internals.
const ResetVector = 0x0100

// Comment is a top-level (possibly internally nested) parenthesized
// comment, captured verbatim for the annotation router.
type Comment struct {
	Text   string
	Addr   uint16
	Region source.Region
}

// Includer resolves an include directive's filename to a readable source.
// The caller supplies this so the assembler has no direct filesystem
// dependency (tests can include from an in-memory map).
type Includer interface {
	Open(name string) (io.ReadCloser, error)
}

// Assembler holds all per-invocation state: the arena is simply the
// lifetime of one Assembler value, released when it is discarded.
type Assembler struct {
	lex      *lexer.Lexer
	interner *source.Interner
	sink     report.Sink
	table    *symtable.Table
	includer Includer

	mem       [romSize]byte
	writeAddr uint16

	scope   *string
	lambdas []*symtable.Entry
	anon    []uint16

	commentDepth  int
	commentBuf    []string
	commentRegion source.Region

	Symbols  []Symbol
	Comments []Comment

	macroFrames   []macroFrame
	pendingCloses []io.ReadCloser
	failed        bool
}

// New creates an assembler reading from name/r as its initial (and only
// mandatory) input unit.
func New(name string, r io.Reader, sink report.Sink, includer Includer) *Assembler {
	interner := source.NewInterner()
	lex := lexer.New(interner)
	lex.PushFile(name, r)
	a := &Assembler{
		lex:       lex,
		interner:  interner,
		sink:      sink,
		table:     symtable.New(),
		includer:  includer,
		writeAddr: ResetVector,
	}
	return a
}

func (a *Assembler) report(sev report.Severity, region source.Region, tok, msg string) {
	if sev == report.Error {
		a.failed = true
	}
	a.sink.Report(report.Report{Severity: sev, Message: msg, Token: tok, Region: region})
}

func (a *Assembler) errorf(region source.Region, tok string, format string, args ...interface{}) {
	a.report(report.Error, region, tok, errors.Errorf(format, args...).Error())
}

func (a *Assembler) warnf(region source.Region, tok string, format string, args ...interface{}) {
	a.report(report.Warning, region, tok, errors.Errorf(format, args...).Error())
}

// Result is everything a successful assembly produced.
type Result struct {
	ROM      []byte
	Symbols  []Symbol
	Comments []Comment
}

// Assemble runs the assembler to completion and returns the image and
// symbol stream. ok mirrors the "accumulated reports + boolean success"
// propagation model: diagnostics are always delivered through sink even
// when ok is true (warnings).
func Assemble(name string, r io.Reader, sink report.Sink, includer Includer) (Result, bool) {
	a := New(name, r, sink, includer)
	a.run()
	a.finish()
	if !a.failed {
		trimmed := trimTrailingZeros(a.mem[ResetVector:])
		return Result{ROM: trimmed, Symbols: a.Symbols, Comments: a.Comments}, true
	}
	return Result{}, false
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	out := make([]byte, end)
	copy(out, b[:end])
	return out
}

func (a *Assembler) run() {
	for {
		tok, err := a.lex.Next()
		a.drainFinishedMacros()
		if err == io.EOF {
			return
		}
		if err != nil {
			a.errorf(tok.Region, tok.Text, "%s", err)
			if a.lex.Depth() == 0 {
				return
			}
			continue
		}
		a.dispatch(tok)
	}
}

func (a *Assembler) dispatch(tok lexer.Token) {
	text := tok.Text
	if text == "" {
		return
	}
	if text[0] == '"' {
		a.emitText(tok)
		return
	}
	switch text {
	case "(":
		a.beginComment(tok)
		return
	case ")":
		a.endComment(tok)
		return
	}
	if a.commentDepth > 0 {
		a.commentBuf = append(a.commentBuf, text)
		a.Symbols = append(a.Symbols, Symbol{Kind: SymComment, ID: uint16(a.commentDepth), Addr: a.writeAddr, Region: tok.Region})
		return
	}
	switch text {
	case "[", "]":
		a.emitMark(tok)
		return
	case "{":
		a.openLambda(tok)
		return
	case "}":
		a.closeLambda(tok)
		return
	}
	switch text[0] {
	case '~':
		a.include(tok)
	case '%':
		a.defineMacro(tok)
	case '@':
		a.globalLabel(tok)
	case '&':
		a.localLabel(tok)
	case '!':
		a.emitIndirectJump(tok, 0x40)
	case '?':
		a.emitIndirectJump(tok, 0x20)
	case '/':
		a.emitCall(tok, tok.Text[1:], true)
	case '|':
		a.padAbsolute(tok)
	case '$':
		a.padRelative(tok)
	case '#':
		a.emitLiteralNumber(tok)
	case '.':
		a.emitRef(tok, tok.Text[1:], symtable.RefZeroPage, 1, true)
	case '-':
		a.emitRef(tok, tok.Text[1:], symtable.RefZeroPage, 1, false)
	case ',':
		a.emitRef(tok, tok.Text[1:], symtable.RefRelative, 1, true)
	case '_':
		a.emitRef(tok, tok.Text[1:], symtable.RefRelative, 1, false)
	case ';':
		a.emitRef(tok, tok.Text[1:], symtable.RefAbsolute, 2, true)
	case '=':
		a.emitRef(tok, tok.Text[1:], symtable.RefAbsolute, 2, false)
	default:
		a.emitPlain(tok)
	}
}

// finish runs the end-of-input resolution pass: unresolved forward
// references, unreferenced symbols, unclosed lambdas, unconsumed
// anonymous labels.
func (a *Assembler) finish() {
	for _, c := range a.pendingCloses {
		c.Close()
	}
	if a.commentDepth > 0 {
		a.errorf(a.commentRegion, "(", "unterminated comment")
	}
	for _, e := range a.lambdas {
		a.errorf(e.DefRegion, *e.Name, "unclosed lambda")
	}
	if len(a.anon) > 0 {
		a.warnf(source.Region{}, "@@", "unresolved anonymous backward label")
	}
	for _, e := range a.table.Entries() {
		if e.Kind != symtable.KindLabel {
			continue
		}
		if !e.Defined {
			for r := e.Pending; r != nil; r = r.Next {
				a.errorf(r.Region, *e.Name, "invalid reference: %q is never defined", *e.Name)
			}
			continue
		}
		if e.Referenced {
			continue
		}
		if e.Addr == ResetVector {
			continue
		}
		name := *e.Name
		if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
			continue
		}
		a.warnf(e.DefRegion, name, "unreferenced symbol %q", name)
	}
}
