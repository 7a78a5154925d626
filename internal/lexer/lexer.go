// Package lexer turns a byte stream into a stream of tokens carrying their
// source region, and layers macro-expansion cursors on top of the same
// input-unit stack used for files. It mirrors the teacher's text/scanner
// based tokenizing (see asm/parser.go in the ngaro project this repo grew
// out of) but implements the rune-prefixed, Forth-flavored token grammar by
// hand since stdlib's scanner cannot express the long-string and
// macro-substitution rules below.
package lexer

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/davehorner/buxn-sub000/internal/source"
)

// Limits from the source grammar.
const (
	MaxRegularToken = 47
	MaxLongString   = 1024
	MaxDepth        = 32
)

func isSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// Token is a lexeme plus the source region it covers.
type Token struct {
	Text   string
	Region source.Region
}

// unit is one entry of the lexer's input stack: either a file being read
// through a byte source, or a macro expansion cursor over stored tokens.
type unit interface {
	// next returns the next token from this unit. io.EOF ends the unit.
	next() (Token, error)
}

// Lexer produces a flat token stream from a stack of input units. Reading
// past the end of the topmost unit transparently resumes the unit below
// it; reaching an empty stack yields io.EOF.
type Lexer struct {
	units    []unit
	interner *source.Interner
}

// New creates an empty Lexer. Use PushFile or PushMacro to seed it with
// input.
func New(interner *source.Interner) *Lexer {
	return &Lexer{interner: interner}
}

// Depth returns the number of input units currently stacked (includes,
// plus macro expansions). Callers enforce MaxDepth before pushing.
func (l *Lexer) Depth() int {
	return len(l.units)
}

// PushFile layers a new file unit for name on top of the input stack. r is
// read lazily as tokens are requested.
func (l *Lexer) PushFile(name string, r io.Reader) {
	l.units = append(l.units, &fileUnit{
		name: l.interner.Intern(name),
		r:    bufio.NewReader(r),
		pos:  source.Position{Line: 1, Col: 1, Byte: 0},
	})
}

// PushMacro layers a macro-expansion cursor over a previously lexed token
// list. subst, if non-nil, is applied to every template token's text
// before it is returned (substring replacement of the macro's capture
// rune); substituted tokens inherit the template token's own region.
func (l *Lexer) PushMacro(tokens []Token, subst func(string) string) {
	l.units = append(l.units, &macroUnit{tokens: tokens, subst: subst})
}

// Pop discards the topmost input unit, e.g. on an unrecoverable error
// within it.
func (l *Lexer) Pop() {
	if len(l.units) > 0 {
		l.units = l.units[:len(l.units)-1]
	}
}

// Next returns the next token in the stream. io.EOF is returned once every
// unit on the stack is exhausted.
func (l *Lexer) Next() (Token, error) {
	for len(l.units) > 0 {
		top := l.units[len(l.units)-1]
		tok, err := top.next()
		if err == nil {
			return tok, nil
		}
		if err != io.EOF {
			return Token{}, err
		}
		l.units = l.units[:len(l.units)-1]
	}
	return Token{}, io.EOF
}

// fileUnit lexes raw bytes from an io.Reader, tracking line/column/byte
// position and normalizing line endings (lone \r, \n, or \r\n each count
// as one line break).
type fileUnit struct {
	name *string
	r    *bufio.Reader
	pos  source.Position
	// pendingCR marks that the last byte consumed was \r, so a following
	// \n must not advance the line counter a second time.
	pendingCR bool
}

func (f *fileUnit) unread() {
	_ = f.r.UnreadByte()
}

func (f *fileUnit) skipSeparators() error {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return err
		}
		if !isSeparator(b) {
			f.unread()
			return nil
		}
		// account for position on separators too
		switch b {
		case '\n':
			if f.pendingCR {
				f.pendingCR = false
				f.pos.Byte++
				f.pos.Col = 1
				continue
			}
			f.pos.Byte++
			f.pos.Line++
			f.pos.Col = 1
		case '\r':
			f.pendingCR = true
			f.pos.Byte++
			f.pos.Line++
			f.pos.Col = 1
		default:
			f.pendingCR = false
			f.pos.Byte++
			f.pos.Col++
		}
	}
}

func (f *fileUnit) next() (Token, error) {
	if err := f.skipSeparators(); err != nil {
		return Token{}, err
	}
	start := f.pos
	b, err := f.r.ReadByte()
	if err != nil {
		return Token{}, err
	}
	// long string: '"' immediately followed by a space
	if b == '"' {
		pb, perr := f.r.Peek(1)
		if perr == nil && len(pb) == 1 && pb[0] == ' ' {
			f.advance(b)
			return f.lexLongString(start)
		}
	}
	f.unread()
	return f.lexRegular(start)
}

func (f *fileUnit) advance(b byte) {
	switch b {
	case '\n':
		if f.pendingCR {
			f.pendingCR = false
			f.pos.Byte++
			f.pos.Col = 1
			return
		}
		f.pos.Byte++
		f.pos.Line++
		f.pos.Col = 1
	case '\r':
		f.pendingCR = true
		f.pos.Byte++
		f.pos.Line++
		f.pos.Col = 1
	default:
		f.pendingCR = false
		f.pos.Byte++
		f.pos.Col++
	}
}

func (f *fileUnit) lexLongString(start source.Position) (Token, error) {
	// the opening '"' was already consumed by the caller; consume the
	// single space that must follow it before the string body starts.
	sp, _ := f.r.ReadByte()
	f.advance(sp)

	buf := make([]byte, 0, 32)
	buf = append(buf, '"')
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return Token{}, errors.Wrapf(err, "unterminated long string at %s", start)
		}
		if c == '"' {
			f.advance(c)
			break
		}
		if len(buf) >= MaxLongString+1 {
			return Token{}, errors.Errorf("%s: string too long (max %d bytes)", start, MaxLongString)
		}
		buf = append(buf, c)
		f.advance(c)
	}
	end := f.pos
	return Token{Text: string(buf), Region: source.Region{File: f.name, Start: start, End: end}}, nil
}

func (f *fileUnit) lexRegular(start source.Position) (Token, error) {
	buf := make([]byte, 0, 16)
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			break
		}
		if isSeparator(b) {
			f.unread()
			break
		}
		if len(buf) >= MaxRegularToken {
			return Token{}, errors.Errorf("%s: token too long (max %d bytes)", start, MaxRegularToken)
		}
		buf = append(buf, b)
		f.advance(b)
	}
	if len(buf) == 0 {
		return Token{}, io.EOF
	}
	end := f.pos
	return Token{Text: string(buf), Region: source.Region{File: f.name, Start: start, End: end}}, nil
}

// macroUnit replays a stored token list, optionally substituting the
// capture rune in every token's lexeme.
type macroUnit struct {
	tokens []Token
	pos    int
	subst  func(string) string
}

func (m *macroUnit) next() (Token, error) {
	if m.pos >= len(m.tokens) {
		return Token{}, io.EOF
	}
	tok := m.tokens[m.pos]
	m.pos++
	if m.subst != nil {
		text := m.subst(tok.Text)
		if len(text) > MaxLongString {
			return Token{}, errors.Errorf("%s: substituted token too long", tok.Region)
		}
		tok.Text = text
	}
	return tok, nil
}
