// Package annotation classifies the comments an assembly run emits into
// the role they play for downstream consumers (chess, documentation
// generators): a comment attached immediately to the token it shares an
// address with, one describing what follows it, or one describing what
// preceded it — and, separately, whether its text looks like a stack-effect
// signature, a registered custom annotation, or free-form text.
package annotation

import (
	"strings"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/chess"
	"github.com/davehorner/buxn-sub000/internal/source"
)

// Placement classifies where a comment sits relative to the code it
// documents.
type Placement int

const (
	// Immediate: the nearest preceding non-comment symbol sits at the
	// comment's own address and is not a label (a gloss on that token).
	Immediate Placement = iota
	// Prefix: the nearest preceding non-comment symbol is a label at the
	// same address, so the comment documents the routine that label begins
	// (a signature); also used when no non-comment symbol precedes it.
	Prefix
	// Postfix: the nearest preceding non-comment symbol sits at an
	// earlier address, so the comment describes what came before it.
	Postfix
)

// CommentKind classifies a comment's text.
type CommentKind int

const (
	MightBeType CommentKind = iota
	IsType
	IsCast
	IsCustomAnnotation
	IsText
)

// Annotation is one classified comment.
type Annotation struct {
	Text      string
	Kind      CommentKind
	Placement Placement
	Region    source.Region
	Addr      uint16
}

// Router classifies every comment in an assembled result, dispatching
// custom annotations (those whose leading word is registered) and parsed
// type signatures to the caller-supplied handlers. Handlers may be nil.
type Router struct {
	Custom   map[string]bool
	OnType   func(Annotation)
	OnCast   func(Annotation)
	OnCustom func(Annotation)
	OnText   func(Annotation)
}

// NewRouter creates a Router recognizing the given custom annotation
// names (matched against a comment's first word).
func NewRouter(customNames ...string) *Router {
	r := &Router{Custom: make(map[string]bool, len(customNames))}
	for _, n := range customNames {
		r.Custom[n] = true
	}
	return r
}

// Route walks res's symbol stream in emission order and classifies every
// comment it finds, invoking the registered handlers.
func (r *Router) Route(res asm.Result) []Annotation {
	var out []Annotation
	for i, sym := range res.Symbols {
		// The assembler emits one SymComment record per token scanned
		// inside a comment (id = nesting depth at that token); only the
		// outermost opening paren carries id 0, so it alone marks the
		// start of a top-level comment worth classifying.
		if sym.Kind != asm.SymComment || sym.ID != 0 {
			continue
		}
		text, region := commentAt(res, sym.Addr)
		a := Annotation{Text: text, Region: region, Addr: sym.Addr}
		a.Kind = classifyKind(text, r.Custom)
		a.Placement = classifyPlacement(res.Symbols, i)
		out = append(out, a)
		switch a.Kind {
		case IsType:
			if r.OnType != nil {
				r.OnType(a)
			}
		case IsCast:
			if r.OnCast != nil {
				r.OnCast(a)
			}
		case IsCustomAnnotation:
			if r.OnCustom != nil {
				r.OnCustom(a)
			}
		default:
			if r.OnText != nil {
				r.OnText(a)
			}
		}
	}
	return out
}

func commentAt(res asm.Result, addr uint16) (string, source.Region) {
	for _, c := range res.Comments {
		if c.Addr == addr {
			return c.Text, c.Region
		}
	}
	return "", source.Region{}
}

func classifyKind(text string, custom map[string]bool) CommentKind {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return IsText
	}
	first := strings.Fields(trimmed)[0]
	if custom[first] {
		return IsCustomAnnotation
	}
	if strings.HasPrefix(trimmed, "!") {
		return IsCast
	}
	if strings.Contains(trimmed, "--") || strings.Contains(trimmed, "->") {
		if _, matched, err := chess.ParseSignature(trimmed); err == nil && matched {
			return IsType
		}
		return MightBeType
	}
	return IsText
}

// classifyPlacement inspects the symbol immediately preceding the comment
// at index i: a comment sharing a label's address is that label's
// signature (Prefix, it documents the routine about to begin); one
// sharing any other symbol's address is a gloss on that token
// (Immediate); one whose address has moved on from the last non-comment
// symbol is commenting on a separated span of prior code (Postfix).
func classifyPlacement(syms []asm.Symbol, i int) Placement {
	addr := syms[i].Addr
	var prevOther *asm.Symbol
	for j := i - 1; j >= 0; j-- {
		if syms[j].Kind != asm.SymComment {
			prevOther = &syms[j]
			break
		}
	}
	switch {
	case prevOther == nil:
		return Prefix
	case prevOther.Addr == addr && prevOther.Kind == asm.SymLabel:
		return Prefix
	case prevOther.Addr == addr:
		return Immediate
	default:
		return Postfix
	}
}
