package chess

import (
	"strings"

	"github.com/pkg/errors"
)

// Param is one declared stack element in a signature: a name, a size, an
// address flag, and (if the name begins with an upper-case letter) a
// nominal type.
type Param struct {
	Name    string
	Short   bool
	Addr    bool
	Nominal string // non-empty if Name starts upper-case
}

// Kind distinguishes a subroutine signature (expects an implicit return
// address on the return stack) from a vector signature (none, must not
// return).
type Kind int

const (
	KindSubroutine Kind = iota
	KindVector
)

// Signature is one parsed stack-effect annotation.
type Signature struct {
	WSTIn, RSTIn   []Param
	WSTOut, RSTOut []Param
	Kind           Kind
	Sealed         bool
}

// parseParam parses one element token: "name[*]?" or "[name]*?".
func parseParam(tok string) (Param, error) {
	p := Param{Name: tok}
	if strings.HasPrefix(tok, "[") {
		end := strings.IndexByte(tok, ']')
		if end < 0 {
			return p, errors.Errorf("unterminated address element %q", tok)
		}
		p.Addr = true
		p.Name = tok[1:end]
		if end+1 < len(tok) && tok[end+1] == '*' {
			p.Short = true
		}
	} else if strings.HasSuffix(tok, "*") {
		p.Short = true
		p.Name = tok[:len(tok)-1]
	}
	if len(p.Name) > 0 && p.Name[0] >= 'A' && p.Name[0] <= 'Z' {
		p.Nominal = p.Name
	}
	return p, nil
}

func parseParams(field string) ([]Param, error) {
	if field == "" {
		return nil, nil
	}
	fields := strings.Fields(field)
	out := make([]Param, 0, len(fields))
	for _, f := range fields {
		p, err := parseParam(f)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseSignature parses the stack-effect grammar:
//
//	wst_in ( . rst_in )? ( -- | -> ) wst_out ( . rst_out )?
//
// with an optional trailing "!" marking the signature sealed.
func ParseSignature(text string) (Signature, bool, error) {
	text = strings.TrimSpace(text)
	sealed := false
	if strings.HasSuffix(text, "!") {
		sealed = true
		text = strings.TrimSpace(text[:len(text)-1])
	}
	var kind Kind
	var sepIdx int
	var sepLen int
	if i := strings.Index(text, "--"); i >= 0 {
		kind = KindSubroutine
		sepIdx, sepLen = i, 2
	} else if i := strings.Index(text, "->"); i >= 0 {
		kind = KindVector
		sepIdx, sepLen = i, 2
	} else {
		return Signature{}, false, nil
	}
	inField := strings.TrimSpace(text[:sepIdx])
	outField := strings.TrimSpace(text[sepIdx+sepLen:])

	wstIn, rstIn, err := splitStacks(inField)
	if err != nil {
		return Signature{}, true, err
	}
	wstOut, rstOut, err := splitStacks(outField)
	if err != nil {
		return Signature{}, true, err
	}
	wIn, err := parseParams(wstIn)
	if err != nil {
		return Signature{}, true, err
	}
	rIn, err := parseParams(rstIn)
	if err != nil {
		return Signature{}, true, err
	}
	wOut, err := parseParams(wstOut)
	if err != nil {
		return Signature{}, true, err
	}
	rOut, err := parseParams(rstOut)
	if err != nil {
		return Signature{}, true, err
	}
	return Signature{
		WSTIn: wIn, RSTIn: rIn, WSTOut: wOut, RSTOut: rOut,
		Kind: kind, Sealed: sealed,
	}, true, nil
}

// splitStacks splits "wst . rst" into its two fields; a lone field is the
// working stack only.
func splitStacks(field string) (wst, rst string, err error) {
	if i := strings.IndexByte(field, '.'); i >= 0 {
		return strings.TrimSpace(field[:i]), strings.TrimSpace(field[i+1:]), nil
	}
	return field, "", nil
}

// Cast is a local, position-keyed stack-state override: the declared
// elements replace whatever is already on top of the abstract stacks,
// without requiring (or checking) that what's being replaced was
// assignable to them. Casts have no output half of their own and never
// touch a routine's signature.
type Cast struct {
	WST, RST []Param
}

// ParseCast parses the inline-cast grammar: a leading "!" followed by
// "wst ( . rst )?", with no "--"/"->" separator (a cast overwrites what's
// there, it doesn't describe a transformation with its own output).
func ParseCast(text string) (Cast, bool, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return Cast{}, false, nil
	}
	text = strings.TrimSpace(text[1:])
	wstField, rstField, err := splitStacks(text)
	if err != nil {
		return Cast{}, true, err
	}
	wst, err := parseParams(wstField)
	if err != nil {
		return Cast{}, true, err
	}
	rst, err := parseParams(rstField)
	if err != nil {
		return Cast{}, true, err
	}
	return Cast{WST: wst, RST: rst}, true, nil
}

// assignable reports whether actual may be passed where param is declared.
//
// "Routine-declared" (spec.md's assignability rule) has no dedicated
// grammar marker; this grammar already lets "[Name]" combine the address
// and nominal-type markers ("[name]" for address, leading upper-case for
// nominal), so a param declared that way is read as "an address that
// must name the routine Name" and checked against actual.Routine, the tag
// an address-of-a-signature-bearing-label literal carries (see
// chess/interp.go's LIT/LIT2 door lookup).
func assignable(actual Value, param Param) bool {
	if param.Addr {
		if !(actual.Addr || actual.Const) {
			return false
		}
		if param.Nominal != "" && !actual.Routine {
			return false
		}
	}
	if param.Nominal != "" {
		if actual.Nomial == "" {
			return false
		}
		if !strings.HasPrefix(actual.Nomial, param.Nominal) {
			return false
		}
	}
	return actual.Size() == paramSize(param)
}

func paramSize(p Param) int {
	if p.Short {
		return 2
	}
	return 1
}
