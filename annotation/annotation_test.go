package annotation_test

import (
	"strings"
	"testing"

	"github.com/davehorner/buxn-sub000/annotation"
	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
)

func assembleOK(t *testing.T, src string) asm.Result {
	t.Helper()
	var c report.Collector
	res, ok := asm.Assemble("test.tal", strings.NewReader(src), &c, nil)
	if !ok {
		t.Fatalf("assembly failed: %v", c.Errors())
	}
	return res
}

func TestSignatureCommentClassifiedAsPrefixType(t *testing.T) {
	res := assembleOK(t, "|0100 @main ( a -- b ) DUP BRK")
	r := annotation.NewRouter()
	var types []annotation.Annotation
	r.OnType = func(a annotation.Annotation) { types = append(types, a) }
	r.Route(res)

	if len(types) != 1 {
		t.Fatalf("got %d type annotations, want 1", len(types))
	}
	if types[0].Placement != annotation.Prefix {
		t.Fatalf("got placement %v, want Prefix", types[0].Placement)
	}
}

func TestImmediateCommentAfterMark(t *testing.T) {
	res := assembleOK(t, "|0100 ] ( side note ) DUP BRK")
	r := annotation.NewRouter()
	var texts []annotation.Annotation
	r.OnText = func(a annotation.Annotation) { texts = append(texts, a) }
	r.Route(res)

	if len(texts) != 1 {
		t.Fatalf("got %d text annotations, want 1", len(texts))
	}
	if texts[0].Placement != annotation.Immediate {
		t.Fatalf("got placement %v, want Immediate", texts[0].Placement)
	}
}

func TestCustomAnnotationDispatched(t *testing.T) {
	res := assembleOK(t, "|0100 ( author wrote this ) @main BRK")
	r := annotation.NewRouter("author")
	var custom []annotation.Annotation
	r.OnCustom = func(a annotation.Annotation) { custom = append(custom, a) }
	r.Route(res)

	if len(custom) != 1 {
		t.Fatalf("got %d custom annotations, want 1", len(custom))
	}
	if custom[0].Kind != annotation.IsCustomAnnotation {
		t.Fatalf("got kind %v, want IsCustomAnnotation", custom[0].Kind)
	}
}

func TestCastCommentClassifiedAsCast(t *testing.T) {
	res := assembleOK(t, "|0100 @main ( -- a ) #01 ( !a ) JMP2r")
	r := annotation.NewRouter()
	var casts []annotation.Annotation
	r.OnCast = func(a annotation.Annotation) { casts = append(casts, a) }
	r.Route(res)

	if len(casts) != 1 {
		t.Fatalf("got %d cast annotations, want 1", len(casts))
	}
	if casts[0].Kind != annotation.IsCast {
		t.Fatalf("got kind %v, want IsCast", casts[0].Kind)
	}
}

func TestPlainTextCommentIsText(t *testing.T) {
	res := assembleOK(t, "|0100 ( just a note ) @main BRK")
	r := annotation.NewRouter()
	var texts []annotation.Annotation
	r.OnText = func(a annotation.Annotation) { texts = append(texts, a) }
	r.Route(res)

	if len(texts) != 1 {
		t.Fatalf("got %d text annotations, want 1", len(texts))
	}
	if texts[0].Kind != annotation.IsText {
		t.Fatalf("got kind %v, want IsText", texts[0].Kind)
	}
}
