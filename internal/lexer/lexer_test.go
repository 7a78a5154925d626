package lexer_test

import (
	"io"
	"strings"
	"testing"

	"github.com/davehorner/buxn-sub000/internal/lexer"
	"github.com/davehorner/buxn-sub000/internal/source"
)

func collect(t *testing.T, src string) []string {
	t.Helper()
	in := source.NewInterner()
	l := lexer.New(in)
	l.PushFile("test.tal", strings.NewReader(src))
	var out []string
	for {
		tok, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, tok.Text)
	}
	return out
}

func TestRegularTokenSplit(t *testing.T) {
	got := collect(t, "@foo BRK ,bar")
	want := []string{"@foo", "BRK", ",bar"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLongString(t *testing.T) {
	got := collect(t, `" hello world"`)
	if len(got) != 1 {
		t.Fatalf("got %v, want one token", got)
	}
	if got[0] != "\"hello world" {
		t.Fatalf("got %q, want %q", got[0], "\"hello world")
	}
}

func TestLongStringAllowsNewline(t *testing.T) {
	got := collect(t, "\" a\nb\"")
	if len(got) != 1 || got[0] != "\"a\nb" {
		t.Fatalf("got %v", got)
	}
}

func TestRegularTokenTooLong(t *testing.T) {
	in := source.NewInterner()
	l := lexer.New(in)
	l.PushFile("test.tal", strings.NewReader(strings.Repeat("a", lexer.MaxRegularToken+1)))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected a token-too-long error")
	}
}

func TestLongStringTooLong(t *testing.T) {
	in := source.NewInterner()
	l := lexer.New(in)
	l.PushFile("test.tal", strings.NewReader(`" `+strings.Repeat("a", lexer.MaxLongString+1)+`"`))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected a string-too-long error")
	}
}

func TestLineEndingNormalization(t *testing.T) {
	in := source.NewInterner()
	l := lexer.New(in)
	l.PushFile("test.tal", strings.NewReader("a\r\nb\rc\nd"))
	var lines []int
	for {
		tok, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, tok.Region.Start.Line)
	}
	want := []int{1, 2, 3, 4}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("got %v, want %v", lines, want)
		}
	}
}

func TestMacroExpansionSubstitution(t *testing.T) {
	in := source.NewInterner()
	l := lexer.New(in)
	templ := []lexer.Token{{Text: "#*"}, {Text: "prefix-*-suffix"}}
	l.PushMacro(templ, func(s string) string { return strings.ReplaceAll(s, "*", "02") })
	var got []string
	for {
		tok, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, tok.Text)
	}
	want := []string{"#02", "prefix-02-suffix"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNestedUnitsPopCorrectly(t *testing.T) {
	in := source.NewInterner()
	l := lexer.New(in)
	l.PushFile("outer.tal", strings.NewReader("a b"))
	l.PushMacro([]lexer.Token{{Text: "m1"}}, nil)
	var got []string
	for {
		tok, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, tok.Text)
	}
	want := []string{"m1", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
