package asm_test

import (
	"strings"
	"testing"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/vm"
)

func assemble(t *testing.T, src string) (asm.Result, *report.Collector) {
	t.Helper()
	var c report.Collector
	res, ok := asm.Assemble("test.tal", strings.NewReader(src), &c, nil)
	if ok != c.OK() {
		t.Fatalf("Assemble ok=%v but collector.OK()=%v", ok, c.OK())
	}
	return res, &c
}

func assembleOK(t *testing.T, src string) asm.Result {
	t.Helper()
	res, c := assemble(t, src)
	if !c.OK() {
		t.Fatalf("assembly of %q failed: %v", src, c.Errors())
	}
	return res
}

// S1: an empty label assembles to a zero-length ROM with one
// "unreferenced symbol" warning.
func TestEmptyLabel(t *testing.T) {
	res, c := assemble(t, "@scope")
	if !c.OK() {
		t.Fatalf("unexpected errors: %v", c.Errors())
	}
	if len(res.ROM) != 0 {
		t.Fatalf("ROM = %v, want empty", res.ROM)
	}
	found := false
	for _, r := range c.Reports {
		if r.Severity == report.Warning && strings.Contains(r.Message, "unreferenced") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unreferenced-symbol warning, got %v", c.Reports)
	}
}

// S2: a literal round-trip exits with the low byte of the literal.
func TestLiteralRoundTrip(t *testing.T) {
	res := assembleOK(t, "|0100 #1234 #0f DEO BRK")
	m, err := vm.New(res.ROM)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := m.ExitCode(); got != 0x34 {
		t.Fatalf("ExitCode() = 0x%02x, want 0x34", got)
	}
}

// S3: a JCI skipping a lambda body assembles, and with a false condition
// falls through to BRK without the lambda body's DEO firing.
func TestLambdaBalance(t *testing.T) {
	res := assembleOK(t, "|0100 #00 ?{ #01 #0f DEO } BRK")
	m, err := vm.New(res.ROM)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := m.ExitCode(); got != -1 {
		t.Fatalf("ExitCode() = %d, want -1 (never written)", got)
	}
}

// S4: a macro consuming a positional argument.
func TestMacroWithArgument(t *testing.T) {
	res := assembleOK(t, "%M: { #* } M: 02 #0f DEO BRK")
	m, err := vm.New(res.ROM)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := m.ExitCode(); got != 0x02 {
		t.Fatalf("ExitCode() = 0x%02x, want 0x02", got)
	}
}

// S7: any write pointer below the reset vector after padding is an error.
func TestPaddingBelowResetVectorIsError(t *testing.T) {
	_, c := assemble(t, "|00ff #00 BRK")
	if c.OK() {
		t.Fatal("expected an error for a write below the reset vector")
	}
}

func TestDuplicateLabelIsError(t *testing.T) {
	_, c := assemble(t, "@foo BRK @foo BRK")
	if c.OK() {
		t.Fatal("expected an error for a duplicate label definition")
	}
}

func TestUnresolvedReferenceIsError(t *testing.T) {
	_, c := assemble(t, "missing")
	if c.OK() {
		t.Fatal("expected an error for a reference to an undefined label")
	}
}

func TestLocalLabelScoping(t *testing.T) {
	res := assembleOK(t, "@outer &inner BRK ,outer/inner BRK")
	if len(res.ROM) == 0 {
		t.Fatal("expected non-empty ROM")
	}
}

func TestZeroPageReference(t *testing.T) {
	res := assembleOK(t, "|00 @var |0100 .var BRK")
	// LIT (0x80), then the zero-page byte address of @var (0x00), then BRK
	// (0x00); trailing zero bytes are trimmed from the image, so only LIT
	// remains.
	want := []byte{0x80}
	if len(res.ROM) != len(want) {
		t.Fatalf("ROM = % x, want % x", res.ROM, want)
	}
	if res.ROM[0] != 0x80 {
		t.Fatalf("ROM = % x, want LIT", res.ROM)
	}
}

func TestRedundantFlagWarning(t *testing.T) {
	_, c := assemble(t, "|0100 ADDkk BRK")
	found := false
	for _, r := range c.Reports {
		if r.Severity == report.Warning && strings.Contains(r.Message, "redundant") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a redundant-flag warning, got %v", c.Reports)
	}
}

// An anonymous backward label ("@@") followed by a reference to it ("," +
// bare "@") resolves to a negative (backward) relative offset from the
// reference site.
func TestAnonymousBackwardLabel(t *testing.T) {
	res := assembleOK(t, "|0100 @@ INC ,@ JMP")
	// INC is 1 byte; LIT (,@ emits LIT then the relative byte) is 2 bytes;
	// JMP is 1 byte. The relative byte must be negative (jumps backward
	// past JMP's own byte, LIT's 2 bytes and INC's 1 byte, i.e. -4 relative
	// to the address just past JMP, where the VM's PC points when JMP
	// applies it).
	if len(res.ROM) != 4 {
		t.Fatalf("ROM = % x, want 4 bytes", res.ROM)
	}
	if res.ROM[0] != byte(vm.OpINC) {
		t.Fatalf("ROM[0] = 0x%02x, want INC", res.ROM[0])
	}
	if res.ROM[1] != 0x80 {
		t.Fatalf("ROM[1] = 0x%02x, want LIT opcode 0x80", res.ROM[1])
	}
	rel := int8(res.ROM[2])
	if rel >= 0 {
		t.Fatalf("relative byte = %d, want a negative (backward) offset", rel)
	}
}
