package vm

import "testing"

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for base := byte(0); base < 32; base++ {
		for flags := 0; flags < 8; flags++ {
			keep := flags&4 != 0
			ret := flags&2 != 0
			short := flags&1 != 0
			op := Encode(base, keep, ret, short)
			gotBase, gotKeep, gotRet, gotShort := Decode(op)
			if gotBase != base || gotKeep != keep || gotRet != ret || gotShort != short {
				t.Fatalf("Decode(Encode(%d,%v,%v,%v)) = %d,%v,%v,%v", base, keep, ret, short, gotBase, gotKeep, gotRet, gotShort)
			}
		}
	}
}

func TestImmediateSelectors(t *testing.T) {
	cases := []struct {
		name               string
		keep, ret, short bool
		want               byte
	}{
		{"BRK", false, false, false, OpcBRK},
		{"JCI", false, false, true, OpcJCI},
		{"JMI", false, true, false, OpcJMI},
		{"JSI", false, true, true, OpcJSI},
		{"LIT", true, false, false, OpcLIT},
		{"LIT2", true, false, true, OpcLIT2},
		{"LITr", true, true, false, OpcLITr},
		{"LIT2r", true, true, true, OpcLIT2r},
	}
	for _, c := range cases {
		got := Encode(OpBRK, c.keep, c.ret, c.short)
		if got != c.want {
			t.Errorf("%s: Encode(BRK,%v,%v,%v) = 0x%02x, want 0x%02x", c.name, c.keep, c.ret, c.short, got, c.want)
		}
	}
}

func TestLiteralsAndArithmetic(t *testing.T) {
	// #01 #02 ADD BRK
	rom := []byte{OpcLIT, 0x01, OpcLIT, 0x02, OpADD, OpcBRK}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.WSDepth() != 1 {
		t.Fatalf("WSDepth() = %d, want 1", m.WSDepth())
	}
	if got := m.WS[0]; got != 3 {
		t.Fatalf("WS[0] = %d, want 3", got)
	}
}

func TestShortArithmetic(t *testing.T) {
	// #0001 #0002 ADD2 BRK
	rom := []byte{
		OpcLIT2, 0x00, 0x01,
		OpcLIT2, 0x00, 0x02,
		Encode(OpADD, false, false, true),
		OpcBRK,
	}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.WSDepth() != 2 {
		t.Fatalf("WSDepth() = %d, want 2", m.WSDepth())
	}
	if hi, lo := m.WS[0], m.WS[1]; hi != 0 || lo != 3 {
		t.Fatalf("WS = %02x%02x, want 0003", hi, lo)
	}
}

func TestKeepFlagLeavesOperands(t *testing.T) {
	// #01 #02 ADDk BRK -- working stack should end with 1,2,3
	rom := []byte{
		OpcLIT, 0x01,
		OpcLIT, 0x02,
		Encode(OpADD, true, false, false),
		OpcBRK,
	}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.WSDepth() != 3 {
		t.Fatalf("WSDepth() = %d, want 3", m.WSDepth())
	}
	if m.WS[0] != 1 || m.WS[1] != 2 || m.WS[2] != 3 {
		t.Fatalf("WS = %v, want [1 2 3]", m.WS[:3])
	}
}

func TestReturnFlagUsesReturnStack(t *testing.T) {
	// LITr 01 LITr 02 ADDr BRK -- working stack untouched, return stack holds 3
	rom := []byte{
		OpcLITr, 0x01,
		OpcLITr, 0x02,
		Encode(OpADD, false, true, false),
		OpcBRK,
	}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.WSDepth() != 0 {
		t.Fatalf("WSDepth() = %d, want 0", m.WSDepth())
	}
	if m.RSDepth() != 1 || m.RS[0] != 3 {
		t.Fatalf("RS = %v, want [3]", m.RS[:m.RSDepth()])
	}
}

func TestSTHMovesAcrossStacks(t *testing.T) {
	// #01 STH BRK -- moves to the stack opposite of the (unset) R flag: RS
	rom := []byte{OpcLIT, 0x01, OpSTH, OpcBRK}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.WSDepth() != 0 {
		t.Fatalf("WSDepth() = %d, want 0", m.WSDepth())
	}
	if m.RSDepth() != 1 || m.RS[0] != 1 {
		t.Fatalf("RS = %v, want [1]", m.RS[:m.RSDepth()])
	}
}

func TestMemoryWraparound(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	top := uint16(len(m.Mem) - 1)
	m.store1(top, 0xaa)
	m.store1(top+1, 0xbb) // wraps to address 0
	if got := m.load1(0); got != 0xbb {
		t.Fatalf("load1(0) = 0x%02x, want 0xbb", got)
	}
	if got := m.load1(top); got != 0xaa {
		t.Fatalf("load1(top) = 0x%02x, want 0xaa", got)
	}
}

func TestZeroPageWraparound(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	m.storez1(0xff, 0x11)
	m.storez2(0xff, 0x2233) // hi at 0xff, lo wraps to 0x00
	if got := m.loadz1(0xff); got != 0x22 {
		t.Fatalf("loadz1(0xff) = 0x%02x, want 0x22", got)
	}
	if got := m.loadz1(0x00); got != 0x33 {
		t.Fatalf("loadz1(0x00) = 0x%02x, want 0x33", got)
	}
}

func TestJSRPushesReturnAddress(t *testing.T) {
	// JSI forward over BRK; only the JSI itself is stepped
	rom := make([]byte, 0x10)
	rom[0] = OpcJSI
	rom[1] = 0x00
	rom[2] = 0x02 // jump forward 2 past the 2-byte offset -> pc 0x0105
	rom[3] = OpcBRK
	rom[4] = 0 // padding; the JSI target 0x0105 is rom[5]
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	// advance one step: JSI pushes return addr (0x0103) and jumps to 0x0105
	m.Step()
	if m.RSDepth() != 2 {
		t.Fatalf("RSDepth() = %d, want 2", m.RSDepth())
	}
	hi, lo := m.RS[0], m.RS[1]
	gotAddr := uint16(hi)<<8 | uint16(lo)
	if gotAddr != ResetVector+3 {
		t.Fatalf("return addr = 0x%04x, want 0x%04x", gotAddr, ResetVector+3)
	}
	if m.PC != ResetVector+5 {
		t.Fatalf("PC = 0x%04x, want 0x%04x", m.PC, ResetVector+5)
	}
}

type stubDevice struct {
	in  uint8
	out []uint8
}

func (s *stubDevice) In(vm *Instance, port uint8) uint8 { return s.in }
func (s *stubDevice) Out(vm *Instance, port uint8)      { s.out = append(s.out, vm.Dev[port]) }

func TestDeviceRoundTrip(t *testing.T) {
	dev := &stubDevice{in: 0x42}
	rom := []byte{
		OpcLIT, 0x99,
		OpcLIT, 0x10, // device port 0x10 (slot 1)
		OpDEO,
		OpcLIT, 0x10,
		OpDEI,
		OpcBRK,
	}
	m, err := New(rom, WithDevice(1, dev))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if len(dev.out) != 1 || dev.out[0] != 0x99 {
		t.Fatalf("dev.out = %v, want [0x99]", dev.out)
	}
	if m.WSDepth() != 1 || m.WS[0] != 0x42 {
		t.Fatalf("WS = %v, want [0x42]", m.WS[:m.WSDepth()])
	}
}

func TestSystemDeviceExitState(t *testing.T) {
	rom := []byte{
		OpcLIT, 0x01,
		OpcLIT, 0x0f, // system device exit-state port
		OpDEO,
		OpcBRK, // should never execute; halted already
	}
	m, err := New(rom)
	if err != nil {
		t.Fatal(err)
	}
	m.Step() // LIT 1
	m.Step() // LIT 0x0f
	m.Step() // DEO -> halts
	if !m.Halted() {
		t.Fatal("expected machine to be halted after writing exit state")
	}
	if got := m.ExitCode(); got != 1 {
		t.Fatalf("ExitCode() = %d, want 1", got)
	}
}

func TestNewRejectsUndersizedMemory(t *testing.T) {
	_, err := New(nil, WithMemSize(1024))
	if err == nil {
		t.Fatal("expected error for undersized memory")
	}
}

func TestHookObservesEveryInstruction(t *testing.T) {
	var pcs []uint16
	rom := []byte{OpcLIT, 0x01, OpcLIT, 0x02, OpADD, OpcBRK}
	m, err := New(rom, WithHook(HookFunc(func(vm *Instance, pc uint16) {
		pcs = append(pcs, pc)
	})))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	want := []uint16{ResetVector, ResetVector + 2, ResetVector + 4, ResetVector + 5}
	if len(pcs) != len(want) {
		t.Fatalf("hook fired %d times, want %d: %v", len(pcs), len(want), pcs)
	}
	for idx, pc := range want {
		if pcs[idx] != pc {
			t.Fatalf("pcs[%d] = 0x%04x, want 0x%04x", idx, pcs[idx], pc)
		}
	}
}
