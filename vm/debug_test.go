package vm

import "testing"

// An exec breakpoint installed on a Debugger and attached via WithHook is
// observed through the ordinary Run/Step dispatch path (vm/run.go's
// Step -> Hook.BeforeInstruction call), exactly as a real debugger front
// end would use it.
func TestDebuggerExecBreakpointViaStep(t *testing.T) {
	rom := []byte{OpcLIT, 0x01, OpcLIT, 0x02, OpADD, OpcBRK}
	d := NewDebugger()
	d.SetBreakpoint(0, Breakpoint{Addr: ResetVector + 4, Flags: BrkpExec})

	m, err := New(rom, WithHook(d))
	if err != nil {
		t.Fatal(err)
	}

	m.Step() // LIT 1
	if _, _, ok := d.Paused(); ok {
		t.Fatal("unexpected pause before the breakpoint address")
	}
	m.Step() // LIT 2
	if _, _, ok := d.Paused(); ok {
		t.Fatal("unexpected pause before the breakpoint address")
	}
	m.Step() // ADD, hook observes pc == the breakpoint address first
	pc, id, ok := d.Paused()
	if !ok || pc != ResetVector+4 || id != 0 {
		t.Fatalf("Paused() = (0x%04x, %d, %v), want (0x%04x, 0, true)", pc, id, ok, ResetVector+4)
	}

	d.Resume()
	if _, _, ok := d.Paused(); ok {
		t.Fatal("Resume should clear the pause flag")
	}
	m.Step() // BRK
	if !m.Halted() {
		t.Fatal("expected machine to halt after the breakpointed instruction ran to completion")
	}
}

func TestDebuggerStepIntoPausesEveryInstruction(t *testing.T) {
	rom := []byte{OpcLIT, 0x01, OpcLIT, 0x02, OpADD, OpcBRK}
	d := NewDebugger()
	m, err := New(rom, WithHook(d))
	if err != nil {
		t.Fatal(err)
	}

	for idx, want := range []uint16{ResetVector, ResetVector + 2, ResetVector + 4, ResetVector + 5} {
		d.StepInto()
		m.Step()
		pc, _, ok := d.Paused()
		if !ok || pc != want {
			t.Fatalf("step %d: Paused() = (0x%04x, %v), want (0x%04x, true)", idx, pc, ok, want)
		}
	}
}

// StepOverNext arranges a pause once the return stack unwinds back to (or
// stays at) the depth recorded when it was requested, so a call made from
// that depth runs to completion unobserved.
func TestDebuggerStepOver(t *testing.T) {
	m := &Instance{}
	d := NewDebugger()

	m.rsp = 2
	d.StepOverNext(m) // baseDepth = 2

	m.rsp = 4 // now inside a nested call
	d.BeforeInstruction(m, 0x150)
	if _, _, ok := d.Paused(); ok {
		t.Fatal("should not pause while the return stack is deeper than the call-site depth")
	}

	m.rsp = 2 // the call has returned
	d.BeforeInstruction(m, 0x108)
	pc, id, ok := d.Paused()
	if !ok || pc != 0x108 || id != BrkpNone {
		t.Fatalf("Paused() = (0x%04x, %d, %v), want a depth-triggered pause at 0x108", pc, id, ok)
	}
}

// StepOutOf pauses only once the return stack becomes strictly shallower
// than it was when requested (the enclosing routine has returned).
func TestDebuggerStepOut(t *testing.T) {
	m := &Instance{}
	d := NewDebugger()

	m.rsp = 4
	d.StepOutOf(m) // baseDepth = 4

	m.rsp = 4
	d.BeforeInstruction(m, 0x150)
	if _, _, ok := d.Paused(); ok {
		t.Fatal("should not pause until the routine actually returns")
	}

	m.rsp = 2
	d.BeforeInstruction(m, 0x108)
	pc, _, ok := d.Paused()
	if !ok || pc != 0x108 {
		t.Fatalf("Paused() = (0x%04x, %v), want a pause once the depth unwound below baseDepth", pc, ok)
	}
}

func TestDebuggerCheckMemAndDev(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(3, Breakpoint{Addr: 0x0200, Flags: BrkpStore})
	d.SetBreakpoint(4, Breakpoint{Addr: 0x10, Flags: BrkpDev | BrkpLoad})

	if id, hit := d.CheckMem(0x0200, true); !hit || id != 3 {
		t.Fatalf("CheckMem(store) = (%d, %v), want (3, true)", id, hit)
	}
	if _, hit := d.CheckMem(0x0200, false); hit {
		t.Fatal("a store-only breakpoint must not match a load")
	}
	if id, hit := d.CheckDev(0x10, false); !hit || id != 4 {
		t.Fatalf("CheckDev(load) = (%d, %v), want (4, true)", id, hit)
	}
	if _, hit := d.CheckDev(0x10, true); hit {
		t.Fatal("a load-only device breakpoint must not match a store")
	}
}
