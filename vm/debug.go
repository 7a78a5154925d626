package vm

// Breakpoint flag bits, packed the way the wire protocol packs them: bit 0
// selects memory (0) vs device (1) space, bits 1-4 are independent trigger
// conditions that can be OR'd together on one address.
const (
	BrkpDev   = 1 << 0
	BrkpPause = 1 << 1
	BrkpExec  = 1 << 2
	BrkpLoad  = 1 << 3
	BrkpStore = 1 << 4

	// BrkpNone marks an unused breakpoint slot.
	BrkpNone = 0xff
)

// Breakpoint is one entry of a Debugger's table: addr is a memory address
// or a device port depending on the BrkpDev bit of Flags.
type Breakpoint struct {
	Addr  uint16
	Flags uint8
}

// StepMode controls how a Debugger's hook decides to pause.
type StepMode int

const (
	// StepNone runs freely until a breakpoint or an explicit pause request.
	StepNone StepMode = iota
	// StepIn pauses before the very next instruction.
	StepIn
	// StepOver pauses before the next instruction at the same return-stack
	// depth or shallower (so a JSR's callee runs to completion unpaused).
	StepOver
	// StepOut pauses once the return stack becomes shallower than it was
	// when the mode was requested (the current routine has returned).
	StepOut
)

// Debugger is a Hook implementation providing breakpoints and the
// step-in/over/out/resume command set. Unlike the C reference it has no
// wire encoding of its own; Pending reports why Step paused so a caller can
// relay that over whatever transport it likes (see the symtab and
// annotation packages for the on-disk/wire encodings this pairs with).
type Debugger struct {
	Breakpoints [256]Breakpoint

	mode      StepMode
	baseDepth int
	paused    bool
	pausedPC  uint16
	brkpHit   uint8
}

// NewDebugger returns a Debugger with an empty breakpoint table.
func NewDebugger() *Debugger {
	d := &Debugger{brkpHit: BrkpNone}
	for i := range d.Breakpoints {
		d.Breakpoints[i].Flags = BrkpNone
	}
	return d
}

// RequestPause arranges for the next BeforeInstruction call to pause,
// regardless of breakpoints or step mode.
func (d *Debugger) RequestPause() { d.mode = StepIn }

// SetBreakpoint installs or clears breakpoint slot id (0-255).
func (d *Debugger) SetBreakpoint(id uint8, bp Breakpoint) {
	d.Breakpoints[id] = bp
}

// Breakpoint returns breakpoint slot id.
func (d *Debugger) Breakpoint(id uint8) Breakpoint {
	return d.Breakpoints[id]
}

// Resume clears any pause and lets the machine run freely.
func (d *Debugger) Resume() { d.mode = StepNone; d.paused = false }

// StepInto arranges for the machine to pause before the next instruction.
func (d *Debugger) StepInto() { d.mode = StepIn; d.paused = false }

// StepOverNext arranges for the machine to pause once it returns to the
// current return-stack depth or above, skipping over any call at pc.
func (d *Debugger) StepOverNext(vm *Instance) {
	d.mode = StepOver
	d.baseDepth = vm.RSDepth()
	d.paused = false
}

// StepOutOf arranges for the machine to pause once the current routine
// returns (the return stack becomes shallower than it is now).
func (d *Debugger) StepOutOf(vm *Instance) {
	d.mode = StepOut
	d.baseDepth = vm.RSDepth()
	d.paused = false
}

// Paused reports whether the last BeforeInstruction call decided to pause,
// the PC it paused at, and the id of the breakpoint responsible (or
// BrkpNone for a step-mode pause or an explicit RequestPause).
func (d *Debugger) Paused() (pc uint16, brkpID uint8, ok bool) {
	return d.pausedPC, d.brkpHit, d.paused
}

// BeforeInstruction implements Hook. It evaluates exec breakpoints and step
// mode against pc; memory/device breakpoints are evaluated by CheckMem and
// CheckDev, which a caller wires into the vm's load/store and device paths
// by running the interpreter one Step at a time under its supervision.
func (d *Debugger) BeforeInstruction(m *Instance, pc uint16) {
	d.brkpHit = BrkpNone
	for id, bp := range d.Breakpoints {
		if bp.Flags == BrkpNone || bp.Flags&BrkpDev != 0 || bp.Flags&BrkpExec == 0 {
			continue
		}
		if bp.Addr == pc {
			d.brkpHit = uint8(id)
			break
		}
	}
	switch {
	case d.brkpHit != BrkpNone:
		d.paused = true
	case d.mode == StepIn:
		d.paused = true
	case d.mode == StepOver && m.RSDepth() <= d.baseDepth:
		d.paused = true
	case d.mode == StepOut && m.RSDepth() < d.baseDepth:
		d.paused = true
	default:
		d.paused = false
	}
	if d.paused {
		d.pausedPC = pc
		d.mode = StepNone
	}
}

// CheckMem reports whether a memory breakpoint matches a load or store at
// addr. write selects store vs load triggers. Callers that need memory/
// device watchpoints invoke this around their own load1/store1 calls,
// since the Hook interface only fires per-instruction.
func (d *Debugger) CheckMem(addr uint16, write bool) (brkpID uint8, hit bool) {
	want := uint8(BrkpLoad)
	if write {
		want = BrkpStore
	}
	for id, bp := range d.Breakpoints {
		if bp.Flags == BrkpNone || bp.Flags&BrkpDev != 0 {
			continue
		}
		if bp.Flags&want != 0 && bp.Addr == addr {
			return uint8(id), true
		}
	}
	return BrkpNone, false
}

// CheckDev is CheckMem's counterpart for device port watchpoints.
func (d *Debugger) CheckDev(port uint8, write bool) (brkpID uint8, hit bool) {
	want := uint8(BrkpLoad)
	if write {
		want = BrkpStore
	}
	for id, bp := range d.Breakpoints {
		if bp.Flags == BrkpNone || bp.Flags&BrkpDev == 0 {
			continue
		}
		if bp.Flags&want != 0 && bp.Addr == uint16(port) {
			return uint8(id), true
		}
	}
	return BrkpNone, false
}
