package chess

import (
	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/vm"
)

// image is the read-only byte view an abstract trace steps over; ROM is
// the assembler's trimmed image (ROM[0] is address asm.ResetVector).
type image struct {
	rom []byte
}

func (img *image) byteAt(addr uint16) (byte, bool) {
	idx := int(addr) - asm.ResetVector
	if idx < 0 || idx >= len(img.rom) {
		return 0, false
	}
	return img.rom[idx], true
}

func (img *image) wordAt(addr uint16) (uint16, bool) {
	hi, ok := img.byteAt(addr)
	if !ok {
		return 0, false
	}
	lo, ok := img.byteAt(addr + 1)
	if !ok {
		return 0, false
	}
	return uint16(hi)<<8 | uint16(lo), true
}

// outcome reports how a trace's step ended this round.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeTerminated
	outcomeError
)

// checker threads the worklist, image, address-info map and sink through
// every step of every trace belonging to one Verify call.
type checker struct {
	img   *image
	infos map[uint16]*AddressInfo
	casts map[uint16]Cast
	sink  report.Sink
	wl    worklist

	// results, keyed by AddressInfo, tracks whether any trace for that
	// entry reached a successful termination or an error, for the final
	// non-terminating-routine sweep.
	terminatedOK map[*AddressInfo]bool
	hadError     map[*AddressInfo]bool
}

func (c *checker) report(sev report.Severity, msg string) {
	c.sink.Report(report.Report{Severity: sev, Message: msg})
}

// step executes one instruction of t and returns how the trace concluded.
// New forks are pushed directly onto c.wl; t is mutated in place for the
// non-forking, continuing case.
func (c *checker) step(t *Trace) outcome {
	// A cast comment shares its address with whatever token follows it (the
	// assembler's write pointer has already moved past the expression the
	// cast applies to by the time the comment is scanned), so it is applied
	// as a state overwrite right before the instruction at that address
	// runs, the same way shortCircuit intercepts a call before stepping
	// into it.
	if cast, ok := c.casts[t.PC]; ok {
		if o := c.applyCast(t, cast); o == outcomeError {
			return outcomeError
		}
	}

	op, ok := c.img.byteAt(t.PC)
	if !ok {
		c.report(report.Error, "execution ran into a non-opcode region")
		return outcomeError
	}
	pc := t.PC
	t.PC++
	base, keep, ret, short := vm.Decode(op)

	if base == 0 {
		return c.stepImmediate(t, op, pc)
	}
	return c.stepPoly(t, base, keep, ret, short, pc)
}

func (c *checker) stacks(t *Trace, ret bool) (cur, other *Stack) {
	if ret {
		return t.RST, t.WST
	}
	return t.WST, t.RST
}

func (c *checker) stepImmediate(t *Trace, op byte, pc uint16) outcome {
	switch op {
	case vm.OpcBRK:
		if t.Sig.Kind == KindSubroutine {
			c.report(report.Error, "subroutine uses BRK")
			return outcomeError
		}
		return c.finishTrace(t)
	case vm.OpcJCI:
		cond, err := t.WST.PopByte()
		if err != nil {
			c.report(report.Error, err.Error())
			return outcomeError
		}
		off, ok := c.img.wordAt(t.PC)
		if !ok {
			c.report(report.Error, "jump target out of range")
			return outcomeError
		}
		t.PC += 2
		return c.branch(t, pc, cond, t.PC+off)
	case vm.OpcJMI:
		off, ok := c.img.wordAt(t.PC)
		if !ok {
			c.report(report.Error, "jump target out of range")
			return outcomeError
		}
		t.PC += 2
		return c.jumpTo(t, pc, t.PC+off)
	case vm.OpcJSI:
		off, ok := c.img.wordAt(t.PC)
		if !ok {
			c.report(report.Error, "jump target out of range")
			return outcomeError
		}
		ret := t.PC + 2
		t.PC = ret
		if err := t.RST.Push(Value{Short: true, ReturnAddr: true, Const: true, ConstValue: ret}); err != nil {
			c.report(report.Error, err.Error())
			return outcomeError
		}
		return c.jumpTo(t, pc, ret+off)
	case vm.OpcLIT:
		b, ok := c.img.byteAt(t.PC)
		if !ok {
			c.report(report.Error, "literal out of range")
			return outcomeError
		}
		t.PC++
		t.WST.Push(c.literalValue(uint16(b), false))
		return outcomeContinue
	case vm.OpcLIT2:
		w, ok := c.img.wordAt(t.PC)
		if !ok {
			c.report(report.Error, "literal out of range")
			return outcomeError
		}
		t.PC += 2
		t.WST.Push(c.literalValue(w, true))
		return outcomeContinue
	case vm.OpcLITr:
		b, ok := c.img.byteAt(t.PC)
		if !ok {
			c.report(report.Error, "literal out of range")
			return outcomeError
		}
		t.PC++
		t.RST.Push(c.literalValue(uint16(b), false))
		return outcomeContinue
	case vm.OpcLIT2r:
		w, ok := c.img.wordAt(t.PC)
		if !ok {
			c.report(report.Error, "literal out of range")
			return outcomeError
		}
		t.PC += 2
		t.RST.Push(c.literalValue(w, true))
		return outcomeContinue
	}
	return outcomeContinue
}

// literalValue builds the abstract value a LIT/LIT2/LITr/LIT2r pushes. If
// v is the address of a signature-bearing label, the pushed value is a
// "door" onto that label: it inherits the label's name, nominal identity
// and routine tag instead of being a bare constant, so an address pushed
// by literal (e.g. ";my-routine") and later passed to a call can satisfy
// a Routine- or nominally-typed parameter the same way a direct reference
// would (original_source/src/asm/chess.c's buxn_chess_LIT).
func (c *checker) literalValue(v uint16, short bool) Value {
	if info, ok := c.infos[v]; ok && info.HasSig {
		return Value{
			Name: info.Name, Nomial: info.Name,
			Addr: true, Const: true, ConstValue: v,
			Routine: info.Routine, Short: short,
		}
	}
	return Value{Short: short, Const: true, ConstValue: v}
}

// branch implements JCN/JCI forking: a condition that is not a forked
// constant splits the trace into a taken and fall-through continuation;
// a forked boolean follows only the matching branch.
func (c *checker) branch(t *Trace, fromPC uint16, cond Value, target uint16) outcome {
	if cond.Const && cond.Forked {
		if cond.ConstValue != 0 {
			return c.jumpTo(t, fromPC, target)
		}
		return outcomeContinue
	}
	child := c.wl.fork(t)
	child.PC = target
	o := c.trackArc(child, fromPC, target)
	if o != outcomeContinue {
		// trackArc already concluded the taken branch (a repeated arc or a
		// short-circuited call), so it must not be stepped again.
		c.wl.pending = c.wl.pending[:len(c.wl.pending)-1]
	}
	if o == outcomeError {
		return outcomeError
	}
	return outcomeContinue
}

func (c *checker) jumpTo(t *Trace, fromPC, target uint16) outcome {
	return c.trackArc(t, fromPC, target)
}

// trackArc records the (from,to) arc on t; a second visit to the same arc
// terminates the trace (one loop traversal applies the effect, a second
// applied at the fixpoint confirms idempotence).
func (c *checker) trackArc(t *Trace, from, to uint16) outcome {
	a := arc{from, to}
	if t.Arcs[a] {
		return c.finishTrace(t)
	}
	t.Arcs[a] = true
	t.PC = to
	if info, ok := c.infos[to]; ok && info.Routine {
		return c.shortCircuit(t, info)
	}
	return outcomeContinue
}

// shortCircuit applies info's signature directly instead of stepping into
// its body: check the current state against its inputs, then either
// terminate (vector) or pop the return address and continue (subroutine).
func (c *checker) shortCircuit(t *Trace, info *AddressInfo) outcome {
	if !info.HasSig {
		return outcomeContinue
	}
	sig := info.Signature
	if !checkAtLeast(t.WST, sig.WSTIn) {
		c.report(report.Error, "call to "+info.Name+" does not satisfy its input signature")
		c.hadError[info] = true
		return outcomeError
	}
	popParams(t.WST, sig.WSTIn)
	pushParams(t.WST, sig.WSTOut)
	if sig.Kind == KindVector {
		return c.finishTrace(t)
	}
	// The call site (JSI/JSR) already pushed the synthetic return address
	// onto t.RST before reaching here; sig.RSTIn/RSTOut describe the
	// caller's return-stack arguments beneath it, not the return address
	// itself, so it is popped first, the RST accounting runs on what lies
	// beneath it, and the popped value then serves as the continuation.
	retVal, err := t.RST.PopWide(true)
	if err != nil {
		c.report(report.Error, "subroutine call without a return address")
		return outcomeError
	}
	if !checkAtLeast(t.RST, sig.RSTIn) {
		c.report(report.Error, "call to "+info.Name+" does not satisfy its input signature")
		c.hadError[info] = true
		return outcomeError
	}
	popParams(t.RST, sig.RSTIn)
	pushParams(t.RST, sig.RSTOut)
	if retVal.EntryReturn {
		return c.finishTrace(t)
	}
	t.PC = retVal.ConstValue
	return outcomeContinue
}

func checkAtLeast(s *Stack, want []Param) bool {
	if s.Depth() < len(want) {
		return false
	}
	top := s.Peek(len(want))
	for i, p := range want {
		if !assignable(top[i], p) {
			return false
		}
	}
	return true
}

// popParams removes the elements a short-circuited call consumes, deepest
// declared parameter last (it was pushed by the caller before the ones
// above it, so it is popped only after everything shallower than it).
func popParams(s *Stack, in []Param) {
	for i := len(in) - 1; i >= 0; i-- {
		s.PopWide(in[i].Short)
	}
}

// pushParams pushes a short-circuited call's declared outputs, in the
// order they are written (leftmost/deepest first).
func pushParams(s *Stack, out []Param) {
	for _, p := range out {
		s.Push(Value{Short: p.Short, Nomial: p.Nominal, Addr: p.Addr})
	}
}

// finishTrace checks the current state against the entry signature and
// records success/failure for the post-worklist termination sweep.
func (c *checker) finishTrace(t *Trace) outcome {
	sig := t.Sig
	okOut := t.WST.MatchesOut(sig.WSTOut)
	if sig.Kind == KindSubroutine {
		okOut = okOut && t.RST.MatchesOut(sig.RSTOut)
	} else if t.RST.Depth() != 0 {
		okOut = false
	}
	if !okOut {
		c.report(report.Error, "stack state at termination does not match the signature for "+t.Entry.Name)
		c.hadError[t.Entry] = true
		return outcomeError
	}
	c.terminatedOK[t.Entry] = true
	return outcomeTerminated
}
