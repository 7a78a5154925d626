package vm

import "github.com/pkg/errors"

// Run executes instructions until the machine halts (BRK or a non-zero
// exit state written to the system device); there is no instruction limit.
// It returns the error raised by a panicking opcode implementation
// (out-of-bounds memory access, for instance), reporting the program
// counter as it stood at the panic, already advanced past the opcode byte.
func (i *Instance) Run() (err error) {
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(e, "buxn: trap at pc=0x%04x", i.PC)
			default:
				err = errors.Errorf("buxn: trap at pc=0x%04x: %v", i.PC, e)
			}
		}
	}()
	for !i.halted {
		i.Step()
	}
	return nil
}

// Step executes exactly one instruction. It is exported so tooling (a
// debugger, ngarotest-style harnesses) can single-
// step without catching panics on every call; callers wanting panic safety
// should wrap calls in their own recover or use Run.
func (i *Instance) Step() {
	if i.halted {
		return
	}
	if i.hook != nil {
		i.hook.BeforeInstruction(i, i.PC)
	}
	op := i.Mem[i.PC]
	i.PC++
	i.exec(op)
}

// doJump applies an already-popped jump target: short (2-byte pop) means
// absolute, byte means a signed relative offset from the current PC.
func (i *Instance) doJump(addr uint16, short bool) {
	if short {
		i.PC = addr
		return
	}
	i.PC = uint16(int32(i.PC) + int32(int8(uint8(addr))))
}

func (i *Instance) deviceIn(port uint8) byte {
	d := i.devices[port>>4]
	if d == nil {
		return i.Dev[port]
	}
	v := d.In(i, port)
	i.Dev[port] = v
	return v
}

func (i *Instance) deviceOut(port uint8, v byte) {
	i.Dev[port] = v
	if d := i.devices[port>>4]; d != nil {
		d.Out(i, port)
	}
}

// exec dispatches on the full opcode byte. The base-0 octet (BRK, the three
// immediate jumps and the four literal forms) has eight distinct, flagless concrete
// values of its own; every other base opcode is listed across its eight
// K/R/S combinations as compile-time-constant case labels, so the switch
// covers the entire 256-value opcode table directly instead of decoding
// flags first and branching on the decoded booleans afterward. Go lowers a
// dense byte switch like this to a jump table, the same property a
// computed-goto dispatch table gives the original C interpreter.
func (i *Instance) exec(op byte) {
	switch op {
	case OpcBRK:
		i.halted = true
	case OpcJCI:
		cond := i.wsRef().pop()
		addr := i.load2(i.PC)
		i.PC += 2
		if cond != 0 {
			i.PC += addr
		}
	case OpcJMI:
		addr := i.load2(i.PC)
		i.PC = i.PC + 2 + addr
	case OpcJSI:
		i.rsRef().push2(i.PC + 2)
		addr := i.load2(i.PC)
		i.PC = i.PC + 2 + addr
	case OpcLIT:
		v := i.load1(i.PC)
		i.PC++
		i.wsRef().push(v)
	case OpcLIT2:
		v := i.load2(i.PC)
		i.PC += 2
		i.wsRef().push2(v)
	case OpcLITr:
		v := i.load1(i.PC)
		i.PC++
		i.rsRef().push(v)
	case OpcLIT2r:
		v := i.load2(i.PC)
		i.PC += 2
		i.rsRef().push2(v)

	case OpINC, OpINC | FlagKeep, OpINC | FlagReturn, OpINC | FlagKeep | FlagReturn,
		OpINC | FlagShort, OpINC | FlagKeep | FlagShort, OpINC | FlagReturn | FlagShort, OpINC | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		a := pop.popN(short)
		push.pushN(a+1, short)

	case OpPOP, OpPOP | FlagKeep, OpPOP | FlagReturn, OpPOP | FlagKeep | FlagReturn,
		OpPOP | FlagShort, OpPOP | FlagKeep | FlagShort, OpPOP | FlagReturn | FlagShort, OpPOP | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		pop.popN(short)

	case OpNIP, OpNIP | FlagKeep, OpNIP | FlagReturn, OpNIP | FlagKeep | FlagReturn,
		OpNIP | FlagShort, OpNIP | FlagKeep | FlagShort, OpNIP | FlagReturn | FlagShort, OpNIP | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		pop.popN(short)
		push.pushN(b, short)

	case OpSWP, OpSWP | FlagKeep, OpSWP | FlagReturn, OpSWP | FlagKeep | FlagReturn,
		OpSWP | FlagShort, OpSWP | FlagKeep | FlagShort, OpSWP | FlagReturn | FlagShort, OpSWP | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		a := pop.popN(short)
		push.pushN(b, short)
		push.pushN(a, short)

	case OpROT, OpROT | FlagKeep, OpROT | FlagReturn, OpROT | FlagKeep | FlagReturn,
		OpROT | FlagShort, OpROT | FlagKeep | FlagShort, OpROT | FlagReturn | FlagShort, OpROT | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		c := pop.popN(short)
		b := pop.popN(short)
		a := pop.popN(short)
		push.pushN(b, short)
		push.pushN(c, short)
		push.pushN(a, short)

	case OpDUP, OpDUP | FlagKeep, OpDUP | FlagReturn, OpDUP | FlagKeep | FlagReturn,
		OpDUP | FlagShort, OpDUP | FlagKeep | FlagShort, OpDUP | FlagReturn | FlagShort, OpDUP | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		a := pop.popN(short)
		push.pushN(a, short)
		push.pushN(a, short)

	case OpOVR, OpOVR | FlagKeep, OpOVR | FlagReturn, OpOVR | FlagKeep | FlagReturn,
		OpOVR | FlagShort, OpOVR | FlagKeep | FlagShort, OpOVR | FlagReturn | FlagShort, OpOVR | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		a := pop.popN(short)
		push.pushN(a, short)
		push.pushN(b, short)
		push.pushN(a, short)

	case OpEQU, OpEQU | FlagKeep, OpEQU | FlagReturn, OpEQU | FlagKeep | FlagReturn,
		OpEQU | FlagShort, OpEQU | FlagKeep | FlagShort, OpEQU | FlagReturn | FlagShort, OpEQU | FlagKeep | FlagReturn | FlagShort,
		OpNEQ, OpNEQ | FlagKeep, OpNEQ | FlagReturn, OpNEQ | FlagKeep | FlagReturn,
		OpNEQ | FlagShort, OpNEQ | FlagKeep | FlagShort, OpNEQ | FlagReturn | FlagShort, OpNEQ | FlagKeep | FlagReturn | FlagShort,
		OpGTH, OpGTH | FlagKeep, OpGTH | FlagReturn, OpGTH | FlagKeep | FlagReturn,
		OpGTH | FlagShort, OpGTH | FlagKeep | FlagShort, OpGTH | FlagReturn | FlagShort, OpGTH | FlagKeep | FlagReturn | FlagShort,
		OpLTH, OpLTH | FlagKeep, OpLTH | FlagReturn, OpLTH | FlagKeep | FlagReturn,
		OpLTH | FlagShort, OpLTH | FlagKeep | FlagShort, OpLTH | FlagReturn | FlagShort, OpLTH | FlagKeep | FlagReturn | FlagShort:
		base, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		a := pop.popN(short)
		var cond bool
		switch base {
		case OpEQU:
			cond = a == b
		case OpNEQ:
			cond = a != b
		case OpGTH:
			cond = a > b
		case OpLTH:
			cond = a < b
		}
		var v byte
		if cond {
			v = 1
		}
		push.push(v)

	case OpJMP, OpJMP | FlagKeep, OpJMP | FlagReturn, OpJMP | FlagKeep | FlagReturn,
		OpJMP | FlagShort, OpJMP | FlagKeep | FlagShort, OpJMP | FlagReturn | FlagShort, OpJMP | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		a := pop.popN(short)
		i.doJump(a, short)

	case OpJCN, OpJCN | FlagKeep, OpJCN | FlagReturn, OpJCN | FlagKeep | FlagReturn,
		OpJCN | FlagShort, OpJCN | FlagKeep | FlagShort, OpJCN | FlagReturn | FlagShort, OpJCN | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		addr := pop.popN(short)
		cond := pop.popN(false)
		if cond != 0 {
			i.doJump(addr, short)
		}

	case OpJSR, OpJSR | FlagKeep, OpJSR | FlagReturn, OpJSR | FlagKeep | FlagReturn,
		OpJSR | FlagShort, OpJSR | FlagKeep | FlagShort, OpJSR | FlagReturn | FlagShort, OpJSR | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		i.rsRef().push2(i.PC)
		a := pop.popN(short)
		i.doJump(a, short)

	case OpSTH, OpSTH | FlagKeep, OpSTH | FlagReturn, OpSTH | FlagKeep | FlagReturn,
		OpSTH | FlagShort, OpSTH | FlagKeep | FlagShort, OpSTH | FlagReturn | FlagShort, OpSTH | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		a := pop.popN(short)
		i.secondaryRef(ret).pushN(a, short)

	case OpLDZ, OpLDZ | FlagKeep, OpLDZ | FlagReturn, OpLDZ | FlagKeep | FlagReturn,
		OpLDZ | FlagShort, OpLDZ | FlagKeep | FlagShort, OpLDZ | FlagReturn | FlagShort, OpLDZ | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		addr := uint8(pop.popN(false))
		var v uint16
		if short {
			v = i.loadz2(addr)
		} else {
			v = uint16(i.loadz1(addr))
		}
		push.pushN(v, short)

	case OpSTZ, OpSTZ | FlagKeep, OpSTZ | FlagReturn, OpSTZ | FlagKeep | FlagReturn,
		OpSTZ | FlagShort, OpSTZ | FlagKeep | FlagShort, OpSTZ | FlagReturn | FlagShort, OpSTZ | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		addr := uint8(pop.popN(false))
		v := pop.popN(short)
		if short {
			i.storez2(addr, v)
		} else {
			i.storez1(addr, byte(v))
		}

	case OpLDR, OpLDR | FlagKeep, OpLDR | FlagReturn, OpLDR | FlagKeep | FlagReturn,
		OpLDR | FlagShort, OpLDR | FlagKeep | FlagShort, OpLDR | FlagReturn | FlagShort, OpLDR | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		off := uint8(pop.popN(false))
		addr := relAddr(i.PC, off)
		var v uint16
		if short {
			v = i.load2(addr)
		} else {
			v = uint16(i.load1(addr))
		}
		push.pushN(v, short)

	case OpSTR, OpSTR | FlagKeep, OpSTR | FlagReturn, OpSTR | FlagKeep | FlagReturn,
		OpSTR | FlagShort, OpSTR | FlagKeep | FlagShort, OpSTR | FlagReturn | FlagShort, OpSTR | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		off := uint8(pop.popN(false))
		v := pop.popN(short)
		addr := relAddr(i.PC, off)
		if short {
			i.store2(addr, v)
		} else {
			i.store1(addr, byte(v))
		}

	case OpLDA, OpLDA | FlagKeep, OpLDA | FlagReturn, OpLDA | FlagKeep | FlagReturn,
		OpLDA | FlagShort, OpLDA | FlagKeep | FlagShort, OpLDA | FlagReturn | FlagShort, OpLDA | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		addr := pop.popN(true)
		var v uint16
		if short {
			v = i.load2(addr)
		} else {
			v = uint16(i.load1(addr))
		}
		push.pushN(v, short)

	case OpSTA, OpSTA | FlagKeep, OpSTA | FlagReturn, OpSTA | FlagKeep | FlagReturn,
		OpSTA | FlagShort, OpSTA | FlagKeep | FlagShort, OpSTA | FlagReturn | FlagShort, OpSTA | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		addr := pop.popN(true)
		v := pop.popN(short)
		if short {
			i.store2(addr, v)
		} else {
			i.store1(addr, byte(v))
		}

	case OpDEI, OpDEI | FlagKeep, OpDEI | FlagReturn, OpDEI | FlagKeep | FlagReturn,
		OpDEI | FlagShort, OpDEI | FlagKeep | FlagShort, OpDEI | FlagReturn | FlagShort, OpDEI | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		dv := uint8(pop.popN(false))
		var v uint16
		if short {
			hi := i.deviceIn(dv)
			lo := i.deviceIn(dv + 1)
			v = uint16(hi)<<8 | uint16(lo)
		} else {
			v = uint16(i.deviceIn(dv))
		}
		push.pushN(v, short)

	case OpDEO, OpDEO | FlagKeep, OpDEO | FlagReturn, OpDEO | FlagKeep | FlagReturn,
		OpDEO | FlagShort, OpDEO | FlagKeep | FlagShort, OpDEO | FlagReturn | FlagShort, OpDEO | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, _ := i.polyRefs(ret, keep)
		dv := uint8(pop.popN(false))
		v := pop.popN(short)
		if short {
			i.deviceOut(dv, byte(v>>8))
			i.deviceOut(dv+1, byte(v))
		} else {
			i.deviceOut(dv, byte(v))
		}

	case OpADD, OpADD | FlagKeep, OpADD | FlagReturn, OpADD | FlagKeep | FlagReturn,
		OpADD | FlagShort, OpADD | FlagKeep | FlagShort, OpADD | FlagReturn | FlagShort, OpADD | FlagKeep | FlagReturn | FlagShort,
		OpSUB, OpSUB | FlagKeep, OpSUB | FlagReturn, OpSUB | FlagKeep | FlagReturn,
		OpSUB | FlagShort, OpSUB | FlagKeep | FlagShort, OpSUB | FlagReturn | FlagShort, OpSUB | FlagKeep | FlagReturn | FlagShort,
		OpMUL, OpMUL | FlagKeep, OpMUL | FlagReturn, OpMUL | FlagKeep | FlagReturn,
		OpMUL | FlagShort, OpMUL | FlagKeep | FlagShort, OpMUL | FlagReturn | FlagShort, OpMUL | FlagKeep | FlagReturn | FlagShort,
		OpAND, OpAND | FlagKeep, OpAND | FlagReturn, OpAND | FlagKeep | FlagReturn,
		OpAND | FlagShort, OpAND | FlagKeep | FlagShort, OpAND | FlagReturn | FlagShort, OpAND | FlagKeep | FlagReturn | FlagShort,
		OpORA, OpORA | FlagKeep, OpORA | FlagReturn, OpORA | FlagKeep | FlagReturn,
		OpORA | FlagShort, OpORA | FlagKeep | FlagShort, OpORA | FlagReturn | FlagShort, OpORA | FlagKeep | FlagReturn | FlagShort,
		OpEOR, OpEOR | FlagKeep, OpEOR | FlagReturn, OpEOR | FlagKeep | FlagReturn,
		OpEOR | FlagShort, OpEOR | FlagKeep | FlagShort, OpEOR | FlagReturn | FlagShort, OpEOR | FlagKeep | FlagReturn | FlagShort:
		base, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		a := pop.popN(short)
		var c uint16
		switch base {
		case OpADD:
			c = a + b
		case OpSUB:
			c = a - b
		case OpMUL:
			c = a * b
		case OpAND:
			c = a & b
		case OpORA:
			c = a | b
		case OpEOR:
			c = a ^ b
		}
		push.pushN(c, short)

	case OpDIV, OpDIV | FlagKeep, OpDIV | FlagReturn, OpDIV | FlagKeep | FlagReturn,
		OpDIV | FlagShort, OpDIV | FlagKeep | FlagShort, OpDIV | FlagReturn | FlagShort, OpDIV | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		b := pop.popN(short)
		a := pop.popN(short)
		var c uint16
		if b != 0 {
			c = a / b
		}
		push.pushN(c, short)

	case OpSFT, OpSFT | FlagKeep, OpSFT | FlagReturn, OpSFT | FlagKeep | FlagReturn,
		OpSFT | FlagShort, OpSFT | FlagKeep | FlagShort, OpSFT | FlagReturn | FlagShort, OpSFT | FlagKeep | FlagReturn | FlagShort:
		_, keep, ret, short := Decode(op)
		pop, push := i.polyRefs(ret, keep)
		shift := uint8(pop.popN(false))
		a := pop.popN(short)
		c := (a >> (shift & 0x0f)) << ((shift & 0xf0) >> 4)
		push.pushN(c, short)
	}
}

// polyRefs resolves the pop/push stackRefs for a polymorphic opcode: push
// always targets the real stack pointer (selected by ret); pop targets a
// shadow copy of it instead when keep is set, leaving the real values
// untouched.
func (i *Instance) polyRefs(ret, keep bool) (pop, push stackRef) {
	primary := i.primaryRef(ret)
	var shadow uint8
	return popRef(primary, keep, &shadow), primary
}
