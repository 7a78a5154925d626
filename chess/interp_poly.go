package chess

import (
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/vm"
)

// stepPoly executes one of the 31 polymorphic base opcodes against t's
// abstract stacks. keep takes operands from a shadow copy (the real
// contents are left untouched and a fresh copy is pushed back); ret
// swaps which stack is "current" for this instruction; short selects
// 2-byte operand width for the ops for which that varies.
func (c *checker) stepPoly(t *Trace, base byte, keep, ret, short bool, pc uint16) outcome {
	cur, other := c.stacks(t, ret)
	_ = other

	src := cur
	if keep {
		src = cur.Clone()
	}
	pop := func(wide bool) (Value, error) {
		return src.PopWide(wide)
	}

	fail := func(err error) outcome {
		c.report(report.Error, err.Error())
		return outcomeError
	}

	switch base {
	case vm.OpINC:
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		nv := a
		if a.Const {
			nv.ConstValue = a.ConstValue + 1
		} else {
			nv.Const = false
		}
		cur.Push(nv)
	case vm.OpPOP:
		if _, err := pop(short); err != nil {
			return fail(err)
		}
	case vm.OpNIP:
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		if _, err := pop(short); err != nil {
			return fail(err)
		}
		cur.Push(b)
	case vm.OpSWP:
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		cur.Push(b)
		cur.Push(a)
	case vm.OpROT:
		cc, err := pop(short)
		if err != nil {
			return fail(err)
		}
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		cur.Push(b)
		cur.Push(cc)
		cur.Push(a)
	case vm.OpDUP:
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		cur.Push(a)
		cur.Push(a)
	case vm.OpOVR:
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		cur.Push(a)
		cur.Push(b)
		cur.Push(a)
	case vm.OpEQU, vm.OpNEQ, vm.OpGTH, vm.OpLTH:
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		if a.Const && b.Const && a.Forked && b.Forked {
			var v bool
			switch base {
			case vm.OpEQU:
				v = a.ConstValue == b.ConstValue
			case vm.OpNEQ:
				v = a.ConstValue != b.ConstValue
			case vm.OpGTH:
				v = a.ConstValue > b.ConstValue
			case vm.OpLTH:
				v = a.ConstValue < b.ConstValue
			}
			cv := uint16(0)
			if v {
				cv = 1
			}
			cur.Push(Value{Const: true, Forked: true, ConstValue: cv})
		} else {
			cur.Push(Value{Const: true, Forked: true, ConstValue: 1})
			child := c.wl.fork(t)
			childCur, _ := c.stacks(child, ret)
			childCur.vals[len(childCur.vals)-1] = Value{Const: true, Forked: true, ConstValue: 0}
		}
	case vm.OpJMP:
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		if a.EntryReturn {
			if t.Sig.Kind != KindSubroutine {
				c.report(report.Error, "vector performs a subroutine-style return")
				return outcomeError
			}
			return c.finishTrace(t)
		}
		target := jumpTarget(pc, a, short)
		return c.jumpTo(t, pc, target)
	case vm.OpJCN:
		addr, err := pop(short)
		if err != nil {
			return fail(err)
		}
		cond, err := pop(false)
		if err != nil {
			return fail(err)
		}
		target := jumpTarget(pc, addr, short)
		return c.branch(t, pc, cond, target)
	case vm.OpJSR:
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		target := jumpTarget(pc, a, short)
		if err := t.RST.Push(Value{Short: true, ReturnAddr: true, Const: true, ConstValue: t.PC}); err != nil {
			return fail(err)
		}
		return c.jumpTo(t, pc, target)
	case vm.OpSTH:
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		other.Push(a)
	case vm.OpLDZ:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		cur.Push(Value{Short: short})
	case vm.OpSTZ:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		if _, err := pop(short); err != nil {
			return fail(err)
		}
	case vm.OpLDR:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		cur.Push(Value{Short: short})
	case vm.OpSTR:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		if _, err := pop(short); err != nil {
			return fail(err)
		}
	case vm.OpLDA:
		addr, err := pop(true)
		if err != nil {
			return fail(err)
		}
		if !addr.Addr && !addr.Const {
			c.report(report.Warning, "load at non-constant address")
		}
		cur.Push(Value{Short: short})
	case vm.OpSTA:
		addr, err := pop(true)
		if err != nil {
			return fail(err)
		}
		if !addr.Addr && !addr.Const {
			c.report(report.Warning, "store at non-constant address")
		}
		if _, err := pop(short); err != nil {
			return fail(err)
		}
	case vm.OpDEI:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		cur.Push(Value{Short: short})
	case vm.OpDEO:
		if _, err := pop(false); err != nil {
			return fail(err)
		}
		if _, err := pop(short); err != nil {
			return fail(err)
		}
	case vm.OpADD, vm.OpSUB, vm.OpMUL, vm.OpDIV, vm.OpAND, vm.OpORA, vm.OpEOR:
		b, err := pop(short)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		v := Value{Short: short}
		if a.Const && b.Const {
			v.Const = true
			v.ConstValue = binOp(base, a.ConstValue, b.ConstValue)
		}
		cur.Push(v)
	case vm.OpSFT:
		shiftVal, err := pop(false)
		if err != nil {
			return fail(err)
		}
		a, err := pop(short)
		if err != nil {
			return fail(err)
		}
		v := Value{Short: short}
		if a.Const && shiftVal.Const {
			lo := shiftVal.ConstValue & 0x0f
			hi := (shiftVal.ConstValue >> 4) & 0x0f
			v.Const = true
			v.ConstValue = (a.ConstValue >> lo) << hi
		}
		cur.Push(v)
	}
	return outcomeContinue
}

func binOp(base byte, a, b uint16) uint16 {
	switch base {
	case vm.OpADD:
		return a + b
	case vm.OpSUB:
		return a - b
	case vm.OpMUL:
		return a * b
	case vm.OpDIV:
		if b == 0 {
			return 0
		}
		return a / b
	case vm.OpAND:
		return a & b
	case vm.OpORA:
		return a | b
	case vm.OpEOR:
		return a ^ b
	}
	return 0
}

// jumpTarget resolves a's value to an absolute address per JMP/JCN/JSR's
// short/relative rule: short values are absolute, byte values are a
// signed offset from pc+1, the address just past the opcode at pc (where
// the VM's PC points when it applies the jump).
func jumpTarget(pc uint16, a Value, short bool) uint16 {
	if short {
		return a.ConstValue
	}
	return uint16(int32(pc) + 1 + int32(int8(byte(a.ConstValue))))
}
