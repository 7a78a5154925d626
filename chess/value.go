// Package chess performs whole-program abstract interpretation of an
// assembled image against developer-supplied stack-effect signatures,
// forking and joining traces across conditional branches and
// short-circuiting through already-verified routines.
package chess

import "github.com/davehorner/buxn-sub000/internal/source"

// Value is one abstract stack slot. Semantic bits are tracked independently
// so splits (short -> two bytes) and joins (two bytes -> short) can
// propagate constant-ness, address-ness and nominal typing through either
// half.
type Value struct {
	Name   string
	Nomial string // nominal type name, empty if not nominally typed
	Region source.Region

	Short       bool
	Const       bool
	Addr        bool
	ReturnAddr  bool
	EntryReturn bool // set only on the synthetic return value a trace is seeded with; popping it means the trace has nothing left to return into
	Routine     bool
	Forked      bool
	HalfHi      bool
	HalfLo      bool
	Whole       *Value // set on HalfHi/HalfLo, points at the value that was split
	ConstValue  uint16
}

// Size reports the value's width in bytes.
func (v Value) Size() int {
	if v.Short {
		return 2
	}
	return 1
}

// Nominal reports whether v carries a nominal type name.
func (v Value) Nominal() bool { return v.Nomial != "" }

// splitShort breaks a short value into its two half-values (hi, lo),
// each pointing back at the whole. Constant-ness, address-ness, and
// forked-ness are inherited by both halves.
func splitShort(v Value) (hi, lo Value) {
	whole := v
	hi = Value{
		Name: v.Name, Nomial: v.Nomial, Region: v.Region,
		Const: v.Const, Addr: v.Addr, ReturnAddr: v.ReturnAddr,
		Forked: v.Forked, HalfHi: true, Whole: &whole,
	}
	lo = Value{
		Name: v.Name, Nomial: v.Nomial, Region: v.Region,
		Const: v.Const, Addr: v.Addr, ReturnAddr: v.ReturnAddr,
		Forked: v.Forked, HalfLo: true, Whole: &whole,
	}
	if v.Const {
		hi.ConstValue = v.ConstValue >> 8
		lo.ConstValue = v.ConstValue & 0xff
	}
	return hi, lo
}

// joinHalves reconstructs a whole short value from adjacent hi/lo halves
// of the same whole, if they match; ok is false if they do not form a pair
// (in which case the caller should treat them as two independent bytes).
func joinHalves(hi, lo Value) (Value, bool) {
	if !hi.HalfHi || !lo.HalfLo || hi.Whole == nil || lo.Whole == nil || hi.Whole != lo.Whole {
		return Value{}, false
	}
	w := *hi.Whole
	w.Short = true
	w.Forked = hi.Forked && lo.Forked
	return w, true
}
