package chess

import "github.com/pkg/errors"

// Stack is a fixed-capacity (256-byte) abstract stack: an element list plus
// a running byte-size total, mirroring the VM's 8-bit wrapping stack
// pointer without actually wrapping (overflow is a checker error, not
// silently-wrapped behavior).
type Stack struct {
	vals []Value
	size int
}

// Depth returns the number of logical elements (not bytes) on the stack.
func (s *Stack) Depth() int { return len(s.vals) }

// Size returns the total byte size currently on the stack.
func (s *Stack) Size() int { return s.size }

// Clone returns an independent copy, used when a trace forks.
func (s *Stack) Clone() *Stack {
	cp := make([]Value, len(s.vals))
	copy(cp, s.vals)
	return &Stack{vals: cp, size: s.size}
}

// Push appends v, growing the stack.
func (s *Stack) Push(v Value) error {
	if s.size+v.Size() > 256 {
		return errors.New("stack overflow")
	}
	s.vals = append(s.vals, v)
	s.size += v.Size()
	return nil
}

// PopByte pops one byte's worth of value. If the top element is a short, it
// is split in place: the low half is returned and the high half is pushed
// back (matching the VM's byte-addressable stack-pointer semantics).
func (s *Stack) PopByte() (Value, error) {
	if len(s.vals) == 0 {
		return Value{}, errors.New("stack underflow")
	}
	top := s.vals[len(s.vals)-1]
	if !top.Short {
		s.vals = s.vals[:len(s.vals)-1]
		s.size -= top.Size()
		return top, nil
	}
	hi, lo := splitShort(top)
	s.vals[len(s.vals)-1] = hi
	s.size -= 1
	return lo, nil
}

// PopWide pops a full value: if short, pops the whole 2-byte value; if
// byte, pops one byte. Used by opcodes that are always short (LDA/STA) or
// that operate on whatever size is on top (most base opcodes under the S
// flag).
func (s *Stack) PopWide(short bool) (Value, error) {
	if !short {
		return s.PopByte()
	}
	if len(s.vals) == 0 {
		return Value{}, errors.New("stack underflow")
	}
	top := s.vals[len(s.vals)-1]
	if top.Short {
		s.vals = s.vals[:len(s.vals)-1]
		s.size -= top.Size()
		return top, nil
	}
	// Top is a lone byte; attempt to join it with the byte beneath it.
	lo := top
	if len(s.vals) < 2 {
		s.vals = s.vals[:len(s.vals)-1]
		s.size -= 1
		lo.Short = true
		return lo, nil
	}
	hi := s.vals[len(s.vals)-2]
	if w, ok := joinHalves(hi, lo); ok {
		s.vals = s.vals[:len(s.vals)-2]
		s.size -= 2
		return w, nil
	}
	// hi and lo don't form a legitimate whole (e.g. two independently
	// pushed byte literals under a short-mode op): the real VM's pop2
	// still unconditionally drops two bytes, so both elements must go
	// even though no whole value comes out of it.
	s.vals = s.vals[:len(s.vals)-2]
	s.size -= 2
	lo.Short = true
	return lo, nil
}

// Peek returns the top n values without popping, in stack order: index 0
// is the deepest of the n and the last index is the topmost.
func (s *Stack) Peek(n int) []Value {
	if n > len(s.vals) {
		n = len(s.vals)
	}
	return s.vals[len(s.vals)-n:]
}

// MatchesOut reports whether s's current contents are assignable to want's
// declared output stack, top element aligned to top element.
func (s *Stack) MatchesOut(want []Param) bool {
	if len(s.vals) != len(want) {
		return false
	}
	for i, p := range want {
		if !assignable(s.vals[i], p) {
			return false
		}
	}
	return true
}
