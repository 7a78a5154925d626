package chess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackPushPopByte(t *testing.T) {
	s := &Stack{}
	require.NoError(t, s.Push(Value{Name: "a", Const: true, ConstValue: 5}))
	v, err := s.PopByte()
	require.NoError(t, err)
	require.Equal(t, "a", v.Name)
	require.Equal(t, 0, s.Depth())
}

func TestStackPopByteUnderflow(t *testing.T) {
	s := &Stack{}
	_, err := s.PopByte()
	require.Error(t, err)
}

// Property 4: splitting a short into halves and pushing both halves
// adjacent reconstructs the whole, preserving semantic bits.
func TestShortSplitAndRejoin(t *testing.T) {
	s := &Stack{}
	whole := Value{Name: "n", Short: true, Const: true, ConstValue: 0x1234, Forked: true}
	require.NoError(t, s.Push(whole))

	lo, err := s.PopByte()
	require.NoError(t, err)
	require.True(t, lo.HalfLo)
	require.Equal(t, uint16(0x34), lo.ConstValue)

	hi, err := s.PopByte()
	require.NoError(t, err)
	require.True(t, hi.HalfHi)
	require.Equal(t, uint16(0x12), hi.ConstValue)
	require.Equal(t, 0, s.Depth())

	require.NoError(t, s.Push(hi))
	require.NoError(t, s.Push(lo))

	rejoined, err := s.PopWide(true)
	require.NoError(t, err)
	require.True(t, rejoined.Short)
	require.True(t, rejoined.Const)
	require.Equal(t, uint16(0x1234), rejoined.ConstValue)
	require.True(t, rejoined.Forked)
}

// Two independently pushed byte literals are not a matching split pair;
// a wide pop over them must still drop both bytes, matching the VM's
// unconditional two-byte pop2 (vm/stack.go), not just the top one.
func TestPopWideNonMatchingHalvesDropsBoth(t *testing.T) {
	s := &Stack{}
	require.NoError(t, s.Push(Value{Const: true, ConstValue: 0x12}))
	require.NoError(t, s.Push(Value{Const: true, ConstValue: 0x34}))

	_, err := s.PopWide(true)
	require.NoError(t, err)
	require.Equal(t, 0, s.Depth())
	require.Equal(t, 0, s.Size())
}

func TestStackOverflow(t *testing.T) {
	s := &Stack{}
	for i := 0; i < 256; i++ {
		require.NoError(t, s.Push(Value{}))
	}
	require.Error(t, s.Push(Value{}))
}

// Two halves that are each individually Half-tagged but came from two
// distinct splits (different Whole pointers) must not silently merge into
// one bogus whole value.
func TestJoinHalvesRejectsMismatchedWholes(t *testing.T) {
	hi1, _ := splitShort(Value{Short: true, Const: true, ConstValue: 0x1234})
	_, lo2 := splitShort(Value{Short: true, Const: true, ConstValue: 0x5678})

	_, ok := joinHalves(hi1, lo2)
	require.False(t, ok)
}

func TestMatchesOut(t *testing.T) {
	s := &Stack{}
	require.NoError(t, s.Push(Value{Const: true}))
	want := []Param{{Name: "x"}}
	require.True(t, s.MatchesOut(want))
	require.False(t, s.MatchesOut([]Param{{Name: "x"}, {Name: "y"}}))
}
