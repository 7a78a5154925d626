package chess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSignatureSubroutine(t *testing.T) {
	sig, matched, err := ParseSignature("a b -- c")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, KindSubroutine, sig.Kind)
	require.False(t, sig.Sealed)
	require.Len(t, sig.WSTIn, 2)
	require.Len(t, sig.WSTOut, 1)
}

func TestParseSignatureVector(t *testing.T) {
	sig, matched, err := ParseSignature("a* -> b*")
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, KindVector, sig.Kind)
	require.True(t, sig.WSTIn[0].Short)
	require.True(t, sig.WSTOut[0].Short)
}

func TestParseSignatureSealed(t *testing.T) {
	sig, matched, err := ParseSignature("a -- b !")
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, sig.Sealed)
}

func TestParseSignatureWithReturnStack(t *testing.T) {
	sig, matched, err := ParseSignature("a . r -- b . s")
	require.NoError(t, err)
	require.True(t, matched)
	require.Len(t, sig.RSTIn, 1)
	require.Len(t, sig.RSTOut, 1)
}

func TestParseSignatureNonSignatureComment(t *testing.T) {
	_, matched, err := ParseSignature("just a free-text comment")
	require.NoError(t, err)
	require.False(t, matched)
}

func TestParseSignatureAddressAndNominalParam(t *testing.T) {
	sig, matched, err := ParseSignature("[Suits/Heart] -- x")
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, sig.WSTIn[0].Addr)
	require.Equal(t, "Suits/Heart", sig.WSTIn[0].Nominal)
}

func TestAssignableNominalPrefix(t *testing.T) {
	param := Param{Name: "Suits/", Nominal: "Suits/"}
	actual := Value{Nomial: "Suits/Heart"}
	require.True(t, assignable(actual, param))

	other := Value{Nomial: "Ranks/Ace"}
	require.False(t, assignable(other, param))
}

func TestAssignableAddressAcceptsConstant(t *testing.T) {
	param := Param{Name: "x", Addr: true}
	require.True(t, assignable(Value{Const: true}, param))
	require.True(t, assignable(Value{Addr: true}, param))
	require.False(t, assignable(Value{}, param))
}
