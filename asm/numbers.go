package asm

import "github.com/pkg/errors"

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
}

func hexVal(b byte) uint16 {
	if b >= '0' && b <= '9' {
		return uint16(b - '0')
	}
	return uint16(b-'a') + 10
}

// parseHex parses the digits following a '#' literal rune: 1-4 lower-case
// hex digits only, where 1-2 digits select a byte and 3-4 digits select a
// short. Any other length, or a non-hex digit, is rejected.
func parseHex(digits string) (value uint16, short bool, err error) {
	n := len(digits)
	if n == 0 || n > 4 {
		return 0, false, errors.Errorf("invalid hex literal %q", digits)
	}
	for i := 0; i < n; i++ {
		if !isHexDigit(digits[i]) {
			return 0, false, errors.Errorf("invalid hex literal %q", digits)
		}
	}
	var v uint16
	for i := 0; i < n; i++ {
		v = v<<4 | hexVal(digits[i])
	}
	return v, n > 2, nil
}

// parseDecimal parses a bare token starting with one or two '+' signs: one
// '+' selects a byte literal (<=255), two selects a short literal
// (<=65535).
func parseDecimal(tok string) (value uint16, short bool, err error) {
	n := 0
	for n < len(tok) && tok[n] == '+' {
		n++
	}
	if n == 0 || n > 2 {
		return 0, false, errors.Errorf("invalid decimal literal %q", tok)
	}
	digits := tok[n:]
	if digits == "" {
		return 0, false, errors.Errorf("invalid decimal literal %q", tok)
	}
	var v int64
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false, errors.Errorf("invalid decimal literal %q", tok)
		}
		v = v*10 + int64(c-'0')
		if v > 0xffff {
			return 0, false, errors.Errorf("decimal literal %q out of range", tok)
		}
	}
	if n == 1 {
		if v > 0xff {
			return 0, false, errors.Errorf("decimal literal %q does not fit in a byte", tok)
		}
		return uint16(v), false, nil
	}
	return uint16(v), true, nil
}

// parseBareNumber recognizes a bare (non-runic, non-'+') token as a plain
// hex number emitted raw (no LIT prefix): 1-2 digits for a byte, 3-4 for a
// short, same digit-count rule as parseHex.
func parseBareNumber(tok string) (value uint16, short bool, ok bool) {
	n := len(tok)
	if n == 0 || n > 4 {
		return 0, false, false
	}
	for i := 0; i < n; i++ {
		if !isHexDigit(tok[i]) {
			return 0, false, false
		}
	}
	v, s, err := parseHex(tok)
	if err != nil {
		return 0, false, false
	}
	return v, s, true
}
