package asm

import "github.com/davehorner/buxn-sub000/vm"

var mnemonicToBase map[string]byte

func init() {
	mnemonicToBase = make(map[string]byte, len(vm.Mnemonics))
	for base, name := range vm.Mnemonics {
		mnemonicToBase[name] = byte(base)
	}
}

// opcodeBase reports whether the first three characters of tok (a literal
// match, mnemonics are already upper-case by convention) name a base
// opcode.
func opcodeBase(tok string) (base byte, ok bool) {
	if len(tok) < 3 {
		return 0, false
	}
	base, ok = mnemonicToBase[tok[:3]]
	return base, ok
}

// parseOpcodeToken recognizes a full opcode token: the 3-letter mnemonic
// plus an optional suffix drawn from {2,r,k} in any order/repetition.
// BRK accepts no flags. LIT is never spelled directly (it has no
// mnemonic); it is only ever emitted by the literal rune forms.
func parseOpcodeToken(tok string) (op byte, redundant bool, ok bool) {
	base, ok := opcodeBase(tok)
	if !ok {
		return 0, false, false
	}
	suffix := tok[3:]
	if base == 0 && suffix != "" {
		return 0, false, false // BRK takes no flags
	}
	var short, ret, keep bool
	seen := map[byte]bool{}
	for i := 0; i < len(suffix); i++ {
		c := suffix[i]
		switch c {
		case '2':
			if seen['2'] {
				redundant = true
			}
			seen['2'] = true
			short = true
		case 'r':
			if seen['r'] {
				redundant = true
			}
			seen['r'] = true
			ret = true
		case 'k':
			if seen['k'] {
				redundant = true
			}
			seen['k'] = true
			keep = true
		default:
			return 0, false, false
		}
	}
	return vm.Encode(base, keep, ret, short), redundant, true
}
