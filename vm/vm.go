// Package vm implements a threaded interpreter for the 16-bit stack
// machine: two 256-byte stacks, a 256-byte device page, and a flat linear
// memory of at least 64 KiB. Opcodes are single bytes: a 5-bit base
// operation plus three independent flag bits (keep, return-stack, short).
//
// The dispatch loop follows the teacher's (ngaro) straight-line switch
// over every concrete opcode value rather than decode-then-branch, so the
// compiler can lower it to a jump table the way a computed-goto would in C.
package vm

import "github.com/pkg/errors"

// Sizes of the machine's fixed-size regions.
const (
	StackSize      = 256
	DevicePageSize = 256
	MinMemSize     = 1 << 16
	ResetVector    = 0x0100
)

// Flag bits packed into the high three bits of an opcode byte.
const (
	FlagShort  byte = 0x20 // S: operate on 2-byte values
	FlagReturn byte = 0x40 // R: operate on the return stack instead of the working stack
	FlagKeep   byte = 0x80 // K: don't consume the popped operands
)

// Base opcodes occupy the low 5 bits of the opcode byte. Base 0 is special:
// when combined with flags it does not mean "BRK with flags" but instead
// selects one of the eight no-base-operand instructions (BRK, the three
// immediate jumps and the four literal opcodes), indexed by the 3-bit flag
// pattern.
const (
	OpBRK byte = iota
	OpINC
	OpPOP
	OpNIP
	OpSWP
	OpROT
	OpDUP
	OpOVR
	OpEQU
	OpNEQ
	OpGTH
	OpLTH
	OpJMP
	OpJCN
	OpJSR
	OpSTH
	OpLDZ
	OpSTZ
	OpLDR
	OpSTR
	OpLDA
	OpSTA
	OpDEI
	OpDEO
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpAND
	OpORA
	OpEOR
	OpSFT
)

// Mnemonics, indexed by base opcode value (0-31). Used by the assembler for
// recognition and by disassembly tools.
var Mnemonics = [32]string{
	"BRK", "INC", "POP", "NIP", "SWP", "ROT", "DUP", "OVR",
	"EQU", "NEQ", "GTH", "LTH", "JMP", "JCN", "JSR", "STH",
	"LDZ", "STZ", "LDR", "STR", "LDA", "STA", "DEI", "DEO",
	"ADD", "SUB", "MUL", "DIV", "AND", "ORA", "EOR", "SFT",
}

// The concrete byte values of the 8 base-0 ("no argument stack pop before
// selection") opcodes, selected by the 3-bit flag pattern (K<<2 | R<<1 | S).
const (
	OpcBRK   = 0x00
	OpcJCI   = 0x20
	OpcJMI   = 0x40
	OpcJSI   = 0x60
	OpcLIT   = 0x80
	OpcLIT2  = 0xa0
	OpcLITr  = 0xc0
	OpcLIT2r = 0xe0
)

// Decode splits an opcode byte into its base operation and flags.
func Decode(op byte) (base byte, keep, ret, short bool) {
	return op & 0x1f, op&FlagKeep != 0, op&FlagReturn != 0, op&FlagShort != 0
}

// Encode packs a base opcode and flags back into a byte. It is the inverse
// of Decode: Decode(Encode(base, k, r, s)) == (base, k, r, s) for every
// base in [0, 31].
func Encode(base byte, keep, ret, short bool) byte {
	v := base & 0x1f
	if keep {
		v |= FlagKeep
	}
	if ret {
		v |= FlagReturn
	}
	if short {
		v |= FlagShort
	}
	return v
}

// Device is an I/O device occupying one 16-port slot of the device page.
// In is called on a DEI before the value already stored at Dev[port] is
// pushed, and may override it by returning a different value (or by
// mutating Dev directly, in which case it should return the same byte
// that was stored). Out is called after a DEO has already written its
// value(s) into the device page, so the handler can react to the write.
type Device interface {
	In(vm *Instance, port uint8) uint8
	Out(vm *Instance, port uint8)
}

// Hook is invoked before every instruction is executed. It is the single
// suspension point the debugger attaches to; a nil hook costs one branch
// per instruction.
type Hook interface {
	BeforeInstruction(vm *Instance, pc uint16)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(vm *Instance, pc uint16)

// BeforeInstruction implements Hook.
func (f HookFunc) BeforeInstruction(vm *Instance, pc uint16) { f(vm, pc) }

// Instance is one machine: stacks, memory, device page, and program
// counter. There is no shared mutable state between instances.
type Instance struct {
	Mem []byte // linear memory, len(Mem) >= MinMemSize
	Dev [DevicePageSize]byte
	WS  [StackSize]byte // working stack
	RS  [StackSize]byte // return stack

	wsp uint8
	rsp uint8
	PC  uint16

	devices [16]Device
	hook    Hook
	halted  bool
	system  systemDevice

	// OnMetadata, OnThemeChanged and OnDebug are optional callbacks for the
	// system device's metadata pointer, palette registers, and debug pin.
	// Screen/window presentation is an external collaborator (out of
	// scope); these let one be attached without the vm package depending
	// on it.
	OnMetadata     func(addr uint16)
	OnThemeChanged func()
	OnDebug        func(v byte)
}

// Option configures an Instance at construction time.
type Option func(*Instance)

// WithMemSize overrides the default 64 KiB memory size; sizes smaller than
// MinMemSize are rejected by New.
func WithMemSize(n int) Option {
	return func(i *Instance) { i.Mem = make([]byte, n) }
}

// WithDevice registers a device handler for device slot n (1-15; slot 0 is
// reserved for the built-in system device).
func WithDevice(n uint8, d Device) Option {
	return func(i *Instance) {
		if n == 0 {
			return
		}
		i.devices[n&0x0f] = d
	}
}

// WithHook attaches a debugger hook invoked before every instruction.
func WithHook(h Hook) Option {
	return func(i *Instance) { i.hook = h }
}

// New creates a machine instance. rom is copied starting at ResetVector;
// the reset vector (0x0100) becomes the initial program counter.
func New(rom []byte, opts ...Option) (*Instance, error) {
	i := &Instance{PC: ResetVector}
	for _, opt := range opts {
		opt(i)
	}
	if i.Mem == nil {
		i.Mem = make([]byte, MinMemSize)
	}
	if len(i.Mem) < MinMemSize {
		return nil, errors.Errorf("memory size %d below minimum %d", len(i.Mem), MinMemSize)
	}
	if len(rom)+ResetVector > len(i.Mem) {
		return nil, errors.Errorf("rom of %d bytes does not fit at 0x%04x in %d bytes of memory", len(rom), ResetVector, len(i.Mem))
	}
	copy(i.Mem[ResetVector:], rom)
	i.system.vm = i
	i.devices[0] = &i.system
	return i, nil
}

// WSDepth returns the number of bytes on the working stack.
func (i *Instance) WSDepth() int { return int(i.wsp) }

// RSDepth returns the number of bytes on the return stack.
func (i *Instance) RSDepth() int { return int(i.rsp) }

// Halted reports whether the machine has executed BRK or had a non-zero
// exit state written to the system device.
func (i *Instance) Halted() bool { return i.halted }

// ExitCode returns the process-style exit code recorded by the system
// device, or -1 if none was set.
func (i *Instance) ExitCode() int {
	st := i.Dev[0x0f]
	if st == 0 {
		return -1
	}
	return int(st & 0x7f)
}
