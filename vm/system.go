package vm

// systemDevice implements the device page's reserved slot 0. Unlike every
// other device (an external collaborator per this repo's scope, contract
// only) the system device is always present and handled internally: stack
// pointer mirrors, palette/metadata registers, the memory "expansion"
// command, the debug pin, and the exit state byte that halts the machine.
type systemDevice struct {
	vm *Instance
}

// Ports within the system device's 16-port slot.
const (
	sysVectorHi    = 0x00
	sysExpAddrHi   = 0x02
	sysExpAddrLo   = 0x03
	sysWSP         = 0x04
	sysRSP         = 0x05
	sysMetaAddrHi  = 0x06
	sysMetaAddrLo  = 0x07
	sysRedHi       = 0x08
	sysRedLo       = 0x09
	sysGreenHi     = 0x0a
	sysGreenLo     = 0x0b
	sysBlueHi      = 0x0c
	sysBlueLo      = 0x0d
	sysDebug       = 0x0e
	sysState       = 0x0f
)

func (s *systemDevice) In(vm *Instance, port uint8) uint8 {
	switch port {
	case sysWSP:
		return vm.wsp
	case sysRSP:
		return vm.rsp
	default:
		return vm.Dev[port]
	}
}

func (s *systemDevice) Out(vm *Instance, port uint8) {
	switch port {
	case sysExpAddrLo:
		s.expansion(vm)
	case sysWSP:
		vm.wsp = vm.Dev[port]
	case sysRSP:
		vm.rsp = vm.Dev[port]
	case sysMetaAddrLo:
		if vm.OnMetadata != nil {
			vm.OnMetadata(vm.dev2(sysMetaAddrHi))
		}
	case sysRedLo, sysGreenLo, sysBlueLo:
		if vm.OnThemeChanged != nil {
			vm.OnThemeChanged()
		}
	case sysDebug:
		if v := vm.Dev[port]; v != 0 && vm.OnDebug != nil {
			vm.OnDebug(v)
		}
	case sysState:
		if vm.Dev[port] != 0 {
			vm.halted = true
		}
	}
}

// dev2 reads a big-endian 16-bit value from the device page at addr,addr+1.
func (i *Instance) dev2(addr uint8) uint16 {
	return uint16(i.Dev[addr])<<8 | uint16(i.Dev[addr+1])
}

// expansion implements the System/expansion command: a small opcode stream
// stored in memory at the address held in device ports 0x02-0x03, used for
// bulk memset and copy across (possibly beyond-64KiB) memory banks.
func (s *systemDevice) expansion(vm *Instance) {
	opAddr := vm.dev2(sysExpAddrHi)
	op := vm.load1(opAddr)
	length := uint32(vm.load2(opAddr + 1))
	size := uint32(len(vm.Mem))

	clamp := func(v uint32) uint32 {
		if v > size {
			return size
		}
		return v
	}
	bankAddr := func(bank, addr uint16) uint32 {
		return clamp(uint32(bank)*0x10000 + uint32(addr))
	}

	switch op {
	case 0x00: // fill
		bank := vm.load2(opAddr + 3)
		addr := vm.load2(opAddr + 5)
		fill := vm.load1(opAddr + 7)
		start := bankAddr(bank, addr)
		end := clamp(start + length)
		for p := start; p < end; p++ {
			vm.Mem[p] = fill
		}
	case 0x01, 0x02: // copy forward / backward
		srcBank := vm.load2(opAddr + 3)
		srcAddr := vm.load2(opAddr + 5)
		dstBank := vm.load2(opAddr + 7)
		dstAddr := vm.load2(opAddr + 9)
		src := bankAddr(srcBank, srcAddr)
		dst := bankAddr(dstBank, dstAddr)
		max := src
		if dst > max {
			max = dst
		}
		end := clamp(max + length)
		n := end - max
		if op == 0x01 {
			for k := uint32(0); k < n; k++ {
				vm.Mem[dst+k] = vm.Mem[src+k]
			}
		} else {
			for k := uint32(1); k <= n; k++ {
				vm.Mem[dst+n-k] = vm.Mem[src+n-k]
			}
		}
	}
}
