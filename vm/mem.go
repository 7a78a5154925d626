package vm

// load1 reads one byte, wrapping the address modulo len(Mem) (a power of
// two at least 64 KiB, so this degenerates to the documented mod-65536
// wraparound for the default memory size).
func (i *Instance) load1(addr uint16) byte {
	return i.Mem[int(addr)%len(i.Mem)]
}

func (i *Instance) store1(addr uint16, v byte) {
	i.Mem[int(addr)%len(i.Mem)] = v
}

// load2/store2 are big-endian (hi, lo) and wrap each byte independently,
// matching the two load1/store1 calls at addr and addr+1 the original
// threaded interpreter performs.
func (i *Instance) load2(addr uint16) uint16 {
	hi := i.load1(addr)
	lo := i.load1(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (i *Instance) store2(addr uint16, v uint16) {
	i.store1(addr, byte(v>>8))
	i.store1(addr+1, byte(v))
}

// loadz1/storez1 access the zero page (addresses 0x00-0xff), wrapping the
// low address byte modulo 256 rather than modulo the full memory size.
func (i *Instance) loadz1(addr uint8) byte {
	return i.Mem[addr]
}

func (i *Instance) storez1(addr uint8, v byte) {
	i.Mem[addr] = v
}

func (i *Instance) loadz2(addr uint8) uint16 {
	hi := i.loadz1(addr)
	lo := i.loadz1(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (i *Instance) storez2(addr uint8, v uint16) {
	i.storez1(addr, byte(v>>8))
	i.storez1(addr+1, byte(v))
}

// relAddr resolves a signed 8-bit offset from the current operand address
// (PC, pointing just past the opcode byte that is using it) the way LDR/STR
// compute their target.
func relAddr(pc uint16, offset uint8) uint16 {
	return uint16(int32(pc) + int32(int8(offset)))
}
