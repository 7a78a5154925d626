package vm_test

import (
	"fmt"

	"github.com/davehorner/buxn-sub000/vm"
)

// console is a minimal device: writes to port 0x08 are echoed to stdout.
type console struct{}

func (console) In(m *vm.Instance, port uint8) uint8 { return 0 }
func (console) Out(m *vm.Instance, port uint8) {
	if port&0x0f == 0x08 {
		fmt.Printf("%c", m.Dev[port])
	}
}

func Example() {
	rom := []byte{
		vm.OpcLIT, 'h',
		vm.OpcLIT, 0x18,
		vm.OpDEO,
		vm.OpcLIT, 'i',
		vm.OpcLIT, 0x18,
		vm.OpDEO,
		vm.OpcBRK,
	}
	m, err := vm.New(rom, vm.WithDevice(1, console{}))
	if err != nil {
		panic(err)
	}
	if err := m.Run(); err != nil {
		panic(err)
	}
	fmt.Println()
	// Output:
	// hi
}
