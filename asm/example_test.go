package asm_test

import (
	"fmt"
	"strings"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/vm"
)

type console struct{}

func (console) In(m *vm.Instance, port uint8) uint8 { return 0 }
func (console) Out(m *vm.Instance, port uint8) {
	if port&0x0f == 0x08 {
		fmt.Printf("%c", m.Dev[port])
	}
}

// Example assembles a tiny program from source, runs it, and prints the
// bytes it writes to the console device.
func Example() {
	var c report.Collector
	res, ok := asm.Assemble("hi.tal", strings.NewReader("|0100 #68 #18 DEO #69 #18 DEO BRK"), &c, nil)
	if !ok {
		panic(c.Errors())
	}
	m, err := vm.New(res.ROM, vm.WithDevice(1, console{}))
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
