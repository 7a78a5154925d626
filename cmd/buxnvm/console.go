package main

import (
	"bufio"
	"io"

	"github.com/davehorner/buxn-sub000/vm"
)

// console is the console device (slot 1 by default, ports 0x10-0x1f): its
// offset 0x00 port is read on DEI to pull the next byte from stdin (0 at
// EOF), its offset 0x08 port is written on DEO to emit a byte to stdout.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

func (c *console) In(m *vm.Instance, port uint8) uint8 {
	if port&0x0f != 0x00 {
		return 0
	}
	b, err := c.in.ReadByte()
	if err != nil {
		return 0
	}
	return b
}

func (c *console) Out(m *vm.Instance, port uint8) {
	if port&0x0f != 0x08 {
		return
	}
	c.out.Write([]byte{m.Dev[port]})
}
