// Command buxnvm loads a ROM image and runs it, wiring stdin/stdout to the
// console device at the slot chosen by -consoledev (1 by default). Exit
// status mirrors the guest's exit code.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/davehorner/buxn-sub000/vm"
	"github.com/pkg/errors"
)

// deviceSlot is a flag.Value validating the console device lives in one of
// the 15 assignable device slots (slot 0 is the built-in system device),
// following the teacher's cellSizeBits pattern in cmd/retro/main.go for a
// flag.Var-bound integer with a restricted range.
type deviceSlot uint8

func (d *deviceSlot) String() string { return strconv.Itoa(int(*d)) }
func (d *deviceSlot) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrap(err, "integer conversion failed")
	}
	if n < 1 || n > 15 {
		return errors.Errorf("device slot %d out of range [1,15]", n)
	}
	*d = deviceSlot(n)
	return nil
}
func (d *deviceSlot) Get() interface{} { return *d }

var (
	consoleDev = deviceSlot(1)
	useMMap    bool
)

func atExit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}

func main() {
	flag.Var(&consoleDev, "consoledev", "device slot to wire the stdin/stdout console to")
	flag.BoolVar(&useMMap, "mmap", false, "load the rom through a read-only memory mapping instead of a buffered read")
	flag.Parse()

	if flag.NArg() != 1 {
		atExit(errors.New("usage: buxnvm [-consoledev n] [-mmap] <in.rom>"))
	}
	inPath := flag.Arg(0)

	var rom []byte
	var err error
	if useMMap {
		var closeMMap func() error
		rom, closeMMap, err = vm.LoadROMMMap(inPath)
		if err != nil {
			atExit(err)
		}
		defer closeMMap()
	} else {
		rom, err = vm.LoadROM(inPath)
		if err != nil {
			atExit(err)
		}
	}

	restore, err := setRawIO()
	if err == nil {
		defer restore()
	}

	con := newConsole(os.Stdin, os.Stdout)
	m, err := vm.New(rom, vm.WithDevice(uint8(consoleDev), con))
	if err != nil {
		atExit(errors.Wrap(err, "creating machine"))
	}

	if err := m.Run(); err != nil {
		atExit(err)
	}

	if code := m.ExitCode(); code >= 0 {
		os.Exit(code)
	}
}
