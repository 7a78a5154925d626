// Command buxnasm assembles a tal source file into a ROM image, a label
// file, and a debug symbol file.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/davehorner/buxn-sub000/symtab"
	"github.com/pkg/errors"
)

var quiet bool

// dirIncluder resolves "~name" directives relative to the directory the
// top-level source file lives in.
type dirIncluder struct {
	dir string
}

func (d dirIncluder) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.dir, name))
}

func atExit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}

func main() {
	flag.BoolVar(&quiet, "q", false, "suppress warning-severity reports")
	flag.Parse()

	if flag.NArg() != 2 {
		atExit(errors.New("usage: buxnasm [-q] <in.tal> <out.rom>"))
	}
	inPath, outPath := flag.Arg(0), flag.Arg(1)

	f, err := os.Open(inPath)
	if err != nil {
		atExit(errors.Wrap(err, "opening source"))
	}
	defer f.Close()

	var c report.Collector
	includer := dirIncluder{dir: filepath.Dir(inPath)}
	res, ok := asm.Assemble(inPath, f, &c, includer)
	for _, r := range c.Reports {
		if quiet && r.Severity == report.Warning {
			continue
		}
		fmt.Fprintln(os.Stderr, r.String())
	}
	if !ok {
		atExit(errors.New("assembly failed"))
	}

	if err := os.WriteFile(outPath, res.ROM, 0644); err != nil {
		atExit(errors.Wrap(err, "writing rom"))
	}
	if err := writeLabelFile(outPath+".sym", res); err != nil {
		atExit(err)
	}
	if err := writeDebugFile(outPath+".dbg", res); err != nil {
		atExit(err)
	}
}

// writeLabelFile writes the ".rom.sym" side file: for every label symbol,
// its 2-byte big-endian address followed by its null-terminated name.
func writeLabelFile(path string, res asm.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating label file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, sym := range res.Symbols {
		if sym.Kind != asm.SymLabel || sym.Name == nil {
			continue
		}
		var addr [2]byte
		binary.BigEndian.PutUint16(addr[:], sym.Addr)
		if _, err := w.Write(addr[:]); err != nil {
			return errors.Wrap(err, "writing label address")
		}
		if _, err := w.WriteString(*sym.Name); err != nil {
			return errors.Wrap(err, "writing label name")
		}
		if err := w.WriteByte(0); err != nil {
			return errors.Wrap(err, "writing label terminator")
		}
	}
	return errors.Wrap(w.Flush(), "flushing label file")
}

func writeDebugFile(path string, res asm.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating debug file")
	}
	defer f.Close()
	return symtab.Write(f, symtab.FromResult(res))
}
