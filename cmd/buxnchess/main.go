// Command buxnchess assembles a tal source file and runs the symbolic
// stack-effect checker over it, reporting any violated signature without
// ever executing the program.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/chess"
	"github.com/davehorner/buxn-sub000/report"
	"github.com/pkg/errors"
)

var quiet bool

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

	if flag.NArg() != 1 {
		atExit(errors.New("usage: buxnchess [-q] <in.tal>"))
	}
	inPath := flag.Arg(0)

	f, err := os.Open(inPath)
	if err != nil {
		atExit(errors.Wrap(err, "opening source"))
	}
	defer f.Close()

	var c report.Collector
	includer := dirIncluder{dir: filepath.Dir(inPath)}
	res, ok := asm.Assemble(inPath, f, &c, includer)
	printReports(c.Reports)
	if !ok {
		atExit(errors.New("assembly failed"))
	}

	var chessReports report.Collector
	if !chess.Verify(res, &chessReports) {
		printReports(chessReports.Reports)
		atExit(errors.New("chess verification failed"))
	}
	printReports(chessReports.Reports)
}

func printReports(reports []report.Report) {
	for _, r := range reports {
		if quiet && r.Severity == report.Warning {
			continue
		}
		fmt.Fprintln(os.Stderr, r.String())
	}
}
