package chess

import (
	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
)

// buildCasts pairs every inline-cast comment ("!"-prefixed, appearing
// after an expression rather than immediately following a label) with
// the address of the instruction it applies to: a comment is scanned
// after the write pointer has already moved past whatever expression
// precedes it, so its recorded address is that of the following
// instruction, the one whose abstract inputs the cast overwrites before
// it runs.
func buildCasts(res asm.Result, sink report.Sink) map[uint16]Cast {
	out := make(map[uint16]Cast)
	for _, c := range res.Comments {
		cast, matched, err := ParseCast(c.Text)
		if err != nil {
			sink.Report(report.Report{Severity: report.Error, Message: err.Error(), Region: c.Region})
			continue
		}
		if matched {
			out[c.Addr] = cast
		}
	}
	return out
}

// applyCast overwrites the top of t's working and return stacks with
// cast's declared elements, retagging whatever is already there instead
// of checking it against the declaration.
func (c *checker) applyCast(t *Trace, cast Cast) outcome {
	if t.WST.Depth() < len(cast.WST) {
		c.report(report.Error, "cast declares more elements than are on the working stack")
		return outcomeError
	}
	if t.RST.Depth() < len(cast.RST) {
		c.report(report.Error, "cast declares more elements than are on the return stack")
		return outcomeError
	}
	popParams(t.WST, cast.WST)
	pushParams(t.WST, cast.WST)
	popParams(t.RST, cast.RST)
	pushParams(t.RST, cast.RST)
	return outcomeContinue
}
