package chess

import (
	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
)

// AddressInfo records what is known about one labelled address: its name,
// its parsed signature (if any comment immediately following the label
// parses as one), and whether it is a routine entry point.
type AddressInfo struct {
	Name      string
	Addr      uint16
	Signature Signature
	HasSig    bool
	Routine   bool
}

// buildAddressInfo pairs every label symbol with a signature comment
// emitted at the same address: a comment immediately following a label,
// before any codegen has advanced the write pointer, shares the label's
// address in both streams.
func buildAddressInfo(res asm.Result, sink report.Sink) map[uint16]*AddressInfo {
	commentsAt := make(map[uint16]string, len(res.Comments))
	for _, c := range res.Comments {
		commentsAt[c.Addr] = c.Text
	}
	out := make(map[uint16]*AddressInfo)
	for _, sym := range res.Symbols {
		if sym.Kind != asm.SymLabel || sym.Name == nil {
			continue
		}
		info := &AddressInfo{Name: *sym.Name, Addr: sym.Addr}
		if text, ok := commentsAt[sym.Addr]; ok {
			sig, matched, err := ParseSignature(text)
			if err != nil {
				sink.Report(report.Report{Severity: report.Error, Message: err.Error(), Token: *sym.Name, Region: sym.Region})
			} else if matched {
				info.Signature = sig
				info.HasSig = true
				info.Routine = true
			}
		}
		out[sym.Addr] = info
	}
	return out
}
