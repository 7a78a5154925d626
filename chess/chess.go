package chess

import (
	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/report"
)

// resetVector mirrors asm.ResetVector; kept local so this package depends
// on the assembler's Result/Symbol types but not its internal constants.
const resetVector = asm.ResetVector

// Verify runs the abstract interpreter over every non-sealed signature
// found in res (plus the implicit on-reset vector at 0x0100 if it carries
// no signature of its own), reporting diagnostics to sink. It returns
// true iff no error-severity diagnostic was produced.
func Verify(res asm.Result, sink report.Sink) bool {
	// Signature and cast parse errors pass through a local collector so
	// they count toward the result as well as reaching sink.
	var parsed report.Collector
	infos := buildAddressInfo(res, &parsed)
	casts := buildCasts(res, &parsed)
	for _, r := range parsed.Reports {
		sink.Report(r)
	}
	if _, ok := infos[resetVector]; !ok {
		infos[resetVector] = &AddressInfo{Name: "on-reset", Addr: resetVector}
	}

	c := &checker{
		img:          &image{rom: res.ROM},
		infos:        infos,
		casts:        casts,
		sink:         sink,
		terminatedOK: make(map[*AddressInfo]bool),
		hadError:     make(map[*AddressInfo]bool),
	}

	failed := !parsed.OK()
	for _, info := range infos {
		if info.HasSig && info.Signature.Sealed {
			continue
		}
		sig := info.Signature
		if !info.HasSig {
			if info.Addr != resetVector {
				continue
			}
			sig = Signature{Kind: KindVector}
		}
		t := &Trace{
			ID: c.wl.newID(), ParentID: -1,
			PC:    info.Addr,
			WST:   entryStack(sig.WSTIn),
			RST:   entryReturnStack(sig),
			Entry: info,
			Sig:   sig,
			Arcs:  make(map[arc]bool),
		}
		c.wl.push(t)
	}

	for {
		t, ok := c.wl.pop()
		if !ok {
			break
		}
		for {
			o := c.step(t)
			if o != outcomeContinue {
				if o == outcomeError {
					failed = true
					c.hadError[t.Entry] = true
				}
				break
			}
		}
	}

	for _, info := range infos {
		if !info.HasSig || info.Signature.Sealed {
			continue
		}
		if !c.terminatedOK[info] && !c.hadError[info] {
			sink.Report(report.Report{Severity: report.Error, Message: "routine " + info.Name + " never terminates"})
			failed = true
		}
	}

	return !failed
}

func entryStack(in []Param) *Stack {
	s := &Stack{}
	for _, p := range in {
		s.Push(Value{Short: p.Short, Addr: p.Addr, Nomial: p.Nominal, Forked: true})
	}
	return s
}

func entryReturnStack(sig Signature) *Stack {
	s := &Stack{}
	for _, p := range sig.RSTIn {
		s.Push(Value{Short: p.Short, Addr: p.Addr, Nomial: p.Nominal, Forked: true})
	}
	if sig.Kind == KindSubroutine {
		s.Push(Value{Short: true, ReturnAddr: true, EntryReturn: true, Const: true, Forked: true, ConstValue: 0})
	}
	return s
}
