// Package report defines the diagnostic taxonomy shared by the assembler
// and the chess type-checker: a severity-tagged message anchored to a
// source region, with an optional secondary region for "see also" context.
package report

import (
	"fmt"

	"github.com/davehorner/buxn-sub000/internal/source"
)

// Severity classifies a Report.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Report is one diagnostic: a severity, a human-readable message, the
// offending token text (if any), the primary region it concerns, and an
// optional related region carrying its own explanatory message (e.g. the
// site of a conflicting prior definition).
type Report struct {
	Severity Severity
	Message  string
	Token    string
	Region   source.Region

	RelatedMessage string
	Related        *source.Region
}

func (r Report) String() string {
	if r.Related != nil {
		return fmt.Sprintf("%s: %s: %s (see %s: %s)", r.Region, r.Severity, r.Message, *r.Related, r.RelatedMessage)
	}
	return fmt.Sprintf("%s: %s: %s", r.Region, r.Severity, r.Message)
}

// Sink collects reports. Both the assembler and chess take a Sink rather
// than returning an error slice directly, so a caller can stream
// diagnostics (e.g. an LSP server) instead of buffering an entire run.
type Sink interface {
	Report(r Report)
}

// Collector is a Sink that buffers every report and separately tracks
// whether any error-severity report was seen, matching the "accumulated
// reports + boolean success" propagation model.
type Collector struct {
	Reports []Report
	failed  bool
}

func (c *Collector) Report(r Report) {
	c.Reports = append(c.Reports, r)
	if r.Severity == Error {
		c.failed = true
	}
}

// OK reports whether no error-severity diagnostic has been collected.
func (c *Collector) OK() bool { return !c.failed }

// Errors returns only the error-severity reports, preserving order.
func (c *Collector) Errors() []Report {
	var out []Report
	for _, r := range c.Reports {
		if r.Severity == Error {
			out = append(out, r)
		}
	}
	return out
}
