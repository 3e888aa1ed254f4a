package analyzer

import (
	"time"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// scanLine is one non-blank input line with its classified fields.
type scanLine struct {
	parser.LogLine

	Raw string

	// Visible is false when the DEBUG/TRACE gate hides the line from
	// category extraction. Timestamp bookkeeping still sees it.
	Visible bool
}

// ts returns the line timestamp, or nil.
func (l *scanLine) ts() *time.Time { return l.Timestamp }

// lineProcessor consumes every line of an analysis in order and writes
// its findings into the result once the input is exhausted.
// Each pass of the analysis (event extraction, silent-app lifecycle,
// tracking-order checks) implements this interface.
type lineProcessor interface {
	// Name identifies the pass in debug logs.
	Name() string

	// Process handles a single line, updating internal state.
	Process(line *scanLine)

	// Finalize writes accumulated state into the result.
	// Called once, after all lines have been processed, in pass order.
	Finalize(r *Result)
}
