package output

import (
	"context"
	"fmt"
	"io"
)

// Formatter renders reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds per-session, per-cycle and per-event detail.
	Verbose bool

	// Quiet prints a one-line summary only.
	Quiet bool

	// TimezoneOffset, when set, shifts displayed times from the log's
	// detected offset to this one. It has no effect on the JSON output.
	TimezoneOffset string
}

// NewFormatter returns the formatter for a format name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be text or json)", name)
	}
}
