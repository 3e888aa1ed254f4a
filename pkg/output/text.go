package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/findings"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// styles are bound to the output writer so colour is dropped when w is not
// a terminal.
type styles struct {
	bold, dim, green, cyan, yellow, red lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		bold:   r.NewStyle().Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("240")),
		green:  r.NewStyle().Foreground(lipgloss.Color("42")),
		cyan:   r.NewStyle().Foreground(lipgloss.Color("39")),
		yellow: r.NewStyle().Foreground(lipgloss.Color("220")),
		red:    r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// textRun holds per-call rendering state.
type textRun struct {
	opts  FormatOptions
	st    styles
	w     io.Writer
	shift time.Duration
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	run := &textRun{opts: f.opts, st: newStyles(w), w: w, shift: displayShift(f.opts.TimezoneOffset, report.Result.Timezone)}
	if f.opts.Quiet {
		run.quiet(report)
		return nil
	}
	run.full(report)
	return nil
}

// displayShift converts log wall-clock times from the detected offset to
// the requested one. Unknown or invalid offsets count as zero.
func displayShift(target, detected string) time.Duration {
	if target == "" {
		return 0
	}
	to, err := parser.ParseTZOffset(target)
	if err != nil {
		return 0
	}
	var from time.Duration
	if detected != "" {
		if d, err := parser.ParseTZOffset(detected); err == nil {
			from = d
		}
	}
	return to - from
}

func (t *textRun) clock(ts *time.Time) string {
	if ts == nil {
		return analyzer.FormatClock(nil)
	}
	shifted := ts.Add(t.shift)
	return analyzer.FormatClock(&shifted)
}

func (t *textRun) stamp(ts *time.Time) string {
	if ts == nil {
		return "--"
	}
	return ts.Add(t.shift).Format(parser.TimestampLayout)
}

func (t *textRun) printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...)
}

func (t *textRun) quiet(report *Report) {
	s := report.Summary
	t.printf("logdoctor: ")
	if s.HealthScore != nil {
		t.printf("health %d/100 (%s), ", *s.HealthScore, s.HealthRating)
	}
	t.printf("%d critical, %d warning, %d session(s), tracked %s\n",
		s.Critical, s.WarningFindings, s.Sessions, analyzer.FormatDuration(s.TrackedSeconds))
}

func (t *textRun) full(report *Report) {
	t.printf("%s\n\n", t.st.bold.Render("=== logdoctor Analysis Report ==="))
	t.overview(report)
	t.health(report.Result.Health)
	t.conclusion(report.Conclusion)
	t.findings(report.Findings)

	if t.opts.Verbose {
		t.sessions(report.Result)
		t.idle(report.Result)
		t.cycles(report.Result)
		t.networkBlocks(report.Result)
	}

	s := report.Summary
	t.printf("---\n")
	t.printf("Summary: %d line(s), %d session(s), %s tracked, %d critical, %d warning finding(s)\n",
		s.LinesProcessed, s.Sessions, analyzer.FormatDuration(s.TrackedSeconds), s.Critical, s.WarningFindings)
	if t.opts.Verbose {
		t.printf("Report ID: %s\n", report.ID)
		t.printf("Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
	}
}

func (t *textRun) overview(report *Report) {
	r := report.Result
	p := report.Profile
	if p != nil && (p.Platform != "" || p.Version != "") {
		platform := p.Platform
		if platform == "" {
			platform = "Unknown platform"
		}
		version := p.FullVersion()
		if version == "" {
			version = "version unknown"
		}
		t.printf("Client:   %s %s\n", platform, version)
	}
	if len(r.Files) > 0 {
		t.printf("Files:    %s\n", strings.Join(r.Files, ", "))
	} else if len(report.Metadata.Sources) > 0 {
		t.printf("Sources:  %s\n", strings.Join(report.Metadata.Sources, ", "))
	}
	t.printf("Log:      %s -> %s (%s)\n", t.stamp(r.StartTime), t.stamp(r.EndTime), analyzer.FormatDuration(r.LogSpanSeconds()))
	if r.Timezone != "" {
		t.printf("Timezone: UTC%s\n", r.Timezone)
	}
	if t.opts.TimezoneOffset != "" {
		t.printf("Display:  UTC%s\n", t.opts.TimezoneOffset)
	}
	if dr := report.Metadata.DateRange; !dr.IsZero() {
		t.printf("Filter:   %s .. %s\n", day(dr.From), day(dr.To))
	}
	t.printf("Tracked:  %s in %d session(s)\n", analyzer.FormatDuration(r.TrackedSeconds()), len(r.Sessions))
	t.printf("Events:   %d error(s), %d warning(s), %d screenshot(s), %d network, %d location\n\n",
		len(r.Errors), len(r.Warnings), len(r.Screenshots), len(r.Network), len(r.Locations))
}

func day(ts *time.Time) string {
	if ts == nil {
		return "*"
	}
	return ts.Format(analyzer.DateLayout)
}

func (t *textRun) health(h *analyzer.HealthReport) {
	if h == nil {
		return
	}
	scoreStyle := t.st.green
	switch {
	case h.Score < 50:
		scoreStyle = t.st.red
	case h.Score < 80:
		scoreStyle = t.st.yellow
	}
	t.printf("%s %s\n", t.st.bold.Render("Health:"), scoreStyle.Render(fmt.Sprintf("%d/100 (%s)", h.Score, h.Rating)))
	for _, c := range h.Checks {
		t.printf("  %s %s: %s\n", t.checkTag(c.Status), c.Label, c.Detail)
	}
	t.printf("\n")
}

func (t *textRun) checkTag(s analyzer.CheckStatus) string {
	switch s {
	case analyzer.CheckPass:
		return t.st.green.Render("[PASS]")
	case analyzer.CheckWarn:
		return t.st.yellow.Render("[WARN]")
	default:
		return t.st.red.Render("[FAIL]")
	}
}

func (t *textRun) conclusion(c findings.Conclusion) {
	t.printf("%s %s\n", t.st.bold.Render("Conclusion:"), c.Headline)
	for i, cause := range c.Causes {
		t.printf("  %d. %s %s\n", i+1, t.severityTag(cause.Severity), cause.Title)
		if cause.Evidence != "" {
			t.printf("     %s\n", t.st.dim.Render("Evidence: "+cause.Evidence))
		}
		for _, step := range cause.Steps {
			t.printf("     - %s\n", step)
		}
	}
	t.printf("\n")
}

func (t *textRun) severityTag(s findings.Severity) string {
	tag := "[" + strings.ToUpper(string(s)) + "]"
	switch s {
	case findings.SeverityCritical:
		return t.st.red.Render(tag)
	case findings.SeverityWarning:
		return t.st.yellow.Render(tag)
	case findings.SeveritySuccess:
		return t.st.green.Render(tag)
	default:
		return t.st.cyan.Render(tag)
	}
}

func (t *textRun) findings(fs []findings.Finding) {
	t.printf("%s\n", t.st.bold.Render("Findings:"))
	for _, f := range fs {
		t.printf("%s %s\n", t.severityTag(f.Severity), f.Title)
		t.printf("  %s\n", f.Description)
		if f.Action != "" {
			t.printf("  Action: %s\n", f.Action)
		}
		if t.opts.Verbose && f.Detail != "" {
			for _, line := range strings.Split(f.Detail, "\n") {
				t.printf("    %s\n", t.st.dim.Render(line))
			}
		}
	}
	t.printf("\n")
}

func (t *textRun) sessions(r *analyzer.Result) {
	if len(r.Sessions) == 0 {
		return
	}
	t.printf("%s\n", t.st.bold.Render("Sessions:"))
	for _, s := range r.Sessions {
		t.printf("  %s (%s) -> %s (%s)  %s\n", t.clock(s.Start), s.StartReason, t.clock(s.Stop), s.StopReason,
			analyzer.FormatDuration(s.DurationSeconds))
	}
	t.printf("\n")
}

func (t *textRun) idle(r *analyzer.Result) {
	if len(r.IdleDecisions) == 0 {
		return
	}
	t.printf("%s kept %s, discarded %s\n", t.st.bold.Render("Idle:"),
		analyzer.FormatDuration(int64(r.IdleKeptSecs)), analyzer.FormatDuration(int64(r.IdleDiscardedSecs)))
	for _, d := range r.IdleDecisions {
		line := fmt.Sprintf("  %s %s %s", t.clock(d.Timestamp), analyzer.FormatDuration(int64(d.Seconds)), d.Decision)
		if d.ResponseTimeSeconds != nil {
			line += fmt.Sprintf(" (answered after %ds)", *d.ResponseTimeSeconds)
		}
		if d.Exceeds1Hour {
			line += " " + t.st.yellow.Render("[>1h]")
		}
		t.printf("%s\n", line)
	}
	t.printf("\n")
}

func (t *textRun) cycles(r *analyzer.Result) {
	if len(r.Cycles) == 0 {
		return
	}
	t.printf("%s\n", t.st.bold.Render("Lifecycle:"))
	for i, c := range r.Cycles {
		t.printf("  #%d %s %s -> %s %s, %d session(s), %s tracked\n", i+1,
			t.stamp(c.StartupTs), c.StartupType, t.stamp(c.ShutdownTs), c.ShutdownReason,
			len(c.TrackingSessions), analyzer.FormatDuration(c.TotalTrackedSeconds))
		if c.MultiDayGap && c.GapAfterMs != nil {
			t.printf("     %s\n", t.st.yellow.Render(fmt.Sprintf("offline %.1f hours before next startup", float64(*c.GapAfterMs)/3.6e6)))
		}
	}
	t.printf("\n")
}

func (t *textRun) networkBlocks(r *analyzer.Result) {
	nb := r.NetworkBlocks
	if nb == nil || nb.Empty() {
		return
	}
	t.printf("%s\n", t.st.bold.Render("Network blocks:"))
	for _, dc := range nb.Ranked() {
		t.printf("  %s: %d failure(s) [%s] %s -> %s\n", dc.Host, dc.Domain.Count,
			strings.Join(dc.Domain.ErrorTypes.Values(), ", "), t.clock(dc.Domain.FirstSeen), t.clock(dc.Domain.LastSeen))
	}
	t.printf("\n")
}
