// Package findings turns an analysis result and device profile into a
// ranked list of human-readable findings.
package findings

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/detector"
)

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
)

// Finding is one summary item.
type Finding struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

// input is what every rule reads.
type input struct {
	r *analyzer.Result
	p *detector.Profile
}

// rule appends zero or more findings.
type rule func(in *input, out []Finding) []Finding

// rules run in display order.
var rules = []rule{
	trackingFindings,
	idleFinding,
	timezoneFinding,
	versionFinding,
	iosPermissionFindings,
	batteryFinding,
	crashCountFinding,
	jobSiteBlockFinding,
	dnsFinding,
	androidDeviceFinding,
	injectedFindings,
	locationFindings,
	geofenceFinding,
	errorFindings,
	networkBlockFinding,
	braveFinding,
	screenshotFinding,
}

// Generate produces the findings for a result. A nil profile is treated as
// an empty one. The list is never empty: a clean log yields a single
// success finding.
func Generate(r *analyzer.Result, p *detector.Profile) []Finding {
	if p == nil {
		p = &detector.Profile{}
	}
	in := &input{r: r, p: p}

	out := []Finding{}
	for _, fn := range rules {
		out = fn(in, out)
	}
	if len(out) == 0 {
		out = append(out, Finding{
			Severity:    SeveritySuccess,
			Title:       "No Major Issues Detected",
			Description: "The logs look healthy. No critical errors or warnings were found.",
			Action:      "If the user is still experiencing issues, ask for more specific details about what's happening.",
		})
	}
	return out
}

// Count returns how many findings have the given severity.
func Count(fs []Finding, sev Severity) int {
	n := 0
	for _, f := range fs {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clock(ts *time.Time) string {
	return analyzer.FormatClock(ts)
}

// eventLines renders up to n events as "HH:MM:SS: message".
func eventLines(events []analyzer.Event, n, width int) string {
	lines := make([]string, 0, n)
	for i, e := range events {
		if i == n {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", clock(e.Timestamp), clip(e.Message, width)))
	}
	return strings.Join(lines, "\n")
}

func filterEvents(events []analyzer.Event, keep func(lowerMsg string) bool) []analyzer.Event {
	out := []analyzer.Event{}
	for _, e := range events {
		if keep(strings.ToLower(e.Message)) {
			out = append(out, e)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
