package findings

import (
	"fmt"
	"sort"
	"strings"
)

// maxCauses caps how many causes a conclusion ranks.
const maxCauses = 3

// Cause is one ranked explanation of what went wrong.
type Cause struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Evidence string   `json:"evidence,omitempty"`
	Steps    []string `json:"steps"`
}

// Conclusion is the short verdict printed above the findings.
type Conclusion struct {
	Headline string  `json:"headline"`
	Causes   []Cause `json:"causes"`
}

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
	SeveritySuccess:  3,
}

// Conclude picks the most severe actionable findings as probable root
// causes. Findings without an action are never causes.
func Conclude(fs []Finding) Conclusion {
	ranked := make([]Finding, 0, len(fs))
	for _, f := range fs {
		if f.Action == "" {
			continue
		}
		if f.Severity == SeverityCritical || f.Severity == SeverityWarning {
			ranked = append(ranked, f)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return severityRank[ranked[i].Severity] < severityRank[ranked[j].Severity]
	})

	c := Conclusion{Causes: []Cause{}}
	for i, f := range ranked {
		if i == maxCauses {
			break
		}
		c.Causes = append(c.Causes, Cause{
			Severity: f.Severity,
			Title:    f.Title,
			Evidence: firstLine(f.Detail),
			Steps:    splitSteps(f.Action),
		})
	}

	crit := Count(fs, SeverityCritical)
	switch {
	case len(c.Causes) == 0:
		c.Headline = "No root cause identified: the logs show normal operation."
	case crit > 0:
		c.Headline = fmt.Sprintf("Most likely cause: %s (%s found).", c.Causes[0].Title, plural(crit, "critical issue"))
	default:
		c.Headline = fmt.Sprintf("Possible cause: %s.", c.Causes[0].Title)
	}
	return c
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// splitSteps breaks an action paragraph into sentences.
func splitSteps(action string) []string {
	var steps []string
	for _, part := range strings.SplitAfter(action, ". ") {
		if p := strings.TrimSpace(part); p != "" {
			steps = append(steps, p)
		}
	}
	return steps
}
