// Package output assembles analysis results into reports and renders them.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/detector"
	"github.com/ccollicutt/logdoctor/pkg/findings"
)

// Report is the complete analysis output.
type Report struct {
	// ID uniquely identifies this report, e.g. in webhook deliveries.
	ID string `json:"id"`

	Summary    Summary             `json:"summary"`
	Conclusion findings.Conclusion `json:"conclusion"`
	Findings   []findings.Finding  `json:"findings"`
	Profile    *detector.Profile   `json:"profile"`
	Result     *analyzer.Result    `json:"result"`
	Metadata   Metadata            `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	LinesProcessed int   `json:"linesProcessed"`
	Sessions       int   `json:"sessions"`
	TrackedSeconds int64 `json:"trackedSeconds"`
	LogSpanSeconds int64 `json:"logSpanSeconds"`
	Errors         int   `json:"errors"`
	Warnings       int   `json:"warnings"`

	Critical        int `json:"critical"`
	WarningFindings int `json:"warningFindings"`

	// HealthScore is nil when no silent-app install was detected.
	HealthScore  *int   `json:"healthScore,omitempty"`
	HealthRating string `json:"healthRating,omitempty"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	ConfigFile string   `json:"configFile,omitempty"`
	Sources    []string `json:"sources"`

	// DateRange is the date filter that was applied, if any.
	DateRange *analyzer.DateRange `json:"dateRange,omitempty"`

	// TimezoneOffset is the display offset requested by the caller.
	TimezoneOffset string `json:"timezoneOffset,omitempty"`

	AnalyzedAt time.Time     `json:"analyzedAt"`
	Duration   time.Duration `json:"duration"`
}

// NewReport builds a report from an analysis result and device profile.
// A nil profile is treated as empty.
func NewReport(res *analyzer.Result, p *detector.Profile, meta Metadata) *Report {
	if p == nil {
		p = &detector.Profile{}
	}
	if meta.Sources == nil {
		meta.Sources = []string{}
	}
	fs := findings.Generate(res, p)

	report := &Report{
		ID:         uuid.NewString(),
		Conclusion: findings.Conclude(fs),
		Findings:   fs,
		Profile:    p,
		Result:     res,
		Metadata:   meta,
		Summary: Summary{
			LinesProcessed:  res.TotalLines,
			Sessions:        len(res.Sessions),
			TrackedSeconds:  res.TrackedSeconds(),
			LogSpanSeconds:  res.LogSpanSeconds(),
			Errors:          len(res.Errors),
			Warnings:        len(res.Warnings),
			Critical:        findings.Count(fs, findings.SeverityCritical),
			WarningFindings: findings.Count(fs, findings.SeverityWarning),
		},
	}
	if res.Health != nil {
		score := res.Health.Score
		report.Summary.HealthScore = &score
		report.Summary.HealthRating = res.Health.Rating
	}
	return report
}

// HasIssues reports whether any critical finding exists or the health
// score, when there is one, is below threshold.
func (r *Report) HasIssues(threshold int) bool {
	if r.Summary.Critical > 0 {
		return true
	}
	return r.Summary.HealthScore != nil && *r.Summary.HealthScore < threshold
}
