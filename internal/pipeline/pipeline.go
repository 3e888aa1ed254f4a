// Package pipeline runs one analysis end to end: merge the inputs, analyze,
// apply the date filter, profile the device and assemble the report. The
// CLI and the HTTP API both go through Run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/config"
	"github.com/ccollicutt/logdoctor/pkg/detector"
	"github.com/ccollicutt/logdoctor/pkg/output"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// Options are the per-run analysis switches.
type Options struct {
	IncludeDebug   bool
	IncludeTrace   bool
	NoiseFilter    bool
	From           string
	To             string
	TimezoneOffset string
}

// OptionsFromConfig returns the configured defaults.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		IncludeDebug:   cfg.IncludeDebug,
		IncludeTrace:   cfg.IncludeTrace,
		NoiseFilter:    cfg.NoiseFilter,
		From:           cfg.DateFrom,
		To:             cfg.DateTo,
		TimezoneOffset: cfg.TimezoneOffset,
	}
}

// Runner holds what every run shares.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a Runner. A nil logger disables logging.
func New(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run analyzes files and returns the report. configFile is recorded in the
// report metadata only.
func (r *Runner) Run(ctx context.Context, files []parser.InputFile, opts Options, configFile string) (*output.Report, error) {
	start := time.Now()

	dr, err := analyzer.ParseDateRange(opts.From, opts.To)
	if err != nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "dates must be YYYY-MM-DD", err)
	}
	if opts.TimezoneOffset != "" {
		if _, err := parser.ParseTZOffset(opts.TimezoneOffset); err != nil {
			return nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("invalid timezone offset %q", opts.TimezoneOffset), err)
		}
	}

	if limit := r.cfg.Analysis.MaxInputBytes; limit > 0 {
		var total int64
		for _, f := range files {
			total += int64(len(f.Content))
		}
		if total > limit {
			return nil, apperr.New(apperr.CodeInputTooLarge,
				fmt.Sprintf("input is %d bytes, limit is %d", total, limit), parser.ErrInputTooLarge)
		}
	}

	text := parser.MergeFiles(files)

	a := analyzer.NewAnalyzer(
		analyzer.WithDebug(opts.IncludeDebug),
		analyzer.WithTrace(opts.IncludeTrace),
		analyzer.WithNoiseFilter(opts.NoiseFilter),
		analyzer.WithChunkSize(r.cfg.Analysis.ChunkSize),
		analyzer.WithLatestVersion(r.cfg.Health.LatestVersion),
		analyzer.WithLogger(r.logger),
	)
	res, err := a.Analyze(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if !dr.IsZero() {
		res = analyzer.FilterByDate(res, dr, a.LatestVersion())
	} else {
		dr = nil
	}

	profile := detector.New().DetectFromText(text)

	sources := make([]string, 0, len(files))
	for _, f := range files {
		sources = append(sources, f.Name)
	}

	report := output.NewReport(res, profile, output.Metadata{
		ConfigFile:     configFile,
		Sources:        sources,
		DateRange:      dr,
		TimezoneOffset: opts.TimezoneOffset,
		AnalyzedAt:     start.UTC(),
		Duration:       time.Since(start),
	})

	fields := []zap.Field{
		zap.String("report", report.ID),
		zap.Int("files", len(files)),
		zap.Int("lines", report.Summary.LinesProcessed),
		zap.Duration("elapsed", report.Metadata.Duration),
	}
	if report.Summary.HealthScore != nil {
		fields = append(fields, zap.Int("health", *report.Summary.HealthScore))
	}
	r.logger.Info("analysis finished", fields...)
	return report, nil
}
