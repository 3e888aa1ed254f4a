package analyzer

import (
	"context"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/pkg/geo"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// DefaultLatestVersion is the newest known silent-app release.
const DefaultLatestVersion = "1.7.10"

// DefaultChunkSize is the number of lines processed between yields when
// chunked mode is enabled.
const DefaultChunkSize = 10000

// ProgressFunc is called after each chunk with the lines processed so far.
type ProgressFunc func(done, total int)

// Analyzer turns raw client log text into a Result.
// An Analyzer holds configuration only; every call to Analyze owns its own
// accumulators, so one Analyzer may be shared between goroutines.
type Analyzer struct {
	includeDebug  bool
	includeTrace  bool
	noiseFilter   bool
	chunkSize     int
	progress      ProgressFunc
	latestVersion string
	logger        *zap.Logger
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithDebug includes DEBUG lines in category extraction.
func WithDebug(v bool) AnalyzerOption {
	return func(a *Analyzer) {
		a.includeDebug = v
	}
}

// WithTrace includes TRACE lines in category extraction.
func WithTrace(v bool) AnalyzerOption {
	return func(a *Analyzer) {
		a.includeTrace = v
	}
}

// WithNoiseFilter drops known high-volume noise before analysis.
func WithNoiseFilter(v bool) AnalyzerOption {
	return func(a *Analyzer) {
		a.noiseFilter = v
	}
}

// WithChunkSize processes n lines at a time, yielding and checking for
// cancellation between chunks. Zero or less disables chunking.
func WithChunkSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.chunkSize = n
	}
}

// WithProgress registers a callback invoked between chunks.
func WithProgress(fn ProgressFunc) AnalyzerOption {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// WithLatestVersion sets the release the health check compares against.
func WithLatestVersion(v string) AnalyzerOption {
	return func(a *Analyzer) {
		if v != "" {
			a.latestVersion = v
		}
	}
}

// WithLogger sets the logger used for pass-level debug output.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer with the given options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		latestVersion: DefaultLatestVersion,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LatestVersion returns the release version used for health scoring.
func (a *Analyzer) LatestVersion() string {
	return a.latestVersion
}

// Analyze scans text and derives the full diagnostic result.
//
// Malformed content never causes an error: unparseable lines simply
// contribute nothing. The only error is ctx being cancelled, which is
// checked between chunks.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	lines := nonBlank(parser.SplitLines(text))
	stats := &FilterStats{InputLines: len(lines), KeptLines: len(lines)}
	if a.noiseFilter {
		lines = a.filterChunks(lines)
		stats.KeptLines = len(lines)
	}

	extract := newExtractor(a.includeDebug, a.includeTrace)
	order := newTrackingOrder()
	probe := newPlatformProbe()
	passes := []lineProcessor{extract, newSilentScanner(), order, probe}

	r := newResult()
	step := len(lines)
	if a.chunkSize > 0 {
		step = a.chunkSize
	}

	for done := 0; done < len(lines); {
		end := min(done+step, len(lines))
		for _, raw := range lines[done:end] {
			if name, ok := parser.BoundaryName(raw); ok {
				r.Files = append(r.Files, name)
				continue
			}
			sl := &scanLine{LogLine: parser.Classify(raw), Raw: raw}
			sl.Visible = extract.visible(sl)
			for _, p := range passes {
				p.Process(sl)
			}
		}
		done = end

		if a.chunkSize > 0 && done < len(lines) {
			if a.progress != nil {
				a.progress(done, len(lines))
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			runtime.Gosched()
		}
	}
	if a.progress != nil {
		a.progress(len(lines), len(lines))
	}

	for _, p := range passes {
		p.Finalize(r)
		a.logger.Debug("pass finalized", zap.String("pass", p.Name()))
	}

	assessScreenshots(r, order.windows, probe)

	r.TotalLines = len(lines) - len(r.Files)
	if a.noiseFilter {
		r.Filter = stats
	}

	r.Cycles = BuildCycles(r.SilentApp, r.Sessions, r.EndTime)
	r.Health = healthIfDetected(r, a.latestVersion)

	fields := []zap.Field{
		zap.Int("lines", r.TotalLines),
		zap.Int("sessions", len(r.Sessions)),
		zap.Bool("silent_app", r.SilentApp.Detected),
	}
	if r.Health != nil {
		fields = append(fields, zap.Int("health_score", r.Health.Score))
	}
	a.logger.Debug("analysis complete", fields...)
	return r, nil
}

// filterChunks applies the noise filter one chunk at a time. The filter is
// stateless per line, so the output matches filtering all lines at once.
func (a *Analyzer) filterChunks(lines []string) []string {
	if a.chunkSize <= 0 {
		return parser.FilterNoise(lines)
	}
	kept := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i += a.chunkSize {
		kept = append(kept, parser.FilterNoise(lines[i:min(i+a.chunkSize, len(lines))])...)
	}
	return kept
}

// Analyze runs a default analyzer over text.
func Analyze(text string) *Result {
	r, _ := NewAnalyzer().Analyze(context.Background(), text)
	return r
}

func nonBlank(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func newResult() *Result {
	return &Result{
		Errors:                []Event{},
		Warnings:              []Event{},
		Screenshots:           []Event{},
		Network:               []Event{},
		Locations:             []Event{},
		Apps:                  []Event{},
		Tracking:              []Event{},
		Injected:              []InjectedInput{},
		Sessions:              []Session{},
		AuthenticatedUsers:    []AuthenticatedUser{},
		IdleDecisions:         []IdleDecision{},
		JobSites:              []geo.Site{},
		UserLocations:         []geo.Fix{},
		CurrentlyEnteredSites: []EnteredSites{},
		GeofenceEvents:        []geo.Transition{},
		Cycles:                []LifecycleCycle{},
		Files:                 []string{},
	}
}
