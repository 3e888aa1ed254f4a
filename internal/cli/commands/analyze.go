package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/internal/pipeline"
	"github.com/ccollicutt/logdoctor/pkg/config"
	"github.com/ccollicutt/logdoctor/pkg/explain"
	"github.com/ccollicutt/logdoctor/pkg/output"
	"github.com/ccollicutt/logdoctor/pkg/webhook"
)

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output   string
	Debug    bool
	Trace    bool
	NoFilter bool
	From     string
	To       string
	TZ       string
	Verbose  bool
	Quiet    bool
	Explain  bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
	WebhookGzip    bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(g *GlobalOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file|glob|dir>...",
		Short: "Analyze client logs and report problems",
		Long: `Analyze one or more client log files and print a diagnostic report.

Files may be plain text, .gz or .zst. Several files are merged in
chronological order. The report covers:
  - Tracking sessions and idle decisions
  - Errors, warnings and network blocks
  - Silent-app lifecycle, health score and findings

Exit codes:
  0 - No issues found
  1 - Issues found (critical finding or health below threshold)
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Include DEBUG lines in event categories")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Include TRACE lines in event categories")
	cmd.Flags().BoolVar(&opts.NoFilter, "no-filter", false, "Disable the noise filter")
	cmd.Flags().StringVar(&opts.From, "from", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.TZ, "tz", "", "Display times at this UTC offset (e.g. +02:00)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show sessions, idle decisions and lifecycle detail")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "Explain each distinct error and warning in plain English")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")
	cmd.Flags().BoolVar(&opts.WebhookGzip, "webhook-gzip", false, "Gzip the webhook request body")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, g *GlobalOptions, opts *AnalyzeOptions) error {
	ctx := ctxOrBackground(cmd.Context())

	cfg, logger, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose:        opts.Verbose,
		Quiet:          opts.Quiet,
		TimezoneOffset: firstNonEmpty(opts.TZ, cfg.Analysis.TimezoneOffset),
	})
	if err != nil {
		return err
	}

	_, files, err := loadInputs(ctx, args, cfg.Analysis.Limits(), logger)
	if err != nil {
		return err
	}

	report, err := pipeline.New(cfg, logger).Run(ctx, files, runOptions(cmd, cfg, opts), g.ConfigFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := formatter.Format(ctx, report, out); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	if opts.Explain && opts.Output != "json" {
		writeExplanations(out, report)
	}

	hasIssues := report.HasIssues(cfg.Health.IssueThreshold)

	// Webhook failures are logged but never fail the analysis.
	sendWebhooks(ctx, webhooks, report, hasIssues, logger)

	if hasIssues {
		ExitCode = 1
	}
	return nil
}

// runOptions starts from the configured analysis settings and applies the
// flags the user actually set.
func runOptions(cmd *cobra.Command, cfg *config.Config, opts *AnalyzeOptions) pipeline.Options {
	ro := pipeline.OptionsFromConfig(cfg.Analysis)
	flags := cmd.Flags()
	if flags.Changed("debug") {
		ro.IncludeDebug = opts.Debug
	}
	if flags.Changed("trace") {
		ro.IncludeTrace = opts.Trace
	}
	if flags.Changed("no-filter") {
		ro.NoiseFilter = !opts.NoFilter
	}
	if opts.From != "" {
		ro.From = opts.From
	}
	if opts.To != "" {
		ro.To = opts.To
	}
	if opts.TZ != "" {
		ro.TimezoneOffset = opts.TZ
	}
	return ro
}

// writeExplanations prints one explanation per distinct error and warning
// message, most frequent first.
func writeExplanations(w io.Writer, report *output.Report) {
	type entry struct {
		message string
		count   int
		exp     explain.Explanation
	}
	byMessage := map[string]*entry{}
	var order []*entry

	events := append(append(report.Result.Errors[:0:0], report.Result.Errors...), report.Result.Warnings...)
	for _, e := range events {
		if ent, ok := byMessage[e.Message]; ok {
			ent.count++
			continue
		}
		exp, ok := explain.Explain(e.Message, e.Level)
		if !ok {
			continue
		}
		ent := &entry{message: e.Message, count: 1, exp: exp}
		byMessage[e.Message] = ent
		order = append(order, ent)
	}
	if len(order) == 0 {
		return
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Explanations:")
	for _, ent := range order {
		fmt.Fprintf(w, "  [%s] %s (x%d)\n", ent.exp.Severity, truncate(ent.message, 100), ent.count)
		fmt.Fprintf(w, "      %s\n", ent.exp.Text)
		if ent.exp.Action != "" {
			fmt.Fprintf(w, "      Action: %s\n", ent.exp.Action)
		}
	}
}

// sendWebhooks delivers the report to every webhook whose trigger matches.
func sendWebhooks(ctx context.Context, webhooks []config.WebhookConfig, report *output.Report, hasIssues bool, logger *zap.Logger) {
	if len(webhooks) == 0 {
		return
	}
	webhook.NewClient().Dispatch(ctx, webhooks, report, hasIssues, logger)
}

// collectWebhooks merges config file webhooks with the CLI webhook, which
// is validated like a configured one.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
			Timeout: config.DefaultWebhookTimeout,
			Gzip:    opts.WebhookGzip,
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, apperr.New(apperr.CodeInvalidInput, "invalid --webhook-* flags", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
