package commands

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/pkg/config"
	"github.com/ccollicutt/logdoctor/pkg/detector"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand(g *GlobalOptions) *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [file|glob|dir]...",
		Short: "Check configuration, inputs and webhooks before analysis",
		Long: `Check the environment logdoctor runs in.

This command looks for common problems:
- Config file presence and validity
- Log file existence, readability and timestamp format
- Server listen address
- Webhook URLs, triggers and tokens (reachability with -v)

Example:
  logdoctor diagnose client.log
  logdoctor --config logdoctor.yaml diagnose -v logs/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(ctxOrBackground(cmd.Context()), cmd.OutOrStdout(), g.ConfigFile, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, inputs []string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Config file
	if configPath != "" {
		result := checkConfigExists(configPath)
		results = append(results, result)
		if result.Status == statusError {
			printDiagnostics(w, results, opts)
			return nil
		}
	}

	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == statusError {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Log inputs
	results = append(results, checkInputs(inputs, cfg.Analysis.Limits())...)

	// 3. Server
	results = append(results, checkServer(cfg))

	// 4. Webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = statusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'logdoctor init " + path + "' to write a default config",
		}
		return result
	}
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = statusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = statusWarning
		result.Message = "Config file is empty; defaults apply"
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = statusOK
	if path == "" {
		result.Message = "No config file given; using defaults and LOGDOCTOR_* environment"
	} else {
		result.Message = "Config file parsed successfully"
	}
	result.Details = []string{
		fmt.Sprintf("Noise filter: %v", cfg.Analysis.NoiseFilter),
		fmt.Sprintf("Latest version: %s", cfg.Health.LatestVersion),
		fmt.Sprintf("Issue threshold: %d", cfg.Health.IssueThreshold),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkInputs(inputs []string, limits parser.Limits) []DiagnosticResult {
	if len(inputs) == 0 {
		return []DiagnosticResult{{
			Check:    "Log Files",
			Status:   statusWarning,
			Message:  "No log files given",
			Suggests: []string{"Pass log files, globs or directories to check them too"},
		}}
	}

	paths, err := parser.ExpandInputs(inputs)
	if err != nil {
		return []DiagnosticResult{{
			Check:   "Log Files",
			Status:  statusError,
			Message: fmt.Sprintf("Invalid input pattern: %v", err),
		}}
	}

	results := []DiagnosticResult{}
	readable := 0
	for _, path := range paths {
		result := checkLogFile(path, limits)
		if result.Status != statusError {
			readable++
		}
		results = append(results, result)
	}

	if readable == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  statusError,
			Message: "No readable log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}
	return results
}

func checkLogFile(path string, limits parser.Limits) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Log File: %s", path),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = statusError
		result.Message = "File does not exist"
		result.Suggests = []string{"Check if the log file path is correct"}
		return result
	case err != nil:
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	case info.Size() == 0:
		result.Status = statusWarning
		result.Message = "File is empty (0 bytes)"
		return result
	}

	f, err := parser.ReadFile(path, limits)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Cannot read file: %v", err)
		return result
	}

	lines := parser.SplitLines(f.Content)
	start := parser.FirstTimestamp(f.Content)
	if start == nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("%d line(s), but no \"YYYY-MM-DD HH:MM:SS\" timestamp near the top", len(lines))
		result.Suggests = []string{
			"Sessions, idle time and the date filter need timestamped lines",
			"Check this is a client log and not an export or a crash dump",
		}
		return result
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("%d line(s), starts %s", len(lines), start.Format(parser.TimestampLayout))

	p := detector.New().DetectFromLines(lines)
	if p.Platform != "" {
		result.Details = append(result.Details, fmt.Sprintf("Platform: %s", p.Platform))
	}
	if v := p.FullVersion(); v != "" {
		result.Details = append(result.Details, fmt.Sprintf("Version: %s", v))
	}
	if p.KnownIssue != "" {
		result.Status = statusWarning
		result.Message += "; client version has a known problem"
		result.Details = append(result.Details, fmt.Sprintf("Known issue: %s", p.KnownIssue))
	}
	return result
}

func checkServer(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Server Address",
	}
	host, port, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		result.Status = statusError
		result.Message = fmt.Sprintf("Invalid listen address %q: %v", cfg.Server.Addr, err)
		result.Suggests = []string{"Use host:port, e.g. 127.0.0.1:8780"}
		return result
	}
	result.Status = statusOK
	result.Message = fmt.Sprintf("serve will listen on %s", cfg.Server.Addr)
	if host == "" || host == "0.0.0.0" || host == "::" {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("serve will listen on all interfaces, port %s", port)
		result.Suggests = []string{"The API has no authentication; bind to 127.0.0.1 unless it sits behind a proxy"}
	}
	return result
}

type diagStyles struct {
	pass, warn, fail, hint lipgloss.Style
}

func newDiagStyles(w io.Writer) diagStyles {
	r := lipgloss.NewRenderer(w)
	return diagStyles{
		pass: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		warn: r.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		fail: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		hint: r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	st := newDiagStyles(w)
	fmt.Fprintln(w, "=== logdoctor Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case statusOK:
			icon = st.pass.Render("PASS")
			okCount++
		case statusWarning:
			icon = st.warn.Render("WARN")
			warnCount++
		case statusError:
			icon = st.fail.Render("FAIL")
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != statusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      %s\n", st.hint.Render("Hint: "+s))
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	case warnCount > 0:
		fmt.Fprintln(w, "\nReady to analyze, with warnings.")
	default:
		fmt.Fprintln(w, "\nReady to analyze.")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  statusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			} else if u.Scheme == "http" && wh.Token != "" {
				warnings = append(warnings, "Token is sent over plain http")
			}
		}

		switch wh.Trigger {
		case "", config.WebhookTriggerOnIssues, config.WebhookTriggerAlways, config.WebhookTriggerNever:
		default:
			issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_issues, always, or never)", wh.Trigger))
		}

		if wh.Trigger == config.WebhookTriggerNever {
			warnings = append(warnings, "Trigger is never; this webhook is disabled")
		}

		if len(issues) > 0 {
			result.Status = statusError
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = statusWarning
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = statusOK
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
				if wh.Gzip {
					result.Details = append(result.Details, "Body: gzip")
				}
			}
		}

		results = append(results, result)
	}

	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = statusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = statusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (delivery will still be attempted)",
			"Check authentication if using a token",
		}
	}

	return result
}
