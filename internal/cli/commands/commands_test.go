package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/internal/apperr"
)

const healthyLog = "2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING\n" +
	"2024-01-01 12:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]\n"

const frozenLog = "2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING\n" +
	"2024-01-01 09:00:00 [ERROR] app.cpp:12 main_watchdog hit\n" +
	"2024-01-01 12:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// testGlobals points commands at a quiet config file so that the user's
// own configuration never leaks into tests.
func testGlobals(t *testing.T, extra string) *GlobalOptions {
	t.Helper()
	path := writeFile(t, t.TempDir(), "logdoctor.yaml", "logging:\n  level: error\n"+extra)
	return &GlobalOptions{ConfigFile: path}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	ExitCode = 0
	var buf bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestNewAnalyzeCommand(t *testing.T) {
	cmd := NewAnalyzeCommand(&GlobalOptions{})

	if cmd.Use != "analyze <file|glob|dir>..." {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	flags := []string{"output", "debug", "trace", "no-filter", "from", "to", "tz", "verbose", "quiet", "explain",
		"webhook-url", "webhook-token", "webhook-trigger"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand())
	if err != nil {
		t.Fatal(err)
	}
	if out != "logdoctor dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestRunValidate_Success(t *testing.T) {
	g := testGlobals(t, "health:\n  issue_threshold: 60\nwebhooks:\n  - name: ops\n    url: https://example.com/hook\n")

	out, err := execute(t, NewValidateCommand(g))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for _, want := range []string{"Configuration valid!", "Issue threshold: 60", "1. ops [on_issues]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "invalid.yaml", "invalid: yaml: content: [")

	if _, err := execute(t, NewValidateCommand(&GlobalOptions{}), path); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	if _, err := execute(t, NewValidateCommand(&GlobalOptions{}), "/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logdoctor.yaml")

	out, err := execute(t, NewInitCommand(), path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "issue_threshold: 70") {
		t.Errorf("written config:\n%s", data)
	}

	_, err = execute(t, NewInitCommand(), path)
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Errorf("second init error = %v, want invalid_input", err)
	}
	if _, err := execute(t, NewInitCommand(), "--force", path); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	// The written file must load back cleanly.
	if _, err := execute(t, NewValidateCommand(&GlobalOptions{}), path); err != nil {
		t.Errorf("validate of init output failed: %v", err)
	}
}

func TestRunInit_Stdout(t *testing.T) {
	out, err := execute(t, NewInitCommand(), "-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "noise_filter: true") || !strings.Contains(out, "issue_threshold: 70") {
		t.Errorf("stdout config:\n%s", out)
	}
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	log := writeFile(t, dir, "client.log", strings.Join([]string{
		"2024-01-01 08:00:00 [INFO] Net.cpp:10 Heart beat: ok",
		"2024-01-01 08:00:01 [ERROR] app.cpp:12 main_watchdog hit",
		"2024-01-01 08:00:02 [INFO] Net.cpp:11 Response: 200",
	}, "\n"))

	out, err := execute(t, NewFilterCommand(testGlobals(t, "")), log)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if out != "2024-01-01 08:00:01 [ERROR] app.cpp:12 main_watchdog hit\n" {
		t.Errorf("filter output = %q", out)
	}
}

func TestRunSearch(t *testing.T) {
	log := writeFile(t, t.TempDir(), "client.log", frozenLog)

	out, err := execute(t, NewSearchCommand(testGlobals(t, "")), "WATCHDOG", log)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "2: 2024-01-01 09:00:00 [ERROR] app.cpp:12 main_watchdog hit") {
		t.Errorf("missing match:\n%s", out)
	}
	if !strings.Contains(out, `1 match(es) for "WATCHDOG"`) {
		t.Errorf("missing count:\n%s", out)
	}
}

func TestRunSearch_NeedsTermAndFile(t *testing.T) {
	if _, err := execute(t, NewSearchCommand(testGlobals(t, "")), "term"); err == nil {
		t.Error("Expected error without a file")
	}
}

func TestRunExplain_Arg(t *testing.T) {
	out, err := execute(t, NewExplainCommand(), "2024-01-15 10:30:00 [ERROR] app.cpp:12 main_watchdog hit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Severity: critical") || !strings.Contains(out, "Meaning:  The app froze or became unresponsive") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunExplain_Unknown(t *testing.T) {
	_, err := execute(t, NewExplainCommand(), "heartbeat ok")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("error = %v, want not_found", err)
	}
}

func TestRunExplain_Stdin(t *testing.T) {
	cmd := NewExplainCommand()
	cmd.SetIn(strings.NewReader("heartbeat ok\n\n2024-01-15 10:30:00 [ERROR] app.cpp:12 main_watchdog hit\n"))

	out, err := execute(t, cmd)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "heartbeat ok") {
		t.Error("unexplained lines should be skipped")
	}
	if !strings.Contains(out, "main_watchdog hit\n  Severity: critical") {
		t.Errorf("output:\n%s", out)
	}

	cmd = NewExplainCommand()
	cmd.SetIn(strings.NewReader("heartbeat ok\n"))
	out, _ = execute(t, cmd)
	if !strings.Contains(out, "No explainable lines found.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunDetect(t *testing.T) {
	log := writeFile(t, t.TempDir(), "client.log", healthyLog)
	g := testGlobals(t, "")

	out, err := execute(t, NewDetectCommand(g), log)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	for _, want := range []string{"File: " + log, "Platform:", "Location:", "primary device:      unknown", "Issues: 0 DNS error(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, NewDetectCommand(g), "-o", "json", log)
	if err != nil {
		t.Fatalf("detect -o json failed: %v", err)
	}
	var got []fileProfile
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].File != log || got[0].Profile == nil {
		t.Errorf("profiles = %+v", got)
	}

	if _, err := execute(t, NewDetectCommand(g), "-o", "xml", log); err == nil {
		t.Error("Expected error for unknown output format")
	}
}

func TestTristate(t *testing.T) {
	yes, no := true, false
	if tristate(nil) != "unknown" || tristate(&yes) != "yes" || tristate(&no) != "no" {
		t.Error("unexpected tristate rendering")
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runServe(ctx, testGlobals(t, ""), &ServeOptions{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Errorf("runServe() error = %v", err)
	}
}

func TestRunServe_BadAddr(t *testing.T) {
	err := runServe(context.Background(), testGlobals(t, ""), &ServeOptions{Addr: "not-an-address"})
	if apperr.CodeOf(err) != apperr.CodeConfig {
		t.Errorf("error = %v, want config", err)
	}
}

func TestGlobalOptions_LogFlagsOverride(t *testing.T) {
	g := testGlobals(t, "")
	g.LogFormat = "json"

	cfg, logger, err := g.load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if logger == nil || cfg.Logging.Format != "json" || cfg.Logging.Level != "error" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	g.LogLevel = "loud"
	if _, _, err := g.load(context.Background()); apperr.CodeOf(err) != apperr.CodeConfig {
		t.Errorf("error = %v, want config", err)
	}
}
