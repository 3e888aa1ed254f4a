package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/pkg/explain"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [line]",
		Short: "Explain a log line in plain English",
		Long: `Explain what a log line means and what to do about it.

With no argument, every line read from stdin is explained; lines with no
known meaning are skipped.

Example:
  logdoctor explain "2024-01-15 10:30:00 [ERROR] app.cpp:12 main_watchdog hit"
  grep ERROR client.log | logdoctor explain`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				exp, ok := explain.Line(args[0])
				if !ok {
					return apperr.New(apperr.CodeNotFound, "no explanation available for this line", nil)
				}
				writeExplanation(out, exp)
				return nil
			}
			return explainStream(cmd.InOrStdin(), out)
		},
	}
}

func explainStream(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	explained := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		exp, ok := explain.Line(line)
		if !ok {
			continue
		}
		if explained > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, truncate(line, 160))
		writeExplanation(out, exp)
		explained++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if explained == 0 {
		fmt.Fprintln(out, "No explainable lines found.")
	}
	return nil
}

func writeExplanation(w io.Writer, exp explain.Explanation) {
	fmt.Fprintf(w, "  Severity: %s\n", exp.Severity)
	fmt.Fprintf(w, "  Meaning:  %s\n", exp.Text)
	if exp.Action != "" {
		fmt.Fprintf(w, "  Action:   %s\n", exp.Action)
	}
}
