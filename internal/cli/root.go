// Package cli provides the command-line interface for logdoctor.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes args against a fresh root command with the given streams
// and returns the exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	commands.ExitCode = 0
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors stops cobra from printing this itself.
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	g := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "logdoctor",
		Short: "Diagnose time-tracker client problems from their logs",
		Long: `logdoctor reads desktop, mobile and browser-extension client logs and
explains what went wrong.

It reports:
  - Tracking sessions, idle decisions and lost time
  - Crashes, freezes, helper failures and memory pressure
  - Network blocks, authentication and server errors
  - Screenshot, location and geofence problems
  - A health score with the most likely root cause

Configuration is read from --config, ./logdoctor.yaml or
~/.config/logdoctor/logdoctor.yaml, and LOGDOCTOR_* environment variables
(e.g. LOGDOCTOR_HEALTH_ISSUE_THRESHOLD=80).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.ConfigFile, "config", "", "Config file (default: ./logdoctor.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&g.LogFormat, "log-format", "", "Log format (console|json)")

	rootCmd.AddCommand(commands.NewAnalyzeCommand(g))
	rootCmd.AddCommand(commands.NewFilterCommand(g))
	rootCmd.AddCommand(commands.NewSearchCommand(g))
	rootCmd.AddCommand(commands.NewExplainCommand())
	rootCmd.AddCommand(commands.NewDetectCommand(g))
	rootCmd.AddCommand(commands.NewServeCommand(g))
	rootCmd.AddCommand(commands.NewDiagnoseCommand(g))
	rootCmd.AddCommand(commands.NewValidateCommand(g))
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
