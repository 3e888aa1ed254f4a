package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a logdoctor configuration file without running analysis.

Checks:
  - YAML syntax
  - Date range and timezone offset formats
  - Size limits and health threshold
  - Logging level and format
  - Webhook URLs and triggers

With no argument the --config file, or the default search path, is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.ConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			ctx := ctxOrBackground(cmd.Context())
			out := cmd.OutOrStdout()

			name := path
			if name == "" {
				name = "default configuration"
			}
			fmt.Fprintf(out, "Validating %s...\n", name)

			cfg, err := config.Load(ctx, path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Fprintf(out, "\nConfiguration valid!\n")
			fmt.Fprintf(out, "  Noise filter:    %v\n", cfg.Analysis.NoiseFilter)
			fmt.Fprintf(out, "  Include debug:   %v\n", cfg.Analysis.IncludeDebug)
			fmt.Fprintf(out, "  Include trace:   %v\n", cfg.Analysis.IncludeTrace)
			if cfg.Analysis.DateFrom != "" || cfg.Analysis.DateTo != "" {
				fmt.Fprintf(out, "  Date range:      %s .. %s\n", orAny(cfg.Analysis.DateFrom), orAny(cfg.Analysis.DateTo))
			}
			if cfg.Analysis.TimezoneOffset != "" {
				fmt.Fprintf(out, "  Display offset:  %s\n", cfg.Analysis.TimezoneOffset)
			}
			fmt.Fprintf(out, "  Latest version:  %s\n", cfg.Health.LatestVersion)
			fmt.Fprintf(out, "  Issue threshold: %d\n", cfg.Health.IssueThreshold)
			fmt.Fprintf(out, "  Server address:  %s\n", cfg.Server.Addr)
			fmt.Fprintf(out, "  Webhooks:        %d\n", len(cfg.Webhooks))
			for i, wh := range cfg.Webhooks {
				name := wh.Name
				if name == "" {
					name = wh.URL
				}
				fmt.Fprintf(out, "    %d. %s [%s]\n", i+1, name, wh.Trigger)
			}
			return nil
		},
	}
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
