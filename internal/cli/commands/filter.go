package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// NewFilterCommand creates the filter command.
func NewFilterCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <file|glob|dir>...",
		Short: "Print logs with known noise removed",
		Long: `Merge the given log files and print them with high-volume noise removed.

Error, warning, audit, lifecycle, idle, screenshot and location lines are
always kept. Heartbeats, successful HTTP responses, input hooks and storage
reads are dropped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOrBackground(cmd.Context())
			cfg, logger, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			text, _, err := loadInputs(ctx, args, cfg.Analysis.Limits(), logger)
			if err != nil {
				return err
			}

			lines := parser.SplitLines(text)
			kept := parser.FilterNoise(lines)
			out := cmd.OutOrStdout()
			for _, line := range kept {
				fmt.Fprintln(out, line)
			}
			logger.Info("noise filtered", zap.Int("input_lines", len(lines)), zap.Int("kept_lines", len(kept)))
			return nil
		},
	}
}
