package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term> <file|glob|dir>...",
		Short: "Find lines containing a term",
		Long: `Search merged log files for a term, ignoring case.

Matches are printed with their line number in the merged text.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOrBackground(cmd.Context())
			cfg, logger, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			text, _, err := loadInputs(ctx, args[1:], cfg.Analysis.Limits(), logger)
			if err != nil {
				return err
			}

			term := args[0]
			matches := parser.Search(text, term)
			out := cmd.OutOrStdout()
			for _, m := range matches {
				fmt.Fprintf(out, "%d: %s\n", m.LineNum, m.Line)
			}
			fmt.Fprintf(out, "%d match(es) for %q\n", len(matches), term)
			return nil
		},
	}
}
