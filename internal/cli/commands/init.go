package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/pkg/config"
)

// DefaultConfigPath is where init writes when no path is given.
const DefaultConfigPath = "logdoctor.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Long: `Write a configuration file containing every setting at its default value.

The file is written to ./logdoctor.yaml unless a path is given. Use "-" to
print to stdout. An existing file is only replaced with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg := config.DefaultConfig()

			if path == "-" {
				return config.Write(cmd.OutOrStdout(), cfg)
			}

			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if os.IsExist(err) {
				return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("%s already exists (use --force to replace it)", path), err)
			}
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			if err := config.Write(f, cfg); err != nil {
				_ = f.Close()
				return fmt.Errorf("writing %s: %w", path, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")
	return cmd
}
