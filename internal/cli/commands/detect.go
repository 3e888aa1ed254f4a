package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/pkg/detector"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// DetectOptions holds options for the detect command.
type DetectOptions struct {
	Output string
}

// fileProfile pairs an input path with what was detected in it.
type fileProfile struct {
	File    string            `json:"file"`
	Profile *detector.Profile `json:"profile"`
}

// NewDetectCommand creates the detect command.
func NewDetectCommand(g *GlobalOptions) *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <file|glob|dir>...",
		Short: "Detect client platform, version and device from logs",
		Long: `Detect which client produced a log and what state the device was in.

Reports:
  - Platform, version and build, with known problems for that version
  - User and organisation
  - Device model and OS, location services and permissions
  - Power and connectivity state, and counts of common failure lines

Example:
  logdoctor detect client.log
  logdoctor detect -o json logs/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	return cmd
}

func runDetect(cmd *cobra.Command, args []string, g *GlobalOptions, opts *DetectOptions) error {
	if opts.Output != "text" && opts.Output != "json" {
		return apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("unknown output format %q (use text or json)", opts.Output), nil)
	}
	ctx := ctxOrBackground(cmd.Context())
	cfg, logger, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	paths, err := parser.ExpandInputs(args)
	if err != nil {
		return apperr.New(apperr.CodeInvalidInput, "expanding inputs", err)
	}

	d := detector.New()
	results := make([]fileProfile, 0, len(paths))
	for _, path := range paths {
		p, err := d.DetectFromFile(ctx, path, cfg.Analysis.Limits())
		if err != nil {
			return fmt.Errorf("detecting %s: %w", path, err)
		}
		results = append(results, fileProfile{File: path, Profile: p})
	}

	out := cmd.OutOrStdout()
	if opts.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		writeProfile(out, r.File, r.Profile)
	}
	return nil
}

func writeProfile(w io.Writer, file string, p *detector.Profile) {
	fmt.Fprintf(w, "File: %s\n", file)

	platform := p.Platform
	if platform == "" {
		platform = "unknown"
	}
	fmt.Fprintf(w, "  Platform:  %s\n", platform)
	if v := p.FullVersion(); v != "" {
		fmt.Fprintf(w, "  Version:   %s\n", v)
	} else {
		fmt.Fprintln(w, "  Version:   not found")
	}
	if p.KnownIssue != "" {
		fmt.Fprintf(w, "  Known issue: %s\n", p.KnownIssue)
	}
	if id := identity(p.User); id != "" {
		fmt.Fprintf(w, "  User:      %s\n", id)
	}
	if id := identity(p.Org); id != "" {
		fmt.Fprintf(w, "  Org:       %s\n", id)
	}
	if p.Device.Model != "" || p.Device.Manufacturer != "" {
		fmt.Fprintf(w, "  Device:    %s %s (OS %s)\n", p.Device.Manufacturer, p.Device.Model, orUnknown(p.Device.OSVersion))
	}

	fmt.Fprintln(w, "  Location:")
	fmt.Fprintf(w, "    primary device:      %s\n", tristate(p.Location.IsPrimary))
	fmt.Fprintf(w, "    services enabled:    %s\n", tristate(p.Location.ServicesEnabled))
	fmt.Fprintf(w, "    permissions enabled: %s\n", tristate(p.Location.PermissionsEnabled))
	fmt.Fprintf(w, "    precise accuracy:    %s\n", tristate(p.Location.AccuracyEnabled))
	if p.IOSLocationPermission != "" {
		fmt.Fprintf(w, "    iOS permission:      %s\n", p.IOSLocationPermission)
	}
	if p.IOSLocationBlocked {
		fmt.Fprintln(w, "    iOS blocked a location request")
	}

	fmt.Fprintln(w, "  Permissions:")
	fmt.Fprintf(w, "    notifications:       %s\n", tristate(p.Permissions.Notification))
	fmt.Fprintf(w, "    foreground location: %s\n", tristate(p.Permissions.ForegroundLocation))
	fmt.Fprintf(w, "    background location: %s\n", tristate(p.Permissions.BackgroundLocation))
	fmt.Fprintf(w, "    motion:              %s\n", tristate(p.Permissions.Motion))

	fmt.Fprintln(w, "  Device state:")
	fmt.Fprintf(w, "    battery opt disabled: %s\n", tristate(p.DeviceState.BatteryOptDisabled))
	fmt.Fprintf(w, "    power save mode:      %s\n", tristate(p.DeviceState.PowerSaveMode))
	fmt.Fprintf(w, "    wifi enabled:         %s\n", tristate(p.DeviceState.WifiEnabled))

	fmt.Fprintf(w, "  Issues: %d DNS error(s), %d unclean startup(s), %d job-site block(s)\n",
		p.Issues.DNSErrors, p.Issues.UncleanStartups, p.Issues.JobSiteBlocks)
	if p.BraveInLogs {
		fmt.Fprintln(w, "  Brave browser mentioned in logs")
	}
}

func identity(id detector.Identity) string {
	switch {
	case id.Name != "" && id.ID != "":
		return fmt.Sprintf("%s (%s)", id.Name, id.ID)
	case id.Email != "":
		return id.Email
	case id.Name != "":
		return id.Name
	default:
		return id.ID
	}
}

func tristate(b *bool) string {
	switch {
	case b == nil:
		return "unknown"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
