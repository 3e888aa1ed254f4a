package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/logdoctor/internal/httpserver"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(g *GlobalOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Start an HTTP API for analysis, explanation and search.

Endpoints:
  GET  /api/health
  POST /api/analyze   {"text": "..."} or {"files": [{"name", "content"}], "options": {...}}
  POST /api/explain   {"line": "..."}
  POST /api/search    {"text": "...", "term": "..."}

The server stops cleanly on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(ctxOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, g *GlobalOptions, opts *ServeOptions) error {
	cfg, logger, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	srv := httpserver.NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("shutting down", zap.String("addr", srv.Addr()))
		return srv.Stop()
	})
	return eg.Wait()
}
