package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/internal/logging"
	"github.com/ccollicutt/logdoctor/pkg/config"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

// load reads the configuration and builds the logger. Log flags override
// the configured logging settings.
func (g *GlobalOptions) load(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(ctx, g.ConfigFile)
	if err != nil {
		return nil, nil, apperr.New(apperr.CodeConfig, "loading config", err)
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, apperr.New(apperr.CodeConfig, "building logger", err)
	}
	return cfg, logger, nil
}

// loadInputs expands args into files and reads them. A missing file or an
// oversized input is reported with its apperr code.
func loadInputs(ctx context.Context, args []string, limits parser.Limits, logger *zap.Logger) (string, []parser.InputFile, error) {
	paths, err := parser.ExpandInputs(args)
	if err != nil {
		return "", nil, apperr.New(apperr.CodeInvalidInput, "expanding inputs", err)
	}
	if len(paths) == 0 {
		return "", nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("no log files matched %v", args), nil)
	}
	logger.Debug("loading inputs", zap.Strings("paths", paths))

	text, files, err := parser.LoadFiles(ctx, paths, limits)
	switch {
	case err == nil:
		return text, files, nil
	case errors.Is(err, parser.ErrInputTooLarge):
		return "", nil, apperr.New(apperr.CodeInputTooLarge, "input too large", err)
	case errors.Is(err, os.ErrNotExist):
		return "", nil, apperr.New(apperr.CodeNotFound, "log file not found", err)
	default:
		return "", nil, fmt.Errorf("loading inputs: %w", err)
	}
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
