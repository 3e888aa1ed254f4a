package config

import (
	"time"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
)

// Default values for configuration.
const (
	DefaultChunkSize      = 10000
	DefaultMaxInputBytes  = 64 << 20
	DefaultMaxLineBytes   = 1 << 20
	DefaultIssueThreshold = 70
	DefaultServerAddr     = "127.0.0.1:8780"
	DefaultMaxBodyBytes   = 32 << 20
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultWebhookTimeout = 10 * time.Second
)

// EnvPrefix prefixes every environment override, e.g.
// LOGDOCTOR_ANALYSIS_NOISE_FILTER=false.
const EnvPrefix = "LOGDOCTOR"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			NoiseFilter:   true,
			ChunkSize:     DefaultChunkSize,
			MaxInputBytes: DefaultMaxInputBytes,
			MaxLineBytes:  DefaultMaxLineBytes,
		},
		Health: HealthConfig{
			LatestVersion:  analyzer.DefaultLatestVersion,
			IssueThreshold: DefaultIssueThreshold,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Webhooks: []WebhookConfig{},
	}
}

// defaults flattens DefaultConfig into viper keys.
func defaults() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"analysis.include_debug":   d.Analysis.IncludeDebug,
		"analysis.include_trace":   d.Analysis.IncludeTrace,
		"analysis.noise_filter":    d.Analysis.NoiseFilter,
		"analysis.chunk_size":      d.Analysis.ChunkSize,
		"analysis.max_input_bytes": d.Analysis.MaxInputBytes,
		"analysis.max_line_bytes":  d.Analysis.MaxLineBytes,
		"analysis.timezone_offset": d.Analysis.TimezoneOffset,
		"analysis.date_from":       d.Analysis.DateFrom,
		"analysis.date_to":         d.Analysis.DateTo,
		"health.latest_version":    d.Health.LatestVersion,
		"health.issue_threshold":   d.Health.IssueThreshold,
		"server.addr":              d.Server.Addr,
		"server.max_body_bytes":    d.Server.MaxBodyBytes,
		"logging.level":            d.Logging.Level,
		"logging.format":           d.Logging.Format,
	}
}
