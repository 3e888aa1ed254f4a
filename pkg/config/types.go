// Package config provides configuration loading and validation for logdoctor.
package config

import (
	"time"

	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// Config is the root configuration. It is layered from defaults, an
// optional YAML file and LOGDOCTOR_* environment variables.
type Config struct {
	Analysis AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Health   HealthConfig    `mapstructure:"health" yaml:"health"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Webhooks []WebhookConfig `mapstructure:"webhooks" yaml:"webhooks,omitempty"`
}

// AnalysisConfig controls how logs are read and analysed.
type AnalysisConfig struct {
	IncludeDebug bool `mapstructure:"include_debug" yaml:"include_debug"`
	IncludeTrace bool `mapstructure:"include_trace" yaml:"include_trace"`
	NoiseFilter  bool `mapstructure:"noise_filter" yaml:"noise_filter"`

	// ChunkSize is the number of lines scanned between cancellation checks.
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`

	MaxInputBytes int64 `mapstructure:"max_input_bytes" yaml:"max_input_bytes"`
	MaxLineBytes  int   `mapstructure:"max_line_bytes" yaml:"max_line_bytes"`

	// TimezoneOffset is a display-only "±HH:MM" offset.
	TimezoneOffset string `mapstructure:"timezone_offset" yaml:"timezone_offset,omitempty"`

	// DateFrom and DateTo are inclusive YYYY-MM-DD bounds.
	DateFrom string `mapstructure:"date_from" yaml:"date_from,omitempty"`
	DateTo   string `mapstructure:"date_to" yaml:"date_to,omitempty"`
}

// Limits returns the loader limits for this configuration.
func (a AnalysisConfig) Limits() parser.Limits {
	return parser.Limits{MaxInputBytes: a.MaxInputBytes, MaxLineBytes: a.MaxLineBytes}
}

// HealthConfig tunes the health score and the exit-code threshold.
type HealthConfig struct {
	LatestVersion string `mapstructure:"latest_version" yaml:"latest_version"`

	// IssueThreshold is the score below which analyze reports issues.
	IssueThreshold int `mapstructure:"issue_threshold" yaml:"issue_threshold"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when issues are detected (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint that receives reports.
type WebhookConfig struct {
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `mapstructure:"url" yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// Trigger defaults to on_issues.
	Trigger WebhookTrigger `mapstructure:"trigger" yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`

	// Gzip compresses the request body.
	Gzip bool `mapstructure:"gzip" yaml:"gzip,omitempty"`
}

// ShouldFire reports whether the webhook fires for an analysis outcome.
func (w WebhookConfig) ShouldFire(hasIssues bool) bool {
	switch w.Trigger {
	case WebhookTriggerAlways:
		return true
	case WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}
