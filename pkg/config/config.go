package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// DefaultFileName is the config file searched for when no path is given.
const DefaultFileName = "logdoctor"

// Load layers defaults, the configuration file and environment overrides,
// then validates the result. An explicit path must exist; with an empty
// path, logdoctor.yaml is looked up in the working directory and
// ~/.config/logdoctor and may be absent.
func Load(_ context.Context, path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "logdoctor"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Write serialises cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Validate checks a configuration for errors and fills per-webhook
// defaults.
func Validate(cfg *Config) error {
	if err := validateAnalysis(&cfg.Analysis); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if cfg.Health.IssueThreshold < 0 || cfg.Health.IssueThreshold > 100 {
		return fmt.Errorf("health.issue_threshold: must be between 0 and 100, got %d", cfg.Health.IssueThreshold)
	}

	if cfg.Server.Addr == "" {
		return errors.New("server.addr: is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes: must be positive")
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateAnalysis(a *AnalysisConfig) error {
	if a.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", a.ChunkSize)
	}
	if a.MaxInputBytes < 0 {
		return errors.New("max_input_bytes must not be negative")
	}
	if a.MaxLineBytes < 0 {
		return errors.New("max_line_bytes must not be negative")
	}

	if a.TimezoneOffset != "" {
		if _, err := parser.ParseTZOffset(a.TimezoneOffset); err != nil {
			return fmt.Errorf("timezone_offset: %w", err)
		}
	}

	if _, err := analyzer.ParseDateRange(a.DateFrom, a.DateTo); err != nil {
		return fmt.Errorf("date range: %w", err)
	}

	return nil
}

func validateLogging(l *LoggingConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", l.Level)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid format %q (must be console or json)", l.Format)
	}
	return nil
}

// ValidateWebhook checks one webhook, expands its token and fills the
// default trigger and timeout.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnIssues
	case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands a whole-value ${VAR} or $VAR reference.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}
	return s
}
