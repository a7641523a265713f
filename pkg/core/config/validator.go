package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"ftlvars/pkg/templating"
)

// ValidateStructure performs structural validation on the configuration.
// It checks value ranges, enumerations and duration syntax. It does not
// check that templates exist or compile.
func ValidateStructure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateTemplatesConfig(&cfg.Templates); err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateAnalysisConfig(&cfg.Analysis); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if err := validateRenderConfig(&cfg.Render); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := validateWorkbenchConfig(&cfg.Workbench); err != nil {
		return fmt.Errorf("workbench: %w", err)
	}

	return nil
}

func validateTemplatesConfig(tc *TemplatesConfig) error {
	if tc.Dir == "" && tc.Remote.BaseURL == "" {
		return fmt.Errorf("dir or remote.base_url must be set")
	}

	for i, ext := range tc.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extensions[%d]: %q must start with a dot", i, ext)
		}
	}

	if err := validateRemoteConfig(&tc.Remote); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	return nil
}

func validateRemoteConfig(rc *RemoteConfig) error {
	if rc.BaseURL == "" {
		if len(rc.Templates) > 0 {
			return fmt.Errorf("templates require base_url")
		}
		return nil
	}

	u, err := url.Parse(rc.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got %q", u.Scheme)
	}

	if rc.Retries < 0 {
		return fmt.Errorf("retries cannot be negative, got %d", rc.Retries)
	}

	durations := []struct{ field, value string }{
		{"timeout", rc.Timeout},
		{"retry_delay", rc.RetryDelay},
		{"poll_interval", rc.PollInterval},
	}
	for _, d := range durations {
		if err := validateDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.field, err)
		}
	}

	if rc.Auth != nil {
		if err := validateAuthConfig(rc.Auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	return nil
}

func validateAuthConfig(ac *AuthConfig) error {
	switch ac.Type {
	case "basic":
		if ac.Username == "" {
			return fmt.Errorf("username cannot be empty for basic auth")
		}
	case "bearer":
		if ac.Token == "" {
			return fmt.Errorf("token cannot be empty for bearer auth")
		}
	case "header":
		if len(ac.Headers) == 0 {
			return fmt.Errorf("headers cannot be empty for header auth")
		}
	default:
		return fmt.Errorf("type must be basic, bearer or header, got %q", ac.Type)
	}
	return nil
}

func validateLoggingConfig(lc *LoggingConfig) error {
	switch strings.ToUpper(lc.Level) {
	case "ERROR", "WARN", "WARNING", "INFO", "DEBUG":
		return nil
	}
	return fmt.Errorf("level must be ERROR, WARN, WARNING, INFO or DEBUG, got %q", lc.Level)
}

func validateAnalysisConfig(ac *AnalysisConfig) error {
	if err := ac.ExtractorConfig().Validate(); err != nil {
		return err
	}

	if ac.MaxCallDepth < 0 {
		return fmt.Errorf("max_call_depth cannot be negative, got %d", ac.MaxCallDepth)
	}

	return nil
}

func validateRenderConfig(rc *RenderConfig) error {
	for i, pp := range rc.PostProcessors {
		if _, err := templating.NewPostProcessor(pp); err != nil {
			return fmt.Errorf("post_processors[%d]: %w", i, err)
		}
	}
	return nil
}

func validateWorkbenchConfig(wc *WorkbenchConfig) error {
	if err := validateDuration(wc.Debounce); err != nil {
		return fmt.Errorf("debounce: %w", err)
	}

	if wc.HistorySize < 0 {
		return fmt.Errorf("history_size cannot be negative, got %d", wc.HistorySize)
	}

	return nil
}

func validateDuration(value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration cannot be negative, got %s", value)
	}
	return nil
}
