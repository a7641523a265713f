package config

import (
	"time"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/httpstore"
)

// Default values for configuration fields.
const (
	// DefaultTemplateDir is the template directory when none is configured.
	DefaultTemplateDir = "."

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "INFO"

	// DefaultPollInterval is the remote template polling interval in watch mode.
	DefaultPollInterval = 30 * time.Second

	// DefaultDebounce is the quiet period after a file change.
	DefaultDebounce = 200 * time.Millisecond

	// DefaultHistorySize is the number of analysis events kept in memory.
	DefaultHistorySize = 100

	// DefaultMetricsAddr is the Prometheus listen address in watch mode.
	DefaultMetricsAddr = ":9090"

	// DefaultDebugAddr is the introspection listen address in watch mode.
	DefaultDebugAddr = "localhost:6060"

	// AddrDisabled turns off a listener.
	AddrDisabled = "off"
)

// DefaultExtensions are the file extensions treated as templates.
var DefaultExtensions = []string{".ftl", ".ftlh"}

// SetDefaults applies default values to unset configuration fields.
// It modifies cfg in place and runs before validation.
func SetDefaults(cfg *Config) {
	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = DefaultTemplateDir
	}
	if len(cfg.Templates.Extensions) == 0 {
		cfg.Templates.Extensions = append([]string(nil), DefaultExtensions...)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	if cfg.Analysis.ConditionalStrategy == "" {
		cfg.Analysis.ConditionalStrategy = extractor.StrategyFalse
	}
	if cfg.Analysis.IterationSize == 0 {
		cfg.Analysis.IterationSize = extractor.DefaultIterationSize
	}

	if cfg.Workbench.HistorySize == 0 {
		cfg.Workbench.HistorySize = DefaultHistorySize
	}
	if cfg.Workbench.MetricsAddr == "" {
		cfg.Workbench.MetricsAddr = DefaultMetricsAddr
	}
	if cfg.Workbench.DebugAddr == "" {
		cfg.Workbench.DebugAddr = DefaultDebugAddr
	}
}

// ExtractorConfig returns the extractor settings.
func (a *AnalysisConfig) ExtractorConfig() extractor.Config {
	return extractor.Config{
		ConditionalStrategy: a.ConditionalStrategy,
		RandomSeed:          a.RandomSeed,
		IterationSize:       a.IterationSize,
		ParallelPasses:      a.ParallelPasses,
	}
}

// GetTimeout returns the configured request timeout or the default if not
// specified or invalid.
func (r *RemoteConfig) GetTimeout() time.Duration {
	return parseDuration(r.Timeout, httpstore.DefaultTimeout)
}

// GetRetryDelay returns the configured retry delay or the default.
func (r *RemoteConfig) GetRetryDelay() time.Duration {
	return parseDuration(r.RetryDelay, httpstore.DefaultRetryDelay)
}

// GetPollInterval returns the configured polling interval or the default.
func (r *RemoteConfig) GetPollInterval() time.Duration {
	return parseDuration(r.PollInterval, DefaultPollInterval)
}

// FetchOptions returns the httpstore options for the remote source.
func (r *RemoteConfig) FetchOptions() httpstore.FetchOptions {
	return httpstore.FetchOptions{
		Timeout:    r.GetTimeout(),
		Retries:    r.Retries,
		RetryDelay: r.GetRetryDelay(),
	}
}

// StoreAuth converts Auth for httpstore. It returns nil when unset.
func (r *RemoteConfig) StoreAuth() *httpstore.AuthConfig {
	if r.Auth == nil {
		return nil
	}
	return &httpstore.AuthConfig{
		Type:     r.Auth.Type,
		Username: r.Auth.Username,
		Password: r.Auth.Password,
		Token:    r.Auth.Token,
		Headers:  r.Auth.Headers,
	}
}

// ListenAddr returns addr, or "" when addr is "off".
func ListenAddr(addr string) string {
	if addr == AddrDisabled {
		return ""
	}
	return addr
}

// GetDebounce returns the configured debounce or the default.
func (w *WorkbenchConfig) GetDebounce() time.Duration {
	return parseDuration(w.Debounce, DefaultDebounce)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
