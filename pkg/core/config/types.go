package config

import "ftlvars/pkg/templating"

// Config is the ftlvars configuration file.
type Config struct {
	// Templates configures where template sources come from.
	Templates TemplatesConfig `yaml:"templates"`

	// Logging configures the log output.
	Logging LoggingConfig `yaml:"logging"`

	// Analysis configures the variable extractor.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Render configures template rendering.
	Render RenderConfig `yaml:"render"`

	// Workbench configures watch mode.
	Workbench WorkbenchConfig `yaml:"workbench"`
}

// TemplatesConfig selects the template sources.
type TemplatesConfig struct {
	// Dir is the local template directory.
	// Default: "."
	Dir string `yaml:"dir"`

	// Extensions are the file extensions treated as templates.
	// Default: [".ftl", ".ftlh"]
	Extensions []string `yaml:"extensions"`

	// Remote serves templates over HTTP instead of Dir when BaseURL is set.
	Remote RemoteConfig `yaml:"remote"`
}

// RemoteConfig configures the HTTP template source.
type RemoteConfig struct {
	// BaseURL is joined with the template name to build each request URL.
	BaseURL string `yaml:"base_url"`

	// Templates are fetched on startup so the workbench can poll them.
	Templates []string `yaml:"templates"`

	// Timeout is the per-request timeout (e.g. "10s").
	Timeout string `yaml:"timeout"`

	// Retries is the number of retries after a failed request.
	Retries int `yaml:"retries"`

	// RetryDelay is the base wait between retries.
	RetryDelay string `yaml:"retry_delay"`

	// PollInterval is how often watch mode re-fetches remote templates.
	// Default: 30s
	PollInterval string `yaml:"poll_interval"`

	// Auth adds credentials to every request.
	Auth *AuthConfig `yaml:"auth"`
}

// AuthConfig holds HTTP credentials for the remote template source.
type AuthConfig struct {
	// Type is "basic", "bearer" or "header".
	Type     string            `yaml:"type"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Token    string            `yaml:"token"`
	Headers  map[string]string `yaml:"headers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of ERROR, WARN, WARNING, INFO, DEBUG.
	// Default: INFO
	Level string `yaml:"level"`
}

// AnalysisConfig configures the variable extractor.
type AnalysisConfig struct {
	// ConditionalStrategy is "false" or "random".
	// Default: "false"
	ConditionalStrategy string `yaml:"conditional_strategy"`

	// RandomSeed seeds the random strategy.
	RandomSeed uint64 `yaml:"random_seed"`

	// IterationSize is the sequence size reported during the iteration pass.
	// Default: 3
	IterationSize int `yaml:"iteration_size"`

	// ParallelPasses runs the three passes concurrently.
	ParallelPasses bool `yaml:"parallel_passes"`

	// MaxCallDepth bounds macro, function and include nesting (0 uses the engine default).
	MaxCallDepth int `yaml:"max_call_depth"`

	// MaxSteps bounds executed nodes per pass (0 uses the engine default, negative disables).
	MaxSteps int `yaml:"max_steps"`
}

// RenderConfig configures rendering.
type RenderConfig struct {
	// PostProcessors run in order over rendered output.
	PostProcessors []templating.PostProcessorConfig `yaml:"post_processors"`
}

// WorkbenchConfig configures watch mode.
type WorkbenchConfig struct {
	// Debounce is the quiet period before a changed file is re-analyzed.
	// Default: 200ms
	Debounce string `yaml:"debounce"`

	// HistorySize is the number of analysis events kept for introspection.
	// Default: 100
	HistorySize int `yaml:"history_size"`

	// MetricsAddr is the Prometheus listen address. "off" disables it.
	// Default: ":9090"
	MetricsAddr string `yaml:"metrics_addr"`

	// DebugAddr is the introspection listen address. "off" disables it.
	// Default: "localhost:6060"
	DebugAddr string `yaml:"debug_addr"`
}
