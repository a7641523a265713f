package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ftlvars/pkg/templating"
)

func validConfig() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

func TestValidateStructure_Success(t *testing.T) {
	assert.NoError(t, ValidateStructure(validConfig()))
}

func TestValidateStructure_NilConfig(t *testing.T) {
	err := ValidateStructure(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config is nil")
}

func TestValidateStructure_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "no template source",
			mutate:  func(cfg *Config) { cfg.Templates.Dir = "" },
			wantErr: "templates: dir or remote.base_url must be set",
		},
		{
			name:    "extension without dot",
			mutate:  func(cfg *Config) { cfg.Templates.Extensions = []string{"ftl"} },
			wantErr: `templates: extensions[0]: "ftl" must start with a dot`,
		},
		{
			name:    "remote templates without base url",
			mutate:  func(cfg *Config) { cfg.Templates.Remote.Templates = []string{"a.ftl"} },
			wantErr: "templates: remote: templates require base_url",
		},
		{
			name:    "remote scheme",
			mutate:  func(cfg *Config) { cfg.Templates.Remote.BaseURL = "ftp://example.com" },
			wantErr: `templates: remote: base_url must use http or https, got "ftp"`,
		},
		{
			name: "remote timeout",
			mutate: func(cfg *Config) {
				cfg.Templates.Remote.BaseURL = "https://example.com"
				cfg.Templates.Remote.Timeout = "fast"
			},
			wantErr: "templates: remote: timeout:",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.Templates.Remote.BaseURL = "https://example.com"
				cfg.Templates.Remote.Retries = -1
			},
			wantErr: "templates: remote: retries cannot be negative",
		},
		{
			name: "bearer without token",
			mutate: func(cfg *Config) {
				cfg.Templates.Remote.BaseURL = "https://example.com"
				cfg.Templates.Remote.Auth = &AuthConfig{Type: "bearer"}
			},
			wantErr: "templates: remote: auth: token cannot be empty",
		},
		{
			name: "unknown auth type",
			mutate: func(cfg *Config) {
				cfg.Templates.Remote.BaseURL = "https://example.com"
				cfg.Templates.Remote.Auth = &AuthConfig{Type: "digest"}
			},
			wantErr: `templates: remote: auth: type must be basic, bearer or header, got "digest"`,
		},
		{
			name:    "log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "TRACE" },
			wantErr: `logging: level must be ERROR, WARN, WARNING, INFO or DEBUG, got "TRACE"`,
		},
		{
			name:    "conditional strategy",
			mutate:  func(cfg *Config) { cfg.Analysis.ConditionalStrategy = "true" },
			wantErr: "analysis: conditional strategy",
		},
		{
			name:    "iteration size",
			mutate:  func(cfg *Config) { cfg.Analysis.IterationSize = -2 },
			wantErr: "analysis: iteration size must not be negative",
		},
		{
			name:    "call depth",
			mutate:  func(cfg *Config) { cfg.Analysis.MaxCallDepth = -1 },
			wantErr: "analysis: max_call_depth cannot be negative",
		},
		{
			name: "post processor",
			mutate: func(cfg *Config) {
				cfg.Render.PostProcessors = []templating.PostProcessorConfig{{Type: templating.PostProcessorTypeRegexReplace}}
			},
			wantErr: "render: post_processors[0]:",
		},
		{
			name:    "debounce",
			mutate:  func(cfg *Config) { cfg.Workbench.Debounce = "-1s" },
			wantErr: "workbench: debounce: duration cannot be negative",
		},
		{
			name:    "history size",
			mutate:  func(cfg *Config) { cfg.Workbench.HistorySize = -1 },
			wantErr: "workbench: history_size cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStructure(cfg)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStructure_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"error", "Warn", "warning", "info", "DEBUG"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, ValidateStructure(cfg), level)
	}
}

func TestValidateStructure_RemoteOnly(t *testing.T) {
	cfg := validConfig()
	cfg.Templates.Dir = ""
	cfg.Templates.Remote.BaseURL = "https://templates.example.com/"
	cfg.Templates.Remote.Auth = &AuthConfig{Type: "header", Headers: map[string]string{"X-Key": "k"}}

	assert.NoError(t, ValidateStructure(cfg))
}
