package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/httpstore"
)

func TestSetDefaults_AllUnset(t *testing.T) {
	cfg := &Config{}

	SetDefaults(cfg)

	assert.Equal(t, DefaultTemplateDir, cfg.Templates.Dir)
	assert.Equal(t, []string{".ftl", ".ftlh"}, cfg.Templates.Extensions)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, extractor.StrategyFalse, cfg.Analysis.ConditionalStrategy)
	assert.Equal(t, extractor.DefaultIterationSize, cfg.Analysis.IterationSize)
	assert.Equal(t, DefaultHistorySize, cfg.Workbench.HistorySize)
	assert.Equal(t, DefaultMetricsAddr, cfg.Workbench.MetricsAddr)
	assert.Equal(t, DefaultDebugAddr, cfg.Workbench.DebugAddr)
}

func TestSetDefaults_AllSet(t *testing.T) {
	cfg := &Config{
		Templates: TemplatesConfig{Dir: "tpl", Extensions: []string{".tmpl"}},
		Logging:   LoggingConfig{Level: "DEBUG"},
		Analysis:  AnalysisConfig{ConditionalStrategy: "random", IterationSize: 7},
		Workbench: WorkbenchConfig{HistorySize: 5, MetricsAddr: ":1", DebugAddr: ":2"},
	}

	SetDefaults(cfg)

	// Verify existing values are not overwritten
	assert.Equal(t, "tpl", cfg.Templates.Dir)
	assert.Equal(t, []string{".tmpl"}, cfg.Templates.Extensions)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "random", cfg.Analysis.ConditionalStrategy)
	assert.Equal(t, 7, cfg.Analysis.IterationSize)
	assert.Equal(t, 5, cfg.Workbench.HistorySize)
	assert.Equal(t, ":1", cfg.Workbench.MetricsAddr)
	assert.Equal(t, ":2", cfg.Workbench.DebugAddr)
}

func TestSetDefaults_DoesNotShareExtensions(t *testing.T) {
	cfg := &Config{}
	SetDefaults(cfg)
	cfg.Templates.Extensions[0] = ".changed"

	assert.Equal(t, ".ftl", DefaultExtensions[0])
}

func TestRemoteConfig_Durations(t *testing.T) {
	tests := []struct {
		name   string
		remote RemoteConfig
		want   [3]time.Duration
	}{
		{
			name:   "unset uses defaults",
			remote: RemoteConfig{},
			want:   [3]time.Duration{httpstore.DefaultTimeout, httpstore.DefaultRetryDelay, DefaultPollInterval},
		},
		{
			name:   "configured",
			remote: RemoteConfig{Timeout: "3s", RetryDelay: "100ms", PollInterval: "1m"},
			want:   [3]time.Duration{3 * time.Second, 100 * time.Millisecond, time.Minute},
		},
		{
			name:   "invalid falls back",
			remote: RemoteConfig{Timeout: "soon", RetryDelay: "x", PollInterval: "often"},
			want:   [3]time.Duration{httpstore.DefaultTimeout, httpstore.DefaultRetryDelay, DefaultPollInterval},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want[0], tt.remote.GetTimeout())
			assert.Equal(t, tt.want[1], tt.remote.GetRetryDelay())
			assert.Equal(t, tt.want[2], tt.remote.GetPollInterval())
		})
	}
}

func TestRemoteConfig_FetchOptionsAndAuth(t *testing.T) {
	remote := RemoteConfig{
		Timeout: "2s",
		Retries: 4,
		Auth:    &AuthConfig{Type: "basic", Username: "u", Password: "p"},
	}

	opts := remote.FetchOptions()
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.Equal(t, 4, opts.Retries)

	auth := remote.StoreAuth()
	assert.Equal(t, &httpstore.AuthConfig{Type: "basic", Username: "u", Password: "p"}, auth)

	assert.Nil(t, (&RemoteConfig{}).StoreAuth())
}

func TestAnalysisConfig_ExtractorConfig(t *testing.T) {
	ac := AnalysisConfig{ConditionalStrategy: "random", RandomSeed: 9, IterationSize: 2, ParallelPasses: true}

	assert.Equal(t, extractor.Config{
		ConditionalStrategy: "random",
		RandomSeed:          9,
		IterationSize:       2,
		ParallelPasses:      true,
	}, ac.ExtractorConfig())
}

func TestWorkbenchConfig_GetDebounce(t *testing.T) {
	assert.Equal(t, DefaultDebounce, (&WorkbenchConfig{}).GetDebounce())
	assert.Equal(t, 2*time.Second, (&WorkbenchConfig{Debounce: "2s"}).GetDebounce())
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, "", ListenAddr("off"))
	assert.Equal(t, ":9090", ListenAddr(":9090"))
}
