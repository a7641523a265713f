// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ftlvars/pkg/core/config"
	"ftlvars/pkg/core/logging"
	"ftlvars/pkg/extractor"
	"ftlvars/pkg/httpstore"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/service"
	"ftlvars/pkg/templating"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	configFile  string
	templateDir string
	logLevel    string

	cfg    *config.Config
	logger *slog.Logger
	runID  string
}

// sources are the loaders backing the service. Exactly one is set.
type sources struct {
	dir    *templating.DirLoader
	remote *templating.RemoteLoader
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "ftlvars",
		Short: "Discover the variables FreeMarker-style templates need",
		Long: `ftlvars analyzes FreeMarker-style templates and reports the data model
they read: required variables as a tree, placeholder defaults, realistic
sample data, and renders with caller data or generated samples.

Configuration is loaded from:
1. Command-line flags (highest priority)
2. The YAML file given with --config
3. Default values (lowest priority)

Example usage:
  # Summarize the variables of a template
  ftlvars analyze invoice.ftl --template-dir ./templates

  # Generate sample data and render with it
  ftlvars defaults invoice.ftl --samples > data.json
  ftlvars render invoice.ftl --data data.json

  # Re-analyze templates as they change
  ftlvars watch --config ftlvars.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVarP(&a.templateDir, "template-dir", "d", "", "Directory templates are loaded from (default: templates.dir or .)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: ERROR, WARN, INFO, DEBUG (default: logging.level or INFO)")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newDefaultsCmd(a),
		newRenderCmd(a),
		newPreviewCmd(a),
		newVarsCmd(a),
		newValidateCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and creates the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.LoadFile(a.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if a.templateDir != "" {
		cfg.Templates.Dir = a.templateDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	if err := config.ValidateStructure(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.runID = uuid.NewString()
	a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level).With("run_id", a.runID)

	a.logger.Debug("ftlvars starting",
		"command", cmd.Name(),
		"config_file", a.configFile,
		"template_dir", cfg.Templates.Dir,
		"remote", cfg.Templates.Remote.BaseURL,
		"gomaxprocs", runtime.GOMAXPROCS(0),
		"gomemlimit", memoryLimit())
	return nil
}

// newService builds the template engine, extractor and service from the
// configuration. m may be nil.
func (a *app) newService(m *metrics.Metrics) (*service.Service, sources, error) {
	var src sources
	var loader templating.Loader

	if remote := a.cfg.Templates.Remote; remote.BaseURL != "" {
		store := httpstore.New(remote.BaseURL, remote.FetchOptions(), remote.StoreAuth(), a.logger)
		src.remote = templating.NewRemoteLoader(store, remote.GetTimeout(), a.logger)
		loader = src.remote
	} else {
		src.dir = templating.NewDirLoader(a.cfg.Templates.Dir, a.cfg.Templates.Extensions)
		loader = src.dir
	}

	engine, err := templating.NewWithOptions(templating.EngineTypeFTL, templating.Options{
		Loader:         loader,
		MaxCallDepth:   a.cfg.Analysis.MaxCallDepth,
		MaxSteps:       a.cfg.Analysis.MaxSteps,
		PostProcessors: a.cfg.Render.PostProcessors,
	})
	if err != nil {
		return nil, src, fmt.Errorf("failed to create template engine: %w", err)
	}

	ext, err := extractor.New(engine, a.cfg.Analysis.ExtractorConfig(), a.logger)
	if err != nil {
		return nil, src, fmt.Errorf("failed to create extractor: %w", err)
	}
	return service.New(engine, ext, m, a.logger), src, nil
}

// templateName maps a command argument to a template name. A path to an
// existing file below the template directory is made relative to it.
func templateName(src sources, arg string) string {
	if src.dir == nil {
		return arg
	}
	if _, err := os.Stat(arg); err == nil {
		if name, ok := src.dir.NameFor(arg); ok {
			return name
		}
	}
	return filepath.ToSlash(arg)
}

func memoryLimit() string {
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		return fmt.Sprintf("%d bytes (%.2f MiB)", limit, float64(limit)/(1024*1024))
	}
	return "unlimited"
}
