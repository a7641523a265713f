package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ftlvars/pkg/core/config"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/workbench"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		debugAddr   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze templates as they change",
		Long: `Watch the template directory (or poll the remote template source) and
re-analyze templates whenever they change. Templates that include or import
a changed template are re-analyzed too.

The latest analyses are served as JSON on the debug address:
  /debug/vars/analyses     latest state per template
  /debug/vars/variables    variable tree per template
  /debug/vars/history      recent outcomes
  /debug/vars/failures     recent invalid or failed outcomes
  ?field={.jsonpath}       select part of a value (escape dots in keys)

Prometheus metrics are served on the metrics address at /metrics.
Use "off" to disable either server.

Example usage:
  ftlvars watch --template-dir ./templates
  ftlvars watch --metrics-addr off --debug-addr localhost:7070
  curl 'localhost:7070/debug/vars/analyses?field={.invoice\.ftl.valid}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wb := a.cfg.Workbench
			if metricsAddr != "" {
				wb.MetricsAddr = metricsAddr
			}
			if debugAddr != "" {
				wb.DebugAddr = debugAddr
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(registry)

			svc, src, err := a.newService(m)
			if err != nil {
				return err
			}

			opts := workbench.Options{
				Service:     svc,
				Dir:         src.dir,
				Debounce:    wb.GetDebounce(),
				HistorySize: wb.HistorySize,
				Metrics:     m,
				Gatherer:    registry,
				MetricsAddr: config.ListenAddr(wb.MetricsAddr),
				DebugAddr:   config.ListenAddr(wb.DebugAddr),
				RunID:       a.runID,
				Logger:      a.logger,
			}
			if src.remote != nil {
				remote := a.cfg.Templates.Remote
				opts.Remote = src.remote
				opts.RemoteTemplates = remote.Templates
				opts.PollInterval = remote.GetPollInterval()
			}

			w, err := workbench.New(opts)
			if err != nil {
				return fmt.Errorf("failed to create workbench: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			a.logger.Info("Watching templates",
				"template_dir", a.cfg.Templates.Dir,
				"remote", a.cfg.Templates.Remote.BaseURL,
				"templates", len(w.Templates()),
				"metrics_addr", opts.MetricsAddr,
				"debug_addr", opts.DebugAddr)

			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("workbench failed: %w", err)
			}
			a.logger.Info("Workbench shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", `Prometheus listen address, "off" to disable (default: workbench.metrics_addr or :9090)`)
	cmd.Flags().StringVar(&debugAddr, "debug-addr", "", `Debug listen address, "off" to disable (default: workbench.debug_addr or localhost:6060)`)
	return cmd
}
