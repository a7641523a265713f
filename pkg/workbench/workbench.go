// Package workbench implements watch mode: templates are re-analyzed as they
// change and the results are served for inspection.
//
// Components talk over an events.EventBus:
//
//	Watcher / RemotePoller --TemplateChanged--> Analyzer
//	Analyzer --AnalysisCompleted/AnalysisFailed/TemplateRemoved--> StateCache, Commentator, MetricsComponent
//
// StateCache is published to an introspection registry served on the debug
// address, and Prometheus metrics are served on the metrics address.
package workbench

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"ftlvars/pkg/events"
	"ftlvars/pkg/introspection"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/service"
	"ftlvars/pkg/templating"
)

const (
	// DefaultHistorySize is the number of outcomes kept when Options leaves it unset.
	DefaultHistorySize = 100

	minAnalyzerBuffer = 200
	commentatorBuffer = 500
)

// Options configures a Workbench.
type Options struct {
	// Service analyzes templates. Required.
	Service *service.Service

	// Dir enables file watching when set.
	Dir      *templating.DirLoader
	Debounce time.Duration

	// Remote enables polling when set. RemoteTemplates are analyzed on start.
	Remote          *templating.RemoteLoader
	RemoteTemplates []string
	PollInterval    time.Duration

	// HistorySize bounds the outcome history.
	HistorySize int

	// Metrics and Gatherer back the metrics server. Either may be nil.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// MetricsAddr and DebugAddr are listen addresses; empty disables a server.
	MetricsAddr string
	DebugAddr   string

	// RunID identifies this run in logs; a random ID is used when empty.
	RunID string

	Logger *slog.Logger
}

// Workbench wires the watch-mode components together.
type Workbench struct {
	opts      Options
	logger    *slog.Logger
	bus       *events.EventBus
	templates []string

	analyzer    *Analyzer
	cache       *StateCache
	commentator *Commentator
	metrics     *MetricsComponent
	watcher     *Watcher
	poller      *RemotePoller

	debugVars *introspection.Registry
	startedAt time.Time
}

// New builds a workbench. Every component subscribes to the bus here, so
// no event published during Run is missed.
func New(opts Options) (*Workbench, error) {
	if opts.Service == nil {
		return nil, errors.New("service is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}

	logger := opts.Logger.With("run_id", opts.RunID)
	templates := initialTemplates(opts)

	w := &Workbench{
		opts:      opts,
		logger:    logger,
		bus:       events.NewEventBus(len(templates) + 1),
		templates: templates,
		debugVars: introspection.NewRegistry(),
	}

	w.analyzer = NewAnalyzer(w.bus, opts.Service, max(minAnalyzerBuffer, 2*len(templates)), logger)
	w.cache = NewStateCache(w.bus, opts.HistorySize)
	w.commentator = NewCommentator(w.bus, logger, commentatorBuffer)
	w.metrics = NewMetricsComponent(opts.Metrics, w.bus)

	if opts.Dir != nil {
		watcher, err := NewWatcher(w.bus, opts.Dir, opts.Debounce, logger)
		if err != nil {
			return nil, err
		}
		w.watcher = watcher
	}
	if opts.Remote != nil && opts.PollInterval > 0 {
		w.poller = NewRemotePoller(w.bus, opts.Remote, opts.PollInterval, opts.Metrics, logger)
	}

	w.cache.Publish(w.debugVars)
	w.debugVars.Publish("run", introspection.Func(func() (any, error) {
		return map[string]any{
			"runId":     opts.RunID,
			"startedAt": w.startedAt,
			"uptime":    time.Since(w.startedAt).Round(time.Second).String(),
		}, nil
	}))
	w.debugVars.Publish("events/dropped", introspection.Func(func() (any, error) {
		return w.bus.Dropped(), nil
	}))

	return w, nil
}

// Run starts every component, analyzes the initial templates and blocks
// until ctx is canceled or a server fails.
func (w *Workbench) Run(ctx context.Context) error {
	w.startedAt = time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.analyzer.Run(gctx) })
	g.Go(func() error { return w.cache.Run(gctx) })
	g.Go(func() error { return w.commentator.Run(gctx) })
	g.Go(func() error { return w.metrics.Run(gctx) })
	if w.watcher != nil {
		g.Go(func() error { return w.watcher.Run(gctx) })
	}
	if w.poller != nil {
		g.Go(func() error { return w.poller.Run(gctx) })
	}
	if w.opts.MetricsAddr != "" && w.opts.Gatherer != nil {
		server := metrics.NewServer(w.opts.MetricsAddr, w.opts.Gatherer, w.logger)
		g.Go(func() error { return server.Start(gctx) })
	}
	if w.opts.DebugAddr != "" {
		server := introspection.NewServer(w.opts.DebugAddr, w.debugVars, w.logger)
		g.Go(func() error { return server.Start(gctx) })
	}

	w.bus.Publish(NewWorkbenchStartedEvent(w.opts.RunID, w.templates))
	for _, name := range w.templates {
		w.bus.Publish(NewTemplateChangedEvent(name, OpInitial))
	}
	w.bus.Start()

	return g.Wait()
}

// Bus returns the event bus.
func (w *Workbench) Bus() *events.EventBus { return w.bus }

// State returns the state cache.
func (w *Workbench) State() *StateCache { return w.cache }

// DebugVars returns the introspection registry served on the debug address.
func (w *Workbench) DebugVars() *introspection.Registry { return w.debugVars }

// Templates returns the templates analyzed on start.
func (w *Workbench) Templates() []string { return slices.Clone(w.templates) }

func initialTemplates(opts Options) []string {
	names := opts.Service.Engine().TemplateNames()
	names = append(names, opts.RemoteTemplates...)
	slices.Sort(names)
	return slices.Compact(names)
}
