package workbench

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ftlvars/pkg/events"
	"ftlvars/pkg/extractor"
	"ftlvars/pkg/ftl"
	"ftlvars/pkg/service"
)

// Analyzer re-analyzes templates when they change. A change also re-analyzes
// every template that includes or imports the changed one, transitively.
//
// Lifecycle: NewAnalyzer subscribes immediately, so create it before
// bus.Start and then call Run.
type Analyzer struct {
	bus     *events.EventBus
	service *service.Service
	logger  *slog.Logger
	now     func() time.Time

	eventChan <-chan events.Event

	mu   sync.RWMutex
	deps map[string][]string // template -> templates it includes or imports
}

// NewAnalyzer creates an analyzer and subscribes it to bus. bufferSize
// bounds how many change events may queue while an analysis runs.
func NewAnalyzer(bus *events.EventBus, svc *service.Service, bufferSize int, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		bus:       bus,
		service:   svc,
		logger:    logger.With("component", "analyzer"),
		now:       time.Now,
		eventChan: bus.Subscribe(bufferSize),
		deps:      make(map[string][]string),
	}
}

// Run handles change events until ctx is canceled.
func (a *Analyzer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.eventChan:
			if change, ok := ev.(*TemplateChangedEvent); ok {
				a.handleChange(ctx, change)
			}
		}
	}
}

// Dependents returns the templates that include or import name, directly or
// through other templates, sorted.
func (a *Analyzer) Dependents(name string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seen := map[string]bool{name: true}
	queue := []string{name}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for tpl, deps := range a.deps {
			if seen[tpl] || !slices.Contains(deps, current) {
				continue
			}
			seen[tpl] = true
			result = append(result, tpl)
			queue = append(queue, tpl)
		}
	}
	slices.Sort(result)
	return result
}

func (a *Analyzer) handleChange(ctx context.Context, change *TemplateChangedEvent) {
	dependents := a.Dependents(change.Template)
	a.service.Engine().Invalidate(change.Template)

	if change.Op == OpRemove {
		a.forget(change.Template)
		a.bus.Publish(NewTemplateRemovedEvent(change.Template, change.CorrelationID))
	} else {
		a.analyze(ctx, change.Template, change)
	}

	// every template gets its own initial event
	if change.Op == OpInitial {
		return
	}
	for _, d := range dependents {
		if ctx.Err() != nil {
			return
		}
		a.analyze(ctx, d, change)
	}
}

func (a *Analyzer) analyze(ctx context.Context, name string, change *TemplateChangedEvent) {
	start := a.now()
	analysis, err := a.service.Analyze(ctx, name)
	elapsed := a.now().Sub(start)

	if err != nil {
		a.bus.Publish(NewAnalysisFailedEvent(name, change.Template, err, elapsed, change.CorrelationID))
		return
	}

	a.record(name, analysis)
	a.bus.Publish(NewAnalysisCompletedEvent(analysis, change.Template, elapsed, change.CorrelationID))
}

func (a *Analyzer) record(name string, analysis *extractor.Analysis) {
	deps := make([]string, 0, len(analysis.IncludedTemplates)+len(analysis.ImportedTemplates))
	for _, inc := range analysis.IncludedTemplates {
		deps = append(deps, ftl.ResolveName(name, inc))
	}
	for _, imp := range analysis.ImportedTemplates {
		deps = append(deps, ftl.ResolveName(name, imp.Template))
	}
	slices.Sort(deps)

	a.mu.Lock()
	a.deps[name] = slices.Compact(deps)
	a.mu.Unlock()
}

func (a *Analyzer) forget(name string) {
	a.mu.Lock()
	delete(a.deps, name)
	a.mu.Unlock()
}
