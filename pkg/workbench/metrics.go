package workbench

import (
	"context"

	"ftlvars/pkg/events"
	"ftlvars/pkg/metrics"
)

// MetricsComponent turns bus events into Prometheus metrics. Analysis
// durations are recorded by the service; this component counts changes and
// events and tracks how many templates are known.
//
// NewMetricsComponent subscribes immediately; create it before bus.Start.
type MetricsComponent struct {
	metrics   *metrics.Metrics
	eventChan <-chan events.Event
	tracked   map[string]struct{}
}

// NewMetricsComponent creates the component.
func NewMetricsComponent(m *metrics.Metrics, bus *events.EventBus) *MetricsComponent {
	return &MetricsComponent{
		metrics:   m,
		eventChan: bus.Subscribe(200),
		tracked:   make(map[string]struct{}),
	}
}

// Run records events until ctx is canceled.
func (c *MetricsComponent) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.eventChan:
			c.handleEvent(ev)
		}
	}
}

func (c *MetricsComponent) handleEvent(ev events.Event) {
	c.metrics.RecordEvent()

	switch e := ev.(type) {
	case *TemplateChangedEvent:
		if e.Op != OpInitial {
			c.metrics.RecordTemplateChange()
		}
	case *AnalysisCompletedEvent:
		c.track(e.Template)
	case *AnalysisFailedEvent:
		c.track(e.Template)
	case *TemplateRemovedEvent:
		delete(c.tracked, e.Template)
		c.metrics.ForgetTemplate(e.Template)
		c.metrics.SetTrackedTemplates(len(c.tracked))
	}
}

func (c *MetricsComponent) track(name string) {
	c.tracked[name] = struct{}{}
	c.metrics.SetTrackedTemplates(len(c.tracked))
}
