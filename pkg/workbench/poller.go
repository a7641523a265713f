package workbench

import (
	"context"
	"log/slog"
	"time"

	"ftlvars/pkg/events"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/templating"
)

// RemotePoller periodically refreshes templates served over HTTP and
// publishes a TemplateChangedEvent for every promoted update.
type RemotePoller struct {
	bus      *events.EventBus
	loader   *templating.RemoteLoader
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRemotePoller creates a poller. m may be nil.
func NewRemotePoller(bus *events.EventBus, loader *templating.RemoteLoader, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *RemotePoller {
	return &RemotePoller{
		bus:      bus,
		loader:   loader,
		interval: interval,
		metrics:  m,
		logger:   logger.With("component", "remote-poller"),
	}
}

// Run polls until ctx is canceled.
func (p *RemotePoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one refresh and returns the promoted template names.
func (p *RemotePoller) Poll(ctx context.Context) []string {
	promoted := p.loader.Refresh(ctx)
	p.metrics.RecordRemoteRefresh(len(promoted))

	for _, name := range promoted {
		p.bus.Publish(NewTemplateChangedEvent(name, OpRemote))
	}
	p.bus.Publish(NewRemoteRefreshedEvent(promoted))

	if len(promoted) > 0 {
		p.logger.Info("Remote templates updated", "templates", promoted)
	}
	return promoted
}
