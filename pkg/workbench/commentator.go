package workbench

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ftlvars/pkg/events"
	"ftlvars/pkg/events/ringbuffer"
)

// maxErrorPreview bounds error text quoted in log messages.
const maxErrorPreview = 80

// Commentator logs bus events with domain context. It remembers recent
// events so an analysis can be related to the change that caused it.
//
// NewCommentator subscribes immediately; create it before bus.Start.
type Commentator struct {
	logger    *slog.Logger
	recent    *ringbuffer.RingBuffer[events.Event]
	eventChan <-chan events.Event
}

// NewCommentator creates a commentator remembering bufferSize events.
func NewCommentator(bus *events.EventBus, logger *slog.Logger, bufferSize int) *Commentator {
	return &Commentator{
		logger:    logger.With("component", "commentator"),
		recent:    ringbuffer.New[events.Event](bufferSize),
		eventChan: bus.Subscribe(200),
	}
}

// Run logs events until ctx is canceled.
func (c *Commentator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.eventChan:
			c.processEvent(ev)
		}
	}
}

func (c *Commentator) processEvent(ev events.Event) {
	c.recent.Add(ev)
	message, level, attrs := c.generateInsight(ev)
	c.logger.Log(context.Background(), level, message, attrs...)
}

func (c *Commentator) generateInsight(ev events.Event) (string, slog.Level, []any) {
	attrs := []any{"event_type", ev.EventType()}

	switch e := ev.(type) {
	case *WorkbenchStartedEvent:
		return fmt.Sprintf("Workbench started with %d templates", len(e.Templates)),
			slog.LevelInfo,
			append(attrs, "run_id", e.RunID)

	case *TemplateChangedEvent:
		return fmt.Sprintf("Template %s changed (%s)", e.Template, e.Op),
			slog.LevelDebug,
			append(attrs, "template", e.Template, "correlation_id", e.CorrelationID)

	case *TemplateRemovedEvent:
		return fmt.Sprintf("Template %s removed, dropping its analysis", e.Template),
			slog.LevelInfo,
			append(attrs, "template", e.Template)

	case *AnalysisCompletedEvent:
		a := e.Analysis
		attrs = append(attrs,
			"template", e.Template,
			"paths", len(a.Paths()),
			"duration", e.Duration,
			"correlation_id", e.CorrelationID)
		if latency, ok := c.sinceChange(e.CorrelationID, e.Timestamp()); ok {
			attrs = append(attrs, "since_change", latency)
		}

		var cause string
		if e.Trigger != "" && e.Trigger != e.Template {
			cause = fmt.Sprintf(" after %s changed", e.Trigger)
		}
		if !a.Valid {
			return fmt.Sprintf("Template %s is invalid%s: %s", e.Template, cause, preview(strings.Join(a.Errors, "; "))),
				slog.LevelWarn,
				append(attrs, "errors", len(a.Errors))
		}
		return fmt.Sprintf("Template %s analyzed%s: %d variables required",
				e.Template, cause, len(a.RequiredExternalVariables())),
			slog.LevelInfo,
			attrs

	case *AnalysisFailedEvent:
		return fmt.Sprintf("Analysis of %s failed: %s", e.Template, preview(e.Error)),
			slog.LevelError,
			append(attrs, "template", e.Template, "correlation_id", e.CorrelationID)

	case *RemoteRefreshedEvent:
		if len(e.Promoted) == 0 {
			return "Remote templates unchanged", slog.LevelDebug, attrs
		}
		return fmt.Sprintf("Remote refresh promoted %d templates", len(e.Promoted)),
			slog.LevelInfo,
			append(attrs, "templates", e.Promoted)
	}

	return fmt.Sprintf("Event %s", ev.EventType()), slog.LevelDebug, attrs
}

// sinceChange finds the change event with correlationID and returns the time
// elapsed between it and at.
func (c *Commentator) sinceChange(correlationID string, at time.Time) (time.Duration, bool) {
	matches := c.recent.Filter(func(ev events.Event) bool {
		change, ok := ev.(*TemplateChangedEvent)
		return ok && change.CorrelationID == correlationID
	})
	if len(matches) == 0 {
		return 0, false
	}
	return at.Sub(matches[0].Timestamp()), true
}

func preview(s string) string {
	if len(s) <= maxErrorPreview {
		return s
	}
	return s[:maxErrorPreview] + "..."
}
