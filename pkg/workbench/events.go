package workbench

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"ftlvars/pkg/extractor"
)

// Workbench events are immutable once published. Constructors copy slices
// so publishers cannot change a published event, and consumers must not
// modify event fields.

const (
	EventTypeWorkbenchStarted  = "workbench.started"
	EventTypeTemplateChanged   = "template.changed"
	EventTypeTemplateRemoved   = "template.removed"
	EventTypeAnalysisCompleted = "analysis.completed"
	EventTypeAnalysisFailed    = "analysis.failed"
	EventTypeRemoteRefreshed   = "remote.refreshed"
)

// ChangeOp says how a template changed.
type ChangeOp string

const (
	OpInitial ChangeOp = "initial"
	OpWrite   ChangeOp = "write"
	OpCreate  ChangeOp = "create"
	OpRemove  ChangeOp = "remove"
	OpRemote  ChangeOp = "remote"
)

// WorkbenchStartedEvent is published once every component is running.
type WorkbenchStartedEvent struct {
	RunID     string
	Templates []string
	timestamp time.Time
}

// NewWorkbenchStartedEvent creates a WorkbenchStartedEvent.
func NewWorkbenchStartedEvent(runID string, templates []string) *WorkbenchStartedEvent {
	return &WorkbenchStartedEvent{
		RunID:     runID,
		Templates: slices.Clone(templates),
		timestamp: time.Now(),
	}
}

func (e *WorkbenchStartedEvent) EventType() string    { return EventTypeWorkbenchStarted }
func (e *WorkbenchStartedEvent) Timestamp() time.Time { return e.timestamp }

// TemplateChangedEvent asks for a template to be re-analyzed.
type TemplateChangedEvent struct {
	Template string
	Op       ChangeOp

	// CorrelationID links the change to the analysis events it causes.
	CorrelationID string
	timestamp     time.Time
}

// NewTemplateChangedEvent creates a TemplateChangedEvent with a fresh
// correlation ID.
func NewTemplateChangedEvent(template string, op ChangeOp) *TemplateChangedEvent {
	return &TemplateChangedEvent{
		Template:      template,
		Op:            op,
		CorrelationID: uuid.NewString(),
		timestamp:     time.Now(),
	}
}

func (e *TemplateChangedEvent) EventType() string    { return EventTypeTemplateChanged }
func (e *TemplateChangedEvent) Timestamp() time.Time { return e.timestamp }

// TemplateRemovedEvent is published after a removed template was forgotten.
type TemplateRemovedEvent struct {
	Template      string
	CorrelationID string
	timestamp     time.Time
}

// NewTemplateRemovedEvent creates a TemplateRemovedEvent.
func NewTemplateRemovedEvent(template, correlationID string) *TemplateRemovedEvent {
	return &TemplateRemovedEvent{
		Template:      template,
		CorrelationID: correlationID,
		timestamp:     time.Now(),
	}
}

func (e *TemplateRemovedEvent) EventType() string    { return EventTypeTemplateRemoved }
func (e *TemplateRemovedEvent) Timestamp() time.Time { return e.timestamp }

// AnalysisCompletedEvent carries a finished analysis. Analysis.Valid may be
// false; that is still a completed analysis.
type AnalysisCompletedEvent struct {
	Template string

	// Trigger is the changed template that caused this analysis. It differs
	// from Template when Template includes or imports Trigger.
	Trigger       string
	Analysis      *extractor.Analysis
	Duration      time.Duration
	CorrelationID string
	timestamp     time.Time
}

// NewAnalysisCompletedEvent creates an AnalysisCompletedEvent.
func NewAnalysisCompletedEvent(analysis *extractor.Analysis, trigger string, d time.Duration, correlationID string) *AnalysisCompletedEvent {
	return &AnalysisCompletedEvent{
		Template:      analysis.TemplateName,
		Trigger:       trigger,
		Analysis:      analysis,
		Duration:      d,
		CorrelationID: correlationID,
		timestamp:     time.Now(),
	}
}

func (e *AnalysisCompletedEvent) EventType() string    { return EventTypeAnalysisCompleted }
func (e *AnalysisCompletedEvent) Timestamp() time.Time { return e.timestamp }

// AnalysisFailedEvent reports an analysis that returned an error.
type AnalysisFailedEvent struct {
	Template      string
	Trigger       string
	Error         string
	Duration      time.Duration
	CorrelationID string
	timestamp     time.Time
}

// NewAnalysisFailedEvent creates an AnalysisFailedEvent.
func NewAnalysisFailedEvent(template, trigger string, err error, d time.Duration, correlationID string) *AnalysisFailedEvent {
	return &AnalysisFailedEvent{
		Template:      template,
		Trigger:       trigger,
		Error:         err.Error(),
		Duration:      d,
		CorrelationID: correlationID,
		timestamp:     time.Now(),
	}
}

func (e *AnalysisFailedEvent) EventType() string    { return EventTypeAnalysisFailed }
func (e *AnalysisFailedEvent) Timestamp() time.Time { return e.timestamp }

// RemoteRefreshedEvent reports one poll of the remote template source.
type RemoteRefreshedEvent struct {
	Promoted  []string
	timestamp time.Time
}

// NewRemoteRefreshedEvent creates a RemoteRefreshedEvent.
func NewRemoteRefreshedEvent(promoted []string) *RemoteRefreshedEvent {
	return &RemoteRefreshedEvent{
		Promoted:  slices.Clone(promoted),
		timestamp: time.Now(),
	}
}

func (e *RemoteRefreshedEvent) EventType() string    { return EventTypeRemoteRefreshed }
func (e *RemoteRefreshedEvent) Timestamp() time.Time { return e.timestamp }
