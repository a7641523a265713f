package workbench

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ftlvars/pkg/events"
)

func newTestCommentator(t *testing.T) (*Commentator, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewCommentator(events.NewEventBus(1), logger, 10), &buf
}

func TestCommentator_Insights(t *testing.T) {
	templates := map[string]string{
		"page.ftl":   `<#include "base.ftl">${title}`,
		"base.ftl":   "${site}",
		"broken.ftl": "${",
	}

	tests := []struct {
		name    string
		event   events.Event
		level   slog.Level
		message string
	}{
		{
			name:    "started",
			event:   NewWorkbenchStartedEvent("r1", []string{"a.ftl", "b.ftl"}),
			level:   slog.LevelInfo,
			message: "Workbench started with 2 templates",
		},
		{
			name:    "changed",
			event:   NewTemplateChangedEvent("a.ftl", OpWrite),
			level:   slog.LevelDebug,
			message: "Template a.ftl changed (write)",
		},
		{
			name:    "valid analysis",
			event:   NewAnalysisCompletedEvent(analysisOf(t, templates, "page.ftl"), "page.ftl", 0, "c"),
			level:   slog.LevelInfo,
			message: "Template page.ftl analyzed: ",
		},
		{
			name:    "dependent analysis",
			event:   NewAnalysisCompletedEvent(analysisOf(t, templates, "page.ftl"), "base.ftl", 0, "c"),
			level:   slog.LevelInfo,
			message: "Template page.ftl analyzed after base.ftl changed: ",
		},
		{
			name:    "invalid analysis",
			event:   NewAnalysisCompletedEvent(analysisOf(t, templates, "broken.ftl"), "broken.ftl", 0, "c"),
			level:   slog.LevelWarn,
			message: "Template broken.ftl is invalid: Template parsing failed",
		},
		{
			name:    "failed",
			event:   NewAnalysisFailedEvent("x.ftl", "x.ftl", errors.New(strings.Repeat("e", 100)), 0, "c"),
			level:   slog.LevelError,
			message: "Analysis of x.ftl failed: " + strings.Repeat("e", 80) + "...",
		},
		{
			name:    "removed",
			event:   NewTemplateRemovedEvent("a.ftl", "c"),
			level:   slog.LevelInfo,
			message: "Template a.ftl removed, dropping its analysis",
		},
		{
			name:    "remote unchanged",
			event:   NewRemoteRefreshedEvent(nil),
			level:   slog.LevelDebug,
			message: "Remote templates unchanged",
		},
	}

	c, _ := newTestCommentator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, level, attrs := c.generateInsight(tt.event)
			assert.Equal(t, tt.level, level)
			assert.True(t, strings.HasPrefix(message, tt.message), message)
			assert.Equal(t, []any{"event_type", tt.event.EventType()}, attrs[:2])
		})
	}
}

func TestCommentator_CorrelatesAnalysisWithChange(t *testing.T) {
	c, buf := newTestCommentator(t)

	change := NewTemplateChangedEvent("a.ftl", OpWrite)
	c.processEvent(change)

	latency, ok := c.sinceChange(change.CorrelationID, change.Timestamp().Add(40*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 40*time.Millisecond, latency)

	_, ok = c.sinceChange("unknown", time.Now())
	assert.False(t, ok)

	analysis := analysisOf(t, map[string]string{"a.ftl": "${v}"}, "a.ftl")
	c.processEvent(NewAnalysisCompletedEvent(analysis, "a.ftl", time.Millisecond, change.CorrelationID))

	out := buf.String()
	assert.Contains(t, out, `msg="Template a.ftl analyzed: 1 variables required"`)
	assert.Contains(t, out, "since_change=")
	assert.Contains(t, out, "correlation_id="+change.CorrelationID)
}
