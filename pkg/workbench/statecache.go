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

package workbench

import (
	"context"
	"slices"
	"sync"
	"time"

	"ftlvars/pkg/events"
	"ftlvars/pkg/events/ringbuffer"
	"ftlvars/pkg/extractor"
	"ftlvars/pkg/introspection"
)

// Analysis outcomes recorded in the history.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomeRemoved = "removed"
)

// TemplateState is the latest known state of one template.
type TemplateState struct {
	Template          string    `json:"template"`
	Valid             bool      `json:"valid"`
	Error             string    `json:"error,omitempty"`
	RequiredVariables []string  `json:"requiredVariables"`
	Paths             int       `json:"paths"`
	Errors            []string  `json:"errors"`
	Duration          string    `json:"duration"`
	AnalyzedAt        time.Time `json:"analyzedAt"`
	CorrelationID     string    `json:"correlationId"`

	analysis *extractor.Analysis
}

// HistoryEntry is one analysis outcome.
type HistoryEntry struct {
	Template      string    `json:"template"`
	Trigger       string    `json:"trigger,omitempty"`
	Outcome       string    `json:"outcome"`
	Paths         int       `json:"paths"`
	Duration      string    `json:"duration,omitempty"`
	At            time.Time `json:"at"`
	CorrelationID string    `json:"correlationId"`
}

// StateCache keeps the latest analysis per template and a bounded history of
// outcomes, built from bus events.
//
// NewStateCache subscribes immediately; create it before bus.Start.
type StateCache struct {
	eventChan <-chan events.Event

	mu      sync.RWMutex
	states  map[string]TemplateState
	history *ringbuffer.RingBuffer[HistoryEntry]
}

// NewStateCache creates a cache keeping historySize outcomes.
func NewStateCache(bus *events.EventBus, historySize int) *StateCache {
	return &StateCache{
		eventChan: bus.Subscribe(200),
		states:    make(map[string]TemplateState),
		history:   ringbuffer.New[HistoryEntry](historySize),
	}
}

// Run applies events until ctx is canceled.
func (sc *StateCache) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sc.eventChan:
			sc.handleEvent(ev)
		}
	}
}

func (sc *StateCache) handleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *AnalysisCompletedEvent:
		a := e.Analysis
		outcome := OutcomeValid
		if !a.Valid {
			outcome = OutcomeInvalid
		}
		paths := len(a.Paths())

		sc.mu.Lock()
		sc.states[e.Template] = TemplateState{
			Template:          e.Template,
			Valid:             a.Valid,
			RequiredVariables: a.RequiredExternalVariables(),
			Paths:             paths,
			Errors:            slices.Clone(a.Errors),
			Duration:          e.Duration.String(),
			AnalyzedAt:        e.Timestamp(),
			CorrelationID:     e.CorrelationID,
			analysis:          a,
		}
		sc.mu.Unlock()

		sc.history.Add(HistoryEntry{
			Template:      e.Template,
			Trigger:       e.Trigger,
			Outcome:       outcome,
			Paths:         paths,
			Duration:      e.Duration.String(),
			At:            e.Timestamp(),
			CorrelationID: e.CorrelationID,
		})

	case *AnalysisFailedEvent:
		sc.mu.Lock()
		sc.states[e.Template] = TemplateState{
			Template:          e.Template,
			Error:             e.Error,
			RequiredVariables: []string{},
			Errors:            []string{e.Error},
			Duration:          e.Duration.String(),
			AnalyzedAt:        e.Timestamp(),
			CorrelationID:     e.CorrelationID,
		}
		sc.mu.Unlock()

		sc.history.Add(HistoryEntry{
			Template:      e.Template,
			Trigger:       e.Trigger,
			Outcome:       OutcomeError,
			Duration:      e.Duration.String(),
			At:            e.Timestamp(),
			CorrelationID: e.CorrelationID,
		})

	case *TemplateRemovedEvent:
		sc.mu.Lock()
		delete(sc.states, e.Template)
		sc.mu.Unlock()

		sc.history.Add(HistoryEntry{
			Template:      e.Template,
			Outcome:       OutcomeRemoved,
			At:            e.Timestamp(),
			CorrelationID: e.CorrelationID,
		})
	}
}

// State returns the latest state of name.
func (sc *StateCache) State(name string) (TemplateState, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	st, ok := sc.states[name]
	return st, ok
}

// Analysis returns the latest successful analysis of name.
func (sc *StateCache) Analysis(name string) (*extractor.Analysis, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	st, ok := sc.states[name]
	if !ok || st.analysis == nil {
		return nil, false
	}
	return st.analysis, true
}

// States returns the latest state of every template.
func (sc *StateCache) States() map[string]TemplateState {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	result := make(map[string]TemplateState, len(sc.states))
	for name, st := range sc.states {
		result[name] = st
	}
	return result
}

// Templates returns the tracked template names, sorted.
func (sc *StateCache) Templates() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	names := make([]string, 0, len(sc.states))
	for name := range sc.states {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// History returns up to n recent outcomes, oldest first.
func (sc *StateCache) History(n int) []HistoryEntry {
	return sc.history.GetLast(n)
}

// Failures returns the recorded outcomes that were not valid.
func (sc *StateCache) Failures() []HistoryEntry {
	return sc.history.Filter(func(e HistoryEntry) bool {
		return e.Outcome == OutcomeInvalid || e.Outcome == OutcomeError
	})
}

// Publish exposes the cache as debug variables:
//
//	analyses   latest state per template
//	variables  variable tree per template
//	templates  tracked template names
//	history    recent outcomes
//	failures   recent invalid or failed outcomes
func (sc *StateCache) Publish(registry *introspection.Registry) {
	registry.Publish("analyses", introspection.Func(func() (any, error) {
		return sc.States(), nil
	}))
	registry.Publish("variables", introspection.Func(func() (any, error) {
		sc.mu.RLock()
		defer sc.mu.RUnlock()
		trees := make(map[string]*extractor.Tree, len(sc.states))
		for name, st := range sc.states {
			if st.analysis != nil {
				trees[name] = st.analysis.Variables
			}
		}
		return trees, nil
	}))
	registry.Publish("templates", introspection.Func(func() (any, error) {
		return sc.Templates(), nil
	}))
	registry.Publish("history", introspection.Func(func() (any, error) {
		return sc.history.GetAll(), nil
	}))
	registry.Publish("failures", introspection.Func(func() (any, error) {
		return sc.Failures(), nil
	}))
}
