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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ftlvars_"

// Metrics holds the template analysis and rendering metrics.
//
// Create one instance per registry. A nil *Metrics is valid and records
// nothing, which keeps callers free of nil checks.
type Metrics struct {
	AnalysisDuration *prometheus.HistogramVec
	AnalysesTotal    *prometheus.CounterVec
	DiscoveredPaths  *prometheus.GaugeVec
	PassFailures     *prometheus.CounterVec
	RenderDuration   *prometheus.HistogramVec
	RendersTotal     *prometheus.CounterVec
	TemplateChanges  prometheus.Counter
	RemoteRefreshes  *prometheus.CounterVec
	EventsPublished  prometheus.Counter
	TrackedTemplates prometheus.Gauge
}

// New registers all metrics on registry.
func New(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		AnalysisDuration: NewHistogramVec(registry,
			namespace+"analysis_duration_seconds",
			"Time spent analyzing a template, all passes included",
			nil, []string{"template"}),
		AnalysesTotal: NewCounterVec(registry,
			namespace+"analyses_total",
			"Template analyses by outcome (valid, invalid, error)",
			[]string{"outcome"}),
		DiscoveredPaths: NewGaugeVec(registry,
			namespace+"discovered_paths",
			"Access paths found by the latest analysis of a template",
			[]string{"template"}),
		PassFailures: NewCounterVec(registry,
			namespace+"pass_failures_total",
			"Mock passes that stopped with an engine error",
			[]string{"mode"}),
		RenderDuration: NewHistogramVec(registry,
			namespace+"render_duration_seconds",
			"Time spent rendering a template",
			nil, []string{"kind"}),
		RendersTotal: NewCounterVec(registry,
			namespace+"renders_total",
			"Renders by kind (render, preview) and outcome (success, failure)",
			[]string{"kind", "outcome"}),
		TemplateChanges: NewCounter(registry,
			namespace+"template_changes_total",
			"Template changes detected in watch mode"),
		RemoteRefreshes: NewCounterVec(registry,
			namespace+"remote_refreshes_total",
			"Remote template refreshes by outcome (promoted, unchanged)",
			[]string{"outcome"}),
		EventsPublished: NewCounter(registry,
			namespace+"events_published_total",
			"Events seen on the workbench event bus"),
		TrackedTemplates: NewGauge(registry,
			namespace+"tracked_templates",
			"Templates with a cached analysis"),
	}
}

// PassReport is the part of a mock pass the metrics care about.
type PassReport struct {
	Mode   string
	Failed bool
}

// RecordAnalysis records one analysis.
func (m *Metrics) RecordAnalysis(template, outcome string, d time.Duration, paths int, passes []PassReport) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(template).Observe(d.Seconds())
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.DiscoveredPaths.WithLabelValues(template).Set(float64(paths))
	for _, p := range passes {
		if p.Failed {
			m.PassFailures.WithLabelValues(p.Mode).Inc()
		}
	}
}

// RecordRender records one render or preview.
func (m *Metrics) RecordRender(kind string, d time.Duration, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.RenderDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.RendersTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordTemplateChange counts a detected template change.
func (m *Metrics) RecordTemplateChange() {
	if m == nil {
		return
	}
	m.TemplateChanges.Inc()
}

// RecordRemoteRefresh counts remote templates promoted by a refresh, or
// one unchanged refresh when none were.
func (m *Metrics) RecordRemoteRefresh(promoted int) {
	if m == nil {
		return
	}
	if promoted == 0 {
		m.RemoteRefreshes.WithLabelValues("unchanged").Inc()
		return
	}
	m.RemoteRefreshes.WithLabelValues("promoted").Add(float64(promoted))
}

// RecordEvent counts an event seen on the bus.
func (m *Metrics) RecordEvent() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

// SetTrackedTemplates sets the number of templates with a cached analysis.
func (m *Metrics) SetTrackedTemplates(n int) {
	if m == nil {
		return
	}
	m.TrackedTemplates.Set(float64(n))
}

// ForgetTemplate drops per-template series for a removed template.
func (m *Metrics) ForgetTemplate(template string) {
	if m == nil {
		return
	}
	m.AnalysisDuration.DeleteLabelValues(template)
	m.DiscoveredPaths.DeleteLabelValues(template)
}
