// Package service exposes the template operations used by the CLI and the
// workbench: analysis, rendering with caller data or generated samples,
// variable maps and full reports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/templating"
)

// Service ties an engine and an extractor together. It is safe for
// concurrent use.
type Service struct {
	engine    *templating.TemplateEngine
	extractor *extractor.Extractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a service. metrics may be nil.
func New(engine *templating.TemplateEngine, ext *extractor.Extractor, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:    engine,
		extractor: ext,
		metrics:   m,
		logger:    logger.With("component", "service"),
		now:       time.Now,
	}
}

// Engine returns the underlying template engine.
func (s *Service) Engine() *templating.TemplateEngine { return s.engine }

// Analyze analyzes the template named name and records metrics for it.
// The returned analysis is never nil.
func (s *Service) Analyze(ctx context.Context, name string) (*extractor.Analysis, error) {
	start := s.now()
	s.logger.Debug("Starting template analysis", "template", name)

	a, err := s.extractor.Analyze(ctx, name)
	elapsed := s.now().Sub(start)

	outcome := "valid"
	switch {
	case err != nil:
		outcome = "error"
	case !a.Valid:
		outcome = "invalid"
	}
	s.metrics.RecordAnalysis(name, outcome, elapsed, len(a.References), passReports(a))

	if err != nil {
		s.logger.Error("Template analysis failed", "template", name, "error", err)
		return a, fmt.Errorf("analysis failed: %w", err)
	}
	s.logger.Info("Template analysis completed",
		"template", name,
		"valid", a.Valid,
		"variables", a.Variables.Len(),
		"errors", len(a.Errors),
		"duration_ms", elapsed.Milliseconds())
	return a, nil
}

func passReports(a *extractor.Analysis) []metrics.PassReport {
	out := make([]metrics.PassReport, len(a.Passes))
	for i, p := range a.Passes {
		out[i] = metrics.PassReport{Mode: p.Mode, Failed: p.Error != ""}
	}
	return out
}

// Validate reports whether the template named name compiles.
func (s *Service) Validate(_ context.Context, name string) bool {
	if _, err := s.engine.Compile(name); err != nil {
		s.logger.Warn("Template validation failed", "template", name, "error", err)
		return false
	}
	return true
}

// ValidateError is Validate with the reason.
func (s *Service) ValidateError(_ context.Context, name string) error {
	_, err := s.engine.Compile(name)
	return err
}

// RequiredVariablesWithDefaults returns the variable tree of the template
// with placeholder leaves. On failure it returns an empty tree and the
// error.
func (s *Service) RequiredVariablesWithDefaults(ctx context.Context, name string) (*extractor.Tree, error) {
	a, err := s.Analyze(ctx, name)
	if err != nil {
		return extractor.NewTree(), err
	}
	return a.Variables, nil
}

// PreviewData returns realistic sample data for the template. When the
// template cannot be analyzed it falls back to a generic invoice data set.
func (s *Service) PreviewData(ctx context.Context, name string) *extractor.Tree {
	a, err := s.Analyze(ctx, name)
	if err != nil || !a.Valid {
		s.logger.Warn("Using fallback preview data", "template", name, "error", err)
		return extractor.FallbackSamples()
	}
	return extractor.SampleTree(a.Variables)
}

// VariableMap returns the variables of the template in the shapes form
// builders need: hierarchical, flattened one level, and filtered to
// form-related names.
func (s *Service) VariableMap(ctx context.Context, name string) (*VariableMap, error) {
	a, err := s.Analyze(ctx, name)
	if err != nil {
		return &VariableMap{
			TemplateName:     name,
			Required:         extractor.NewTree(),
			Flattened:        extractor.NewTree(),
			FormVariables:    extractor.NewTree(),
			Descriptions:     map[string]string{},
			MissingVariables: []string{"Error: " + errorMessage(err)},
		}, err
	}

	flat := Flatten(a.Variables)
	descriptions := make(map[string]string, a.Variables.Len())
	for _, k := range a.Variables.Names() {
		descriptions[k] = DescribeUsages(a.Usages(k))
	}
	return &VariableMap{
		TemplateName:     name,
		Valid:            a.Valid,
		Required:         a.Variables,
		Flattened:        flat,
		FormVariables:    filterTree(flat, IsFormRelated),
		Descriptions:     descriptions,
		MissingVariables: []string{},
	}, nil
}

// errorMessage strips the wrapping added by Analyze.
func errorMessage(err error) string {
	if u := errors.Unwrap(err); u != nil {
		return u.Error()
	}
	return err.Error()
}
