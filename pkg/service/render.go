package service

import (
	"context"
	"time"

	"ftlvars/pkg/templating"
)

const (
	kindRender  = "render"
	kindPreview = "preview"
)

// RenderRequest asks for one template to be rendered with caller data.
type RenderRequest struct {
	TemplateName     string         `json:"templateName" yaml:"templateName"`
	Variables        map[string]any `json:"variables" yaml:"variables"`
	IncludeDebugInfo bool           `json:"includeDebugInfo" yaml:"includeDebugInfo"`
}

// RenderResult is the outcome of a render. Failures are reported in the
// result, not as Go errors.
type RenderResult struct {
	TemplateName string        `json:"templateName" yaml:"templateName"`
	Output       string        `json:"output" yaml:"output"`
	Success      bool          `json:"success" yaml:"success"`
	Errors       []string      `json:"errors" yaml:"errors"`
	RenderTime   time.Duration `json:"renderTime" yaml:"renderTime"`
	DebugInfo    *DebugInfo    `json:"debugInfo,omitempty" yaml:"debugInfo,omitempty"`

	// Diagnostic is a multi-line explanation of the first error with
	// template context, empty on success.
	Diagnostic string `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
}

// DebugInfo describes a successful render.
type DebugInfo struct {
	VariableCount int           `json:"variableCount" yaml:"variableCount"`
	TemplateSize  int           `json:"templateSize" yaml:"templateSize"`
	RenderTime    time.Duration `json:"renderTime" yaml:"renderTime"`
	Timestamp     time.Time     `json:"timestamp" yaml:"timestamp"`
}

// Render renders req.TemplateName with req.Variables.
func (s *Service) Render(ctx context.Context, req RenderRequest) *RenderResult {
	vars := req.Variables
	if vars == nil {
		vars = map[string]any{}
	}
	s.logger.Info("Rendering template", "template", req.TemplateName, "variables", len(vars))
	return s.render(ctx, kindRender, req.TemplateName, vars, len(vars), req.IncludeDebugInfo)
}

// RenderPreview renders the template with sample data derived from its
// own analysis. Debug info is always included.
func (s *Service) RenderPreview(ctx context.Context, name string) *RenderResult {
	if !s.engine.HasTemplate(name) {
		s.metrics.RecordRender(kindPreview, 0, false)
		return &RenderResult{
			TemplateName: name,
			Errors:       []string{"Preview failed: template not found: " + name},
		}
	}
	data := s.PreviewData(ctx, name)
	return s.render(ctx, kindPreview, name, data.Model(), data.Len(), true)
}

func (s *Service) render(ctx context.Context, kind, name string, data any, count int, debug bool) *RenderResult {
	start := s.now()
	out, err := s.engine.Render(ctx, name, data)
	elapsed := s.now().Sub(start)
	s.metrics.RecordRender(kind, elapsed, err == nil)

	if err != nil {
		s.logger.Warn("Template rendering failed", "template", name, "kind", kind, "error", err)
		src, _ := s.engine.Source(name)
		return &RenderResult{
			TemplateName: name,
			Errors:       []string{"Render failed: " + err.Error()},
			RenderTime:   elapsed,
			Diagnostic:   templating.FormatRenderError(err, name, src),
		}
	}

	res := &RenderResult{
		TemplateName: name,
		Output:       out,
		Success:      true,
		Errors:       []string{},
		RenderTime:   elapsed,
	}
	if debug {
		res.DebugInfo = &DebugInfo{
			VariableCount: count,
			TemplateSize:  len(out),
			RenderTime:    elapsed,
			Timestamp:     s.now(),
		}
	}
	s.logger.Debug("Template rendered", "template", name, "kind", kind, "bytes", len(out))
	return res
}
