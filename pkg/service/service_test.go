package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/templating"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, templates map[string]string) (*Service, *metrics.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := templating.New(templating.EngineTypeFTL, templates)
	require.NoError(t, err)
	ext, err := extractor.New(engine, extractor.Config{}, logger)
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	svc := New(engine, ext, m, logger)
	svc.now = func() time.Time { return fixedNow }
	return svc, m
}

func TestService_Analyze(t *testing.T) {
	svc, m := newTestService(t, map[string]string{
		"ok.ftl":     "${a}${b.c}",
		"broken.ftl": "${a",
	})

	a, err := svc.Analyze(context.Background(), "ok.ftl")
	require.NoError(t, err)
	assert.True(t, a.Valid)
	assert.Equal(t, []string{"a", "b"}, a.RequiredExternalVariables())

	a, err = svc.Analyze(context.Background(), "broken.ftl")
	require.NoError(t, err)
	assert.False(t, a.Valid)

	a, err = svc.Analyze(context.Background(), "missing.ftl")
	require.Error(t, err)
	assert.ErrorContains(t, err, "analysis failed")
	assert.False(t, a.Valid)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DiscoveredPaths.WithLabelValues("ok.ftl")))
}

func TestService_Render(t *testing.T) {
	svc, m := newTestService(t, map[string]string{"hello.ftl": "Hello ${name}!"})

	res := svc.Render(context.Background(), RenderRequest{
		TemplateName:     "hello.ftl",
		Variables:        map[string]any{"name": "World"},
		IncludeDebugInfo: true,
	})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "Hello World!", res.Output)
	assert.Empty(t, res.Errors)
	require.NotNil(t, res.DebugInfo)
	assert.Equal(t, DebugInfo{VariableCount: 1, TemplateSize: 12, Timestamp: fixedNow}, *res.DebugInfo)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersTotal.WithLabelValues("render", "success")))
}

func TestService_RenderWithoutDebugInfo(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"plain.ftl": "static"})

	res := svc.Render(context.Background(), RenderRequest{TemplateName: "plain.ftl"})

	assert.True(t, res.Success)
	assert.Equal(t, "static", res.Output)
	assert.Nil(t, res.DebugInfo)
}

func TestService_RenderFailure(t *testing.T) {
	svc, m := newTestService(t, map[string]string{"t.ftl": "line one\n${customer.name}"})

	res := svc.Render(context.Background(), RenderRequest{TemplateName: "t.ftl"})

	assert.False(t, res.Success)
	assert.Empty(t, res.Output)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Render failed: "), res.Errors[0])
	assert.Contains(t, res.Diagnostic, "Template Error: t.ftl")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersTotal.WithLabelValues("render", "failure")))
}

func TestService_RenderPreview(t *testing.T) {
	svc, m := newTestService(t, map[string]string{
		"invoice.ftl": `${invoiceNumber}|${totalAmount}|<#list items as item>${item.name};</#list>`,
	})

	res := svc.RenderPreview(context.Background(), "invoice.ftl")

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "INV-20240115-001|9000000|Website development;System consulting;", res.Output)
	require.NotNil(t, res.DebugInfo)
	assert.Equal(t, 4, res.DebugInfo.VariableCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersTotal.WithLabelValues("preview", "success")))
}

func TestService_RenderPreviewMissingTemplate(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res := svc.RenderPreview(context.Background(), "nope.ftl")

	assert.False(t, res.Success)
	assert.Equal(t, []string{"Preview failed: template not found: nope.ftl"}, res.Errors)
}

func TestService_PreviewDataFallback(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"broken.ftl": "<#if>"})

	data := svc.PreviewData(context.Background(), "broken.ftl")

	assert.Equal(t, extractor.FallbackSamples().Names(), data.Names())
}

func TestService_VariableMap(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{
		"form.ftl": `${user.name}${user.email}<#if formValid>${total}</#if>`,
	})

	vm, err := svc.VariableMap(context.Background(), "form.ftl")
	require.NoError(t, err)

	assert.True(t, vm.Valid)
	assert.Equal(t, []string{"user", "formValid", "total"}, vm.Required.Names())
	assert.Equal(t, []string{"user.name", "user.email", "formValid", "total"}, vm.Flattened.Names())
	assert.Equal(t, []string{"formValid"}, vm.FormVariables.Names())
	assert.Equal(t, map[string]string{
		"user":      "Variable used in template",
		"formValid": "Used for: conditional logic",
		"total":     "Used for: output display",
	}, vm.Descriptions)
	assert.Empty(t, vm.MissingVariables)
}

func TestService_VariableMapError(t *testing.T) {
	svc, _ := newTestService(t, nil)

	vm, err := svc.VariableMap(context.Background(), "nope.ftl")
	require.Error(t, err)
	require.Len(t, vm.MissingVariables, 1)
	assert.True(t, strings.HasPrefix(vm.MissingVariables[0], "Error: "))
	assert.Equal(t, 0, vm.Required.Len())
}

func TestService_RequiredVariablesWithDefaults(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"t.ftl": "${count}${company.name}"})

	tree, err := svc.RequiredVariablesWithDefaults(context.Background(), "t.ftl")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 0, "company": map[string]any{"name": ""}}, tree.ToMap())

	tree, err = svc.RequiredVariablesWithDefaults(context.Background(), "nope.ftl")
	require.Error(t, err)
	assert.Equal(t, 0, tree.Len())
}

func TestService_Validate(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{
		"ok.ftl":     "${x}",
		"broken.ftl": "<#if x>",
	})

	assert.True(t, svc.Validate(context.Background(), "ok.ftl"))
	assert.False(t, svc.Validate(context.Background(), "broken.ftl"))
	assert.False(t, svc.Validate(context.Background(), "nope.ftl"))

	var compErr *templating.CompilationError
	assert.ErrorAs(t, svc.ValidateError(context.Background(), "broken.ftl"), &compErr)
}
