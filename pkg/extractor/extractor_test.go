package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ftlvars/pkg/ftl"
	"ftlvars/pkg/templating"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestExtractor(t *testing.T, templates map[string]string, cfg Config) *Extractor {
	t.Helper()
	engine, err := templating.New(templating.EngineTypeFTL, templates)
	require.NoError(t, err)
	x, err := New(engine, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return x
}

func analyze(t *testing.T, src string) *Analysis {
	t.Helper()
	x := newTestExtractor(t, map[string]string{"test.ftl": src}, Config{})
	a, err := x.Analyze(context.Background(), "test.ftl")
	require.NoError(t, err)
	return a
}

func TestAnalyze_EmptyTemplate(t *testing.T) {
	a := analyze(t, "")

	assert.True(t, a.Valid)
	assert.Equal(t, 0, a.Variables.Len())
	assert.Empty(t, a.Errors)
	assert.Len(t, a.Passes, 3)
}

func TestAnalyze_SingleVariable(t *testing.T) {
	a := analyze(t, "Hello ${name}!")

	assert.True(t, a.Valid)
	assert.Equal(t, map[string]any{"name": ""}, a.Variables.ToMap())
	assert.Equal(t, []UsageKind{UsageOutput}, a.Usages("name"))
}

func TestAnalyze_NestedPaths(t *testing.T) {
	a := analyze(t, "${company.name} ${company.phone}")

	want := map[string]any{
		"company": map[string]any{"name": "", "phone": ""},
	}
	if diff := cmp.Diff(want, a.Variables.ToMap()); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"name", "phone"}, a.Variables.Subtree("company").Names())
}

func TestAnalyze_LoopVariable(t *testing.T) {
	a := analyze(t, "<#list items as item>${item.rate}</#list>")

	assert.True(t, a.Valid)
	assert.Equal(t, []string{"item"}, a.LoopVariables)

	rate, ok := a.Variables.At("item.rate")
	require.True(t, ok)
	assert.Equal(t, 0.0, rate)

	items, ok := a.Variables.Lookup("items")
	require.True(t, ok)
	assert.Equal(t, []any{}, items)

	assert.Contains(t, a.Usages("items"), UsageIteration)
	assert.Equal(t, []UsageKind{UsageOutput}, a.Usages("item.rate"))
	assert.NotContains(t, a.Paths(), "items[0].rate")
}

func TestAnalyze_NestedLoops(t *testing.T) {
	a := analyze(t, `<#list orders as order>${order.id}<#list order.lines as line>${line.sku}</#list></#list>`)

	assert.Equal(t, []string{"order", "line"}, a.LoopVariables)
	assert.Equal(t, []string{"orders", "order", "order.id", "order.lines", "line", "line.sku"}, a.Paths())
}

func TestAnalyze_IndexedAccessBesideLoop(t *testing.T) {
	a := analyze(t, "First: ${items[0].name}<#list items as item>${item.rate}</#list>")

	assert.True(t, a.Valid)
	assert.Equal(t, []string{"items", "items[0]", "items[0].name", "item", "item.rate"}, a.Paths())
	assert.Equal(t, []UsageKind{UsageOutput}, a.Usages("items[0].name"))
	assert.Nil(t, a.Usages("item.name"))
}

func TestAnalyze_ParenthesizedComparison(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "greater than", src: "<#if (total > 0)>${pos}</#if>"},
		{name: "greater or equal", src: "<#if (total >= 0)>${pos}</#if>"},
		{name: "word form", src: "<#if total gt 0>${pos}</#if>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyze(t, tt.src)
			assert.True(t, a.Valid, a.Errors)
			assert.Equal(t, []string{"total", "pos"}, a.Paths())
		})
	}
}

func TestAnalyze_HashLiteral(t *testing.T) {
	a := analyze(t, `<#assign m = {"a": x, "b": 2}>${m.a} ${m.b}`)

	assert.True(t, a.Valid, a.Errors)
	assert.Equal(t, []string{"x"}, a.Paths())
	assert.Equal(t, []string{"m"}, a.AssignedVariables)
}

func TestAnalyze_Idempotent(t *testing.T) {
	src := `<#if user.active>${user.name}<#else>${guest}</#if><#list items as i>${i.name}</#list>`
	x := newTestExtractor(t, map[string]string{"t.ftl": src}, Config{})

	first, err := x.Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)
	second, err := x.Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)

	assert.Equal(t, first.Paths(), second.Paths())
	if diff := cmp.Diff(first.Variables.ToMap(), second.Variables.ToMap()); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_CountDefaultsToZero(t *testing.T) {
	a := analyze(t, "${count}")

	v, ok := a.Variables.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestAnalyze_ScalarAndContainerUse(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "scalar first", src: "${payment}${payment.method}"},
		{name: "container first", src: "${payment.method}${payment}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyze(t, tt.src)
			want := map[string]any{"payment": map[string]any{"method": ""}}
			if diff := cmp.Diff(want, a.Variables.ToMap()); diff != "" {
				t.Errorf("variables mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyze_MissingIncludeAndImport(t *testing.T) {
	a := analyze(t, `<#include "missing.ftl"><#import "lib/missing.ftl" as lib>${title}`)

	assert.True(t, a.Valid)
	assert.Empty(t, a.Errors)
	assert.Equal(t, []string{"missing.ftl"}, a.IncludedTemplates)
	assert.Equal(t, []Import{{Alias: "lib", Template: "lib/missing.ftl"}}, a.ImportedTemplates)
	assert.Equal(t, []string{"title"}, a.Variables.Names())
}

func TestAnalyze_IncludedTemplateVariables(t *testing.T) {
	x := newTestExtractor(t, map[string]string{
		"invoice.ftl": `<#include "header.ftl">${total}`,
		"header.ftl":  `${company.name}`,
	}, Config{})

	a, err := x.Analyze(context.Background(), "invoice.ftl")
	require.NoError(t, err)
	assert.Equal(t, []string{"company", "company.name", "total"}, a.Paths())
}

func TestAnalyze_ConditionalPassReachesElseBranch(t *testing.T) {
	a := analyze(t, `<#if flag>${a}<#else>${b}</#if>`)

	assert.Equal(t, []string{"flag", "a", "b"}, a.Paths())
	assert.Equal(t, []UsageKind{UsageCondition}, a.Usages("flag"))
}

func TestAnalyze_AssignedVariablesStayInternal(t *testing.T) {
	a := analyze(t, `<#assign total = price * qty>${total}<#global brand = "x"><#macro m><#local tmp = 1>${tmp}</#macro>`)

	assert.Equal(t, []string{"total", "brand", "tmp"}, a.AssignedVariables)
	assert.Equal(t, []string{"total", "brand"}, a.GlobalVariables)
	assert.Equal(t, []string{"tmp"}, a.LocalVariables)
	assert.Equal(t, []string{"price", "qty"}, a.Variables.Names())
}

func TestAnalyze_Directives(t *testing.T) {
	src := `<#macro greet name greeting="Hello">${greeting} ${name}</#macro>` +
		`<#function sum a b><#return a + b></#function>` +
		`<@greet name=user.name/>${sum(x, y)}`
	a := analyze(t, src)

	sig, ok := a.Macro("greet")
	require.True(t, ok)
	assert.Equal(t, []string{"name", "greeting"}, sig.Params)

	fn, ok := a.Function("sum")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, fn.Params)

	assert.Equal(t, []string{"greet"}, a.MacroCalls)
	assert.Equal(t, []string{"user", "x", "y"}, a.Variables.Names())
}

func TestAnalyze_PassFailureKeepsPartialPaths(t *testing.T) {
	a := analyze(t, `${before}<#stop "halt">${after}`)

	assert.True(t, a.Valid)
	assert.Equal(t, []string{"before"}, a.Paths())
	for _, p := range a.Passes {
		assert.NotEmpty(t, p.Error, p.Mode)
	}
}

func TestAnalyze_SyntaxError(t *testing.T) {
	a := analyze(t, "${name")

	assert.False(t, a.Valid)
	require.Len(t, a.Errors, 1)
	assert.Contains(t, a.Errors[0], "Template parsing failed")
	assert.Empty(t, a.Passes)
}

func TestAnalyze_NotFound(t *testing.T) {
	x := newTestExtractor(t, map[string]string{}, Config{})

	a, err := x.Analyze(context.Background(), "nope.ftl")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ftl.ErrTemplateNotFound))
	assert.False(t, a.Valid)
	assert.Equal(t, []string{"Template not found: nope.ftl"}, a.Errors)
}

func TestAnalyze_Canceled(t *testing.T) {
	x := newTestExtractor(t, map[string]string{"t.ftl": "${a}"}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := x.Analyze(ctx, "t.ftl")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, a.Valid)
}

func TestAnalyze_ParallelMatchesSequential(t *testing.T) {
	src := `<#if on>${a.b}<#else>${c}</#if><#list rows as r>${r.v}</#list>`
	seq := newTestExtractor(t, map[string]string{"t.ftl": src}, Config{})
	par := newTestExtractor(t, map[string]string{"t.ftl": src}, Config{ParallelPasses: true})

	want, err := seq.Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)
	got, err := par.Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)

	assert.Equal(t, want.Paths(), got.Paths())
	assert.Equal(t, want.References, got.References)
}

func TestAnalyze_RandomStrategyIsSeeded(t *testing.T) {
	src := `<#if a>${x}</#if><#if b>${y}</#if><#if c>${z}</#if>`
	cfg := Config{ConditionalStrategy: StrategyRandom, RandomSeed: 42}

	first, err := newTestExtractor(t, map[string]string{"t.ftl": src}, cfg).Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)
	second, err := newTestExtractor(t, map[string]string{"t.ftl": src}, cfg).Analyze(context.Background(), "t.ftl")
	require.NoError(t, err)

	assert.Equal(t, first.Paths(), second.Paths())
	assert.Subset(t, first.Paths(), []string{"a", "x", "b", "y", "c", "z"})
}

func TestNew_Validation(t *testing.T) {
	engine, err := templating.New(templating.EngineTypeFTL, nil)
	require.NoError(t, err)

	_, err = New(nil, Config{}, nil)
	assert.EqualError(t, err, "template engine is required")

	_, err = New(engine, Config{ConditionalStrategy: "coin"}, nil)
	assert.ErrorContains(t, err, `got "coin"`)

	_, err = New(engine, Config{IterationSize: -1}, nil)
	assert.ErrorContains(t, err, "iteration size")

	x, err := New(engine, Config{IterationSize: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultIterationSize, x.Config().IterationSize)
	assert.Equal(t, StrategyFalse, x.Config().ConditionalStrategy)
}
