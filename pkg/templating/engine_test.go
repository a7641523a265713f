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

package templating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlvars/pkg/ftl"
)

func TestNew_Render(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{
		"greeting.ftl": "Hello ${name}!",
	})
	require.NoError(t, err)

	out, err := engine.Render(context.Background(), "greeting.ftl", map[string]any{"name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", out)
	assert.Equal(t, EngineTypeFTL, engine.EngineType())
	assert.Equal(t, "TemplateEngine{type=ftl, templates=1}", engine.String())
}

func TestNew_RendersIncludes(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{
		"invoice.ftl":      `<#include "parts/header.ftl">Total: ${total}`,
		"parts/header.ftl": `<#include "logo.ftl">${company.name} | `,
		"parts/logo.ftl":   "[logo] ",
	})
	require.NoError(t, err)

	out, err := engine.Render(context.Background(), "invoice.ftl", map[string]any{
		"company": map[string]any{"name": "ACME"},
		"total":   42,
	})
	require.NoError(t, err)
	assert.Equal(t, "[logo] ACME | Total: 42", out)
}

func TestNewWithOptions_Validation(t *testing.T) {
	_, err := NewWithOptions(EngineType(7), Options{Loader: NewSimpleLoader(nil)})
	var unsupported *UnsupportedEngineError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "unknown", unsupported.Name)

	_, err = NewWithOptions(EngineTypeFTL, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader is required")
}

func TestTemplateEngine_CompileErrors(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{
		"ok.ftl":     "${a}",
		"broken.ftl": "line one\n<#if x>never closed",
	})
	require.NoError(t, err)

	tpl, err := engine.Compile("ok.ftl")
	require.NoError(t, err)
	assert.Equal(t, "ok.ftl", tpl.Name)

	_, err = engine.Compile("broken.ftl")
	var compErr *CompilationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "broken.ftl", compErr.TemplateName)
	assert.Equal(t, 2, compErr.Line)
	assert.Contains(t, compErr.TemplateSnippet, "never closed")

	_, err = engine.Compile("nope.ftl")
	var notFound *TemplateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"broken.ftl", "ok.ftl"}, notFound.AvailableTemplates)
	assert.ErrorIs(t, err, ftl.ErrTemplateNotFound)
}

func TestTemplateEngine_RenderError(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{"t.ftl": "${missing.value}"})
	require.NoError(t, err)

	_, err = engine.Render(context.Background(), "t.ftl", map[string]any{})
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "t.ftl", renderErr.TemplateName)
	assert.True(t, ftl.IsUndefined(err))
}

func TestTemplateEngine_SourceAndNames(t *testing.T) {
	loader := NewSimpleLoader(map[string]string{"b.ftl": "B", "a.ftl": "A"})
	engine, err := NewWithOptions(EngineTypeFTL, Options{Loader: loader})
	require.NoError(t, err)

	src, err := engine.Source("a.ftl")
	require.NoError(t, err)
	assert.Equal(t, "A", src)

	_, err = engine.Source("c.ftl")
	var notFound *TemplateNotFoundError
	require.ErrorAs(t, err, &notFound)

	assert.True(t, engine.HasTemplate("b.ftl"))
	assert.False(t, engine.HasTemplate("c.ftl"))
	assert.Equal(t, []string{"a.ftl", "b.ftl"}, engine.TemplateNames())
	assert.Same(t, loader, engine.Loader())
}

func TestTemplateEngine_Invalidate(t *testing.T) {
	loader := NewSimpleLoader(map[string]string{"t.ftl": "v1"})
	engine, err := NewWithOptions(EngineTypeFTL, Options{Loader: loader})
	require.NoError(t, err)
	ctx := context.Background()

	out, err := engine.Render(ctx, "t.ftl", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	loader.Set("t.ftl", "v2")
	out, err = engine.Render(ctx, "t.ftl", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out, "compiled template is cached")

	engine.Invalidate("t.ftl")
	out, err = engine.Render(ctx, "t.ftl", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)

	loader.Set("t.ftl", "v3")
	engine.InvalidateAll()
	out, err = engine.Render(ctx, "t.ftl", nil)
	require.NoError(t, err)
	assert.Equal(t, "v3", out)
}

func TestTemplateEngine_FiltersAndFunctions(t *testing.T) {
	engine, err := NewWithOptions(EngineTypeFTL, Options{
		Loader: NewSimpleLoader(map[string]string{
			"t.ftl": `${name?shout} ${money(total, "EUR")}`,
		}),
		Filters: map[string]FilterFunc{
			"shout": func(in any, args ...any) (any, error) {
				s, ok := in.(string)
				if !ok {
					return nil, fmt.Errorf("shout: expected string, got %T", in)
				}
				return strings.ToUpper(s) + "!", nil
			},
		},
		Functions: map[string]GlobalFunc{
			"money": func(args ...any) (any, error) {
				if len(args) != 2 {
					return nil, errors.New("money() takes an amount and a currency")
				}
				return fmt.Sprintf("%.2f %v", args[0], args[1]), nil
			},
		},
	})
	require.NoError(t, err)

	out, err := engine.Render(context.Background(), "t.ftl", map[string]any{"name": "ann", "total": 3.5})
	require.NoError(t, err)
	assert.Equal(t, "ANN! 3.50 EUR", out)
}

func TestTemplateEngine_FunctionErrorFailsRender(t *testing.T) {
	engine, err := NewWithOptions(EngineTypeFTL, Options{
		Loader: NewSimpleLoader(map[string]string{"t.ftl": `${fail("boom")}`}),
		Functions: map[string]GlobalFunc{
			"fail": func(args ...any) (any, error) {
				return nil, fmt.Errorf("%v", args[0])
			},
		},
	})
	require.NoError(t, err)

	_, err = engine.Render(context.Background(), "t.ftl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTemplateEngine_ExecuteHonorsOptions(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{
		"t.ftl": `before <#include "gone.ftl">after`,
	})
	require.NoError(t, err)
	ctx := context.Background()

	tpl, err := engine.Compile("t.ftl")
	require.NoError(t, err)

	_, err = engine.Execute(ctx, tpl, nil)
	require.Error(t, err)

	out, err := engine.Execute(ctx, tpl, nil, ftl.IgnoreMissingTemplates())
	require.NoError(t, err)
	assert.Equal(t, "before after", out)
}

func TestTemplateEngine_ValidateAll(t *testing.T) {
	engine, err := New(EngineTypeFTL, map[string]string{
		"good.ftl": "${x}",
		"bad.ftl":  "${x",
	})
	require.NoError(t, err)

	failures := engine.ValidateAll()
	require.Len(t, failures, 1)
	var compErr *CompilationError
	assert.ErrorAs(t, failures["bad.ftl"], &compErr)
}

func TestParseEngineType(t *testing.T) {
	for _, s := range []string{"", "ftl", "freemarker"} {
		et, err := ParseEngineType(s)
		require.NoError(t, err, s)
		assert.Equal(t, EngineTypeFTL, et)
	}

	_, err := ParseEngineType("gonja")
	var unsupported *UnsupportedEngineError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "unsupported template engine type: gonja", err.Error())
}
