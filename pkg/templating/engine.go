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

	"ftlvars/pkg/ftl"
)

// FilterFunc is a custom `?name` builtin working on plain Go values.
// in is the value left of the `?`; args are the parenthesized arguments.
//
// Example:
//
//	func shout(in any, args ...any) (any, error) {
//	    s, ok := in.(string)
//	    if !ok {
//	        return nil, fmt.Errorf("shout: expected string, got %T", in)
//	    }
//	    return strings.ToUpper(s) + "!", nil
//	}
type FilterFunc func(in any, args ...any) (any, error)

// GlobalFunc is a function callable from templates as `name(args...)`.
type GlobalFunc func(args ...any) (any, error)

// Options configures a TemplateEngine.
type Options struct {
	// Loader resolves template names. Required.
	Loader Loader

	// Filters are registered as `?name` builtins.
	Filters map[string]FilterFunc

	// Functions are visible to every template as global functions.
	Functions map[string]GlobalFunc

	// MaxCallDepth and MaxSteps are passed to the engine (0 uses its defaults).
	MaxCallDepth int
	MaxSteps     int

	// PostProcessors run in order over the output of Render.
	PostProcessors []PostProcessorConfig
}

// TemplateEngine compiles templates by name and renders them. Compiled
// templates are cached until invalidated. It is safe for concurrent use.
type TemplateEngine struct {
	engineType     EngineType
	loader         Loader
	engine         *ftl.Engine
	postProcessors []PostProcessor
}

// New creates a TemplateEngine over an in-memory set of templates.
//
// Example:
//
//	templates := map[string]string{
//	    "greeting.ftl": "Hello ${name}!",
//	}
//	engine, err := templating.New(templating.EngineTypeFTL, templates)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(engineType EngineType, templates map[string]string) (*TemplateEngine, error) {
	return NewWithOptions(engineType, Options{Loader: NewSimpleLoader(templates)})
}

// NewWithOptions creates a TemplateEngine from opts. Templates are compiled
// lazily; use ValidateAll to compile everything up front.
func NewWithOptions(engineType EngineType, opts Options) (*TemplateEngine, error) {
	if engineType != EngineTypeFTL {
		return nil, &UnsupportedEngineError{Name: engineType.String()}
	}
	if opts.Loader == nil {
		return nil, errors.New("template loader is required")
	}

	processors := make([]PostProcessor, 0, len(opts.PostProcessors))
	for i, cfg := range opts.PostProcessors {
		p, err := NewPostProcessor(cfg)
		if err != nil {
			return nil, fmt.Errorf("post-processor %d: %w", i, err)
		}
		processors = append(processors, p)
	}

	cfg := ftl.Config{
		Loader:       opts.Loader,
		MaxCallDepth: opts.MaxCallDepth,
		MaxSteps:     opts.MaxSteps,
	}
	if len(opts.Filters) > 0 {
		cfg.Builtins = make(map[string]ftl.BuiltinFunc, len(opts.Filters))
		for name, f := range opts.Filters {
			cfg.Builtins[name] = wrapFilter(f)
		}
	}
	if len(opts.Functions) > 0 {
		cfg.Functions = make(map[string]ftl.Model, len(opts.Functions))
		for name, f := range opts.Functions {
			cfg.Functions[name] = ftl.Wrap((func(args ...any) (any, error))(f))
		}
	}

	return &TemplateEngine{
		engineType:     engineType,
		loader:         opts.Loader,
		engine:         ftl.New(cfg),
		postProcessors: processors,
	}, nil
}

// Compile returns the compiled template for name.
//
// Errors are *TemplateNotFoundError when no loader knows the name and
// *CompilationError when the source does not parse.
func (e *TemplateEngine) Compile(name string) (*ftl.Template, error) {
	tpl, err := e.engine.Compile(name)
	if err == nil {
		return tpl, nil
	}
	return nil, e.classify(name, err)
}

// Execute runs a compiled template against data without post-processing.
// Failures are returned as *RenderError.
func (e *TemplateEngine) Execute(ctx context.Context, tpl *ftl.Template, data any, opts ...ftl.Option) (string, error) {
	out, err := e.engine.ExecuteString(ctx, tpl, data, opts...)
	if err != nil {
		return "", NewRenderError(tpl.Name, err)
	}
	return out, nil
}

// Render compiles name, executes it against data and applies the configured
// post-processors.
//
// Example:
//
//	output, err := engine.Render(ctx, "greeting.ftl", map[string]any{"name": "World"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(output) // Output: Hello World!
func (e *TemplateEngine) Render(ctx context.Context, name string, data any) (string, error) {
	tpl, err := e.Compile(name)
	if err != nil {
		return "", err
	}

	output, err := e.Execute(ctx, tpl, data)
	if err != nil {
		return "", err
	}

	for _, p := range e.postProcessors {
		output, err = p.Process(output)
		if err != nil {
			return "", NewRenderError(name, fmt.Errorf("post-processing failed: %w", err))
		}
	}
	return output, nil
}

// Source returns the raw template text for name.
func (e *TemplateEngine) Source(name string) (string, error) {
	src, err := e.loader.Source(name)
	if err != nil {
		if errors.Is(err, ftl.ErrTemplateNotFound) {
			return "", NewTemplateNotFoundError(name, e.TemplateNames())
		}
		return "", err
	}
	return src, nil
}

// HasTemplate reports whether the loader can resolve name.
func (e *TemplateEngine) HasTemplate(name string) bool {
	_, err := e.loader.Source(name)
	return err == nil
}

// TemplateNames returns the names the loader can enumerate, sorted.
func (e *TemplateEngine) TemplateNames() []string {
	names, err := e.loader.Names()
	if err != nil {
		return nil
	}
	return names
}

// ValidateAll compiles every enumerable template and returns the failures
// keyed by template name.
func (e *TemplateEngine) ValidateAll() map[string]error {
	failures := make(map[string]error)
	for _, name := range e.TemplateNames() {
		if _, err := e.Compile(name); err != nil {
			failures[name] = err
		}
	}
	return failures
}

// Invalidate drops the cached compilation of name.
func (e *TemplateEngine) Invalidate(name string) {
	e.engine.Invalidate(name)
}

// InvalidateAll drops every cached compilation.
func (e *TemplateEngine) InvalidateAll() {
	e.engine.InvalidateAll()
}

// Loader returns the loader templates are read from.
func (e *TemplateEngine) Loader() Loader {
	return e.loader
}

// EngineType returns the template engine type used by this instance.
func (e *TemplateEngine) EngineType() EngineType {
	return e.engineType
}

// String returns a string representation of the engine for debugging.
func (e *TemplateEngine) String() string {
	return fmt.Sprintf("TemplateEngine{type=%s, templates=%d}", e.engineType, len(e.TemplateNames()))
}

func (e *TemplateEngine) classify(name string, err error) error {
	var perr *ftl.ParseError
	switch {
	case errors.Is(err, ftl.ErrTemplateNotFound):
		return NewTemplateNotFoundError(name, e.TemplateNames())
	case errors.As(err, &perr):
		src, _ := e.loader.Source(name)
		return NewCompilationError(name, src, err)
	default:
		return fmt.Errorf("failed to load template '%s': %w", name, err)
	}
}

// wrapFilter adapts a FilterFunc to the engine's builtin signature.
func wrapFilter(f FilterFunc) ftl.BuiltinFunc {
	return func(target ftl.Model, args []ftl.Model) (ftl.Model, error) {
		plain := make([]any, len(args))
		for i, a := range args {
			plain[i] = ftl.Unwrap(a)
		}
		out, err := f(ftl.Unwrap(target), plain...)
		if err != nil {
			return nil, err
		}
		return ftl.Wrap(out), nil
	}
}
