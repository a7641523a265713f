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

// Package ftl implements a FreeMarker-compatible template language subset.
//
// Templates are compiled by name through a Loader and executed against a
// data model built from capability interfaces (HashModel, SequenceModel,
// ScalarModel, ...). The engine knows nothing about where data comes from,
// so any value implementing those interfaces can stand in for the data
// model, including values that record how the template accessed them.
//
// Supported directives: assign, global, local, if/elseif/else, list (with
// sep, else and break), macro, nested, function, return, include, import,
// switch/case/default, attempt/recover, compress and stop.
package ftl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

const (
	// DefaultMaxCallDepth bounds macro, function, include and import nesting.
	DefaultMaxCallDepth = 64

	// DefaultMaxSteps bounds the number of nodes a single execution may run.
	DefaultMaxSteps = 1_000_000
)

// Loader resolves template names to source text.
//
// Implementations must return an error wrapping ErrTemplateNotFound when a
// name is unknown so the engine can tell missing templates apart from I/O
// failures.
type Loader interface {
	Source(name string) (string, error)
}

// BuiltinFunc implements a custom `?name` builtin. target is the value left
// of the `?`; args is nil when the builtin was used without parentheses.
type BuiltinFunc func(target Model, args []Model) (Model, error)

// Config is the engine configuration. It is passed once to New and never
// read from package-level state.
type Config struct {
	// Loader resolves template names for Compile, #include and #import.
	Loader Loader

	// Builtins adds or overrides `?name` builtins.
	Builtins map[string]BuiltinFunc

	// Functions are shared variables visible to every template, looked up
	// after local, namespace and global variables and before the data model.
	Functions map[string]Model

	// MaxCallDepth limits nesting of calls and includes (0 uses the default).
	MaxCallDepth int

	// MaxSteps limits executed nodes per Execute call (0 uses the default,
	// negative disables the limit).
	MaxSteps int
}

// Template is a compiled template.
type Template struct {
	Name   string
	Source string
	Root   []Node

	macros    []*MacroNode
	functions []*FunctionNode
}

// Macros returns the top-level macro definitions in source order.
func (t *Template) Macros() []*MacroNode { return t.macros }

// Functions returns the top-level function definitions in source order.
func (t *Template) Functions() []*FunctionNode { return t.functions }

// Engine compiles and executes templates. It caches compiled templates by
// name and is safe for concurrent use.
type Engine struct {
	cfg Config

	mu    sync.RWMutex
	cache map[string]*Template
}

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.MaxCallDepth == 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return &Engine{
		cfg:   cfg,
		cache: make(map[string]*Template),
	}
}

// Compile returns the compiled template for name, loading and parsing it on
// first use.
func (e *Engine) Compile(name string) (*Template, error) {
	e.mu.RLock()
	tpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	if e.cfg.Loader == nil {
		return nil, fmt.Errorf("%w: %s (no loader configured)", ErrTemplateNotFound, name)
	}
	src, err := e.cfg.Loader.Source(name)
	if err != nil {
		return nil, err
	}
	tpl, err = Parse(name, src)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[name] = tpl
	e.mu.Unlock()
	return tpl, nil
}

// Invalidate drops the cached compilation of name.
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	delete(e.cache, name)
	e.mu.Unlock()
}

// InvalidateAll drops every cached compilation.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	e.cache = make(map[string]*Template)
	e.mu.Unlock()
}

// Option tunes a single Execute call.
type Option func(*execOptions)

type execOptions struct {
	ignoreMissingTemplates bool
}

// IgnoreMissingTemplates makes #include of an unknown template a no-op and
// binds #import of an unknown template to an empty namespace.
func IgnoreMissingTemplates() Option {
	return func(o *execOptions) { o.ignoreMissingTemplates = true }
}

// Execute runs tpl against data and writes the output to w. data may be a
// Model or any Go value accepted by Wrap.
func (e *Engine) Execute(ctx context.Context, tpl *Template, w io.Writer, data any, opts ...Option) error {
	var o execOptions
	for _, opt := range opts {
		opt(&o)
	}

	x := newExecution(ctx, e, tpl, Wrap(data), o)
	err := x.run(tpl.Root, w)

	var (
		brk breakSignal
		sep sepSignal
		ret returnSignal
	)
	switch {
	case errors.As(err, &brk), errors.As(err, &sep), errors.As(err, &ret):
		// stray control flow at top level ends the template quietly
		return nil
	}
	return err
}

// ExecuteString is Execute into a string.
func (e *Engine) ExecuteString(ctx context.Context, tpl *Template, data any, opts ...Option) (string, error) {
	var b strings.Builder
	if err := e.Execute(ctx, tpl, &b, data, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ResolveName resolves a name used by #include or #import inside the
// template current. Absolute names ("/x.ftl") are relative to the loader
// root, everything else is relative to the directory of current.
func ResolveName(current, name string) string {
	if strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(path.Clean(name), "/")
	}
	dir := path.Dir(current)
	if dir == "." || dir == "/" {
		return path.Clean(name)
	}
	return path.Join(dir, name)
}
