// Package extractor discovers the variables a template needs by executing
// it against a capturing substitute data model.
//
// Every field, index and coercion the engine performs on the substitute is
// recorded as an access path. Several passes with different continuation
// values (plain, conditional, iteration) are merged into one ordered,
// deduplicated set of paths, which is then turned into a hierarchical
// variable tree with placeholder leaves. A pattern-based scanner adds the
// directive metadata (macros, functions, includes, imports, assignments
// and loops) that execution alone cannot report.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"golang.org/x/sync/errgroup"

	"ftlvars/pkg/ftl"
)

const (
	// DefaultIterationSize is the sequence size reported in iteration mode.
	DefaultIterationSize = 3

	// StrategyFalse forces falsy continuations in the conditional pass.
	StrategyFalse = "false"

	// StrategyRandom answers conditional-pass coercions at random.
	StrategyRandom = "random"
)

// Config controls how templates are analyzed.
type Config struct {
	// ConditionalStrategy is StrategyFalse (default) or StrategyRandom.
	ConditionalStrategy string

	// RandomSeed seeds StrategyRandom. Equal seeds give equal results.
	RandomSeed uint64

	// IterationSize is the sequence size of the iteration pass (default 3,
	// values below 2 fall back to the default).
	IterationSize int

	// ParallelPasses runs the passes concurrently.
	ParallelPasses bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.ConditionalStrategy {
	case "", StrategyFalse, StrategyRandom:
	default:
		return fmt.Errorf("conditional strategy must be %q or %q, got %q", StrategyFalse, StrategyRandom, c.ConditionalStrategy)
	}
	if c.IterationSize < 0 {
		return fmt.Errorf("iteration size must not be negative, got %d", c.IterationSize)
	}
	return nil
}

// TemplateEngine is the engine boundary the extractor needs. It is
// satisfied by *templating.TemplateEngine.
type TemplateEngine interface {
	Compile(name string) (*ftl.Template, error)
	Execute(ctx context.Context, tpl *ftl.Template, data any, opts ...ftl.Option) (string, error)
	Source(name string) (string, error)
}

// PassResult describes one mock pass.
type PassResult struct {
	Mode  string `json:"mode" yaml:"mode"`
	Paths int    `json:"paths" yaml:"paths"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Extractor analyzes templates. It is safe for concurrent use.
type Extractor struct {
	engine TemplateEngine
	cfg    Config
	logger *slog.Logger
}

// New creates an extractor. A nil logger uses slog.Default.
func New(engine TemplateEngine, cfg Config, logger *slog.Logger) (*Extractor, error) {
	if engine == nil {
		return nil, errors.New("template engine is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ConditionalStrategy == "" {
		cfg.ConditionalStrategy = StrategyFalse
	}
	if cfg.IterationSize < 2 {
		cfg.IterationSize = DefaultIterationSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		engine: engine,
		cfg:    cfg,
		logger: logger.With("component", "extractor"),
	}, nil
}

// Config returns the effective configuration.
func (x *Extractor) Config() Config { return x.cfg }

// Analyze discovers the variables of the template named name.
//
// Content problems such as syntax errors produce an invalid analysis and a
// nil error. A non-nil error is returned only when the template cannot be
// found or read, or ctx ends; the analysis returned alongside it is marked
// invalid and carries a matching error entry.
func (x *Extractor) Analyze(ctx context.Context, name string) (*Analysis, error) {
	a := newAnalysis(name)

	src, err := x.engine.Source(name)
	if err != nil {
		if errors.Is(err, ftl.ErrTemplateNotFound) {
			a.fail("Template not found: %s", name)
		} else {
			a.fail("Template could not be read: %v", err)
		}
		return a, fmt.Errorf("load template %s: %w", name, err)
	}

	directives := Scan(src)
	a.applyDirectives(directives)

	tpl, err := x.engine.Compile(name)
	if err != nil {
		if errors.Is(err, ftl.ErrTemplateNotFound) {
			a.fail("Template not found: %s", name)
			return a, fmt.Errorf("compile template %s: %w", name, err)
		}
		a.fail("Template parsing failed: %v", err)
		x.logger.Debug("template is invalid", "template", name, "error", err)
		return a, nil
	}

	passes := x.runPasses(ctx, name, tpl)
	if err := ctx.Err(); err != nil {
		a.fail("Analysis canceled: %v", err)
		return a, err
	}

	refs := unionPasses(passes)

	a.References = refs
	a.Variables = BuildTree(a.Paths())
	for _, p := range passes {
		a.Passes = append(a.Passes, p.result())
	}

	x.logger.Debug("template analyzed",
		"template", name,
		"paths", len(refs),
		"top_level", a.Variables.Len())
	return a, nil
}

// pass is the outcome of executing the template once against a substitute.
type pass struct {
	mode Mode
	rec  *recorder
	err  error
}

func (p pass) result() PassResult {
	r := PassResult{Mode: p.mode.String(), Paths: len(p.rec.paths)}
	if p.err != nil {
		r.Error = p.err.Error()
	}
	return r
}

var passModes = []Mode{ModePlain, ModeConditional, ModeIteration}

// runPasses executes every pass and returns them in fixed mode order,
// regardless of whether they ran concurrently.
func (x *Extractor) runPasses(ctx context.Context, name string, tpl *ftl.Template) []pass {
	passes := make([]pass, len(passModes))
	for i, mode := range passModes {
		passes[i] = pass{mode: mode, rec: newRecorder(mode, x.cfg.IterationSize, x.random(mode))}
	}

	if !x.cfg.ParallelPasses {
		for i := range passes {
			passes[i].err = x.execute(ctx, name, tpl, passes[i].rec)
		}
		return passes
	}

	// Pass failures are data, never group errors.
	var g errgroup.Group
	for i := range passes {
		g.Go(func() error {
			passes[i].err = x.execute(ctx, name, tpl, passes[i].rec)
			return nil
		})
	}
	_ = g.Wait()
	return passes
}

func (x *Extractor) execute(ctx context.Context, name string, tpl *ftl.Template, rec *recorder) error {
	root := &Substitute{rec: rec}
	_, err := x.engine.Execute(ctx, tpl, root, ftl.IgnoreMissingTemplates())
	if err != nil {
		x.logger.Debug("mock pass failed",
			"template", name,
			"mode", rec.mode.String(),
			"paths", len(rec.paths),
			"error", err)
	}
	return err
}

func (x *Extractor) random(mode Mode) *rand.Rand {
	if mode != ModeConditional || x.cfg.ConditionalStrategy != StrategyRandom {
		return nil
	}
	return rand.New(rand.NewPCG(x.cfg.RandomSeed, x.cfg.RandomSeed))
}

// unionPasses merges recorded paths in pass order, first seen wins.
func unionPasses(passes []pass) []Reference {
	var refs []Reference
	for _, p := range passes {
		for _, path := range p.rec.paths {
			refs = append(refs, Reference{Path: path, Usages: slices.Clone(p.rec.usage[path])})
		}
	}
	return mergeReferences(refs)
}

// mergeReferences collapses references that share a path, keeping the
// first position and the union of usages.
func mergeReferences(refs []Reference) []Reference {
	index := make(map[string]int, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if i, ok := index[r.Path]; ok {
			for _, u := range r.Usages {
				out[i].Usages = appendUnique(out[i].Usages, u)
			}
			continue
		}
		index[r.Path] = len(out)
		out = append(out, r)
	}
	return out
}
