package ftl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
)

// namespace holds the variables, macros and functions of one template
// namespace: the main template (plus everything it includes) or one
// #import. It is a hash so `lib.macroName` resolves through DotExpr.
type namespace struct {
	name string
	vars map[string]Model
}

func newNamespace(name string) *namespace {
	return &namespace{name: name, vars: make(map[string]Model)}
}

func (n *namespace) Get(key string) (Model, error) { return n.vars[key], nil }

func (n *namespace) IsEmpty() (bool, error) { return len(n.vars) == 0, nil }

func (n *namespace) Keys() ([]string, error) {
	keys := make([]string, 0, len(n.vars))
	for k := range n.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

type macroValue struct {
	node *MacroNode
	ns   *namespace
	tpl  *Template
}

type functionValue struct {
	node *FunctionNode
	ns   *namespace
	tpl  *Template
}

type loopState struct {
	index   int
	size    int
	hasNext bool
}

// callFrame remembers the caller context of a macro so <#nested> can run
// the caller's body where it was written.
type callFrame struct {
	nested       []Node
	callerScopes []*scope
	callerNS     *namespace
	callerTpl    *Template
}

// scope is one level of local variables: a loop body or a macro/function
// call. Lookups never cross a call scope into the caller.
type scope struct {
	vars map[string]Model
	loop *loopState
	call *callFrame
}

func newScope() *scope {
	return &scope{vars: make(map[string]Model)}
}

type execution struct {
	ctx     context.Context
	engine  *Engine
	opts    execOptions
	root    Model
	globals map[string]Model
	imports map[string]*namespace

	ns     *namespace
	scopes []*scope
	tpl    *Template
	depth  int
	steps  int
}

func newExecution(ctx context.Context, e *Engine, tpl *Template, root Model, opts execOptions) *execution {
	x := &execution{
		ctx:     ctx,
		engine:  e,
		opts:    opts,
		root:    root,
		globals: make(map[string]Model),
		imports: make(map[string]*namespace),
		ns:      newNamespace(tpl.Name),
		tpl:     tpl,
	}
	x.hoist(tpl, x.ns)
	return x
}

// hoist makes the macros and functions of tpl callable before their
// definition is reached.
func (x *execution) hoist(tpl *Template, ns *namespace) {
	for _, m := range tpl.macros {
		ns.vars[m.Name] = &macroValue{node: m, ns: ns, tpl: tpl}
	}
	for _, f := range tpl.functions {
		ns.vars[f.Name] = &functionValue{node: f, ns: ns, tpl: tpl}
	}
}

type savedContext struct {
	scopes []*scope
	ns     *namespace
	tpl    *Template
}

func (x *execution) swap(scopes []*scope, ns *namespace, tpl *Template) savedContext {
	saved := savedContext{scopes: x.scopes, ns: x.ns, tpl: x.tpl}
	x.scopes, x.ns, x.tpl = scopes, ns, tpl
	return saved
}

func (x *execution) restore(s savedContext) {
	x.scopes, x.ns, x.tpl = s.scopes, s.ns, s.tpl
}

func (x *execution) push(sc *scope) {
	x.scopes = append(x.scopes, sc)
}

func (x *execution) pop() {
	x.scopes = x.scopes[:len(x.scopes)-1]
}

func (x *execution) enter(n Node) error {
	if x.depth >= x.engine.cfg.MaxCallDepth {
		return x.wrap(n, ErrCallDepth)
	}
	x.depth++
	return nil
}

func (x *execution) leave() {
	x.depth--
}

func (x *execution) step(n Node) error {
	x.steps++
	if limit := x.engine.cfg.MaxSteps; limit > 0 && x.steps > limit {
		return x.wrap(n, ErrStepLimit)
	}
	if x.steps%256 == 0 {
		if err := x.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func isSignal(err error) bool {
	switch err.(type) {
	case breakSignal, sepSignal, returnSignal:
		return true
	}
	return false
}

// wrap attaches the template position of n to err unless err already
// carries one or is a control-flow signal.
func (x *execution) wrap(n Node, err error) error {
	if err == nil || isSignal(err) {
		return err
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &EvalError{Template: x.tpl.Name, Pos: n.Position(), Cause: err}
}

func (x *execution) lookup(name string) (Model, error) {
	for i := len(x.scopes) - 1; i >= 0; i-- {
		sc := x.scopes[i]
		if v, ok := sc.vars[name]; ok {
			return v, nil
		}
		if sc.call != nil {
			break
		}
	}
	if v, ok := x.ns.vars[name]; ok {
		return v, nil
	}
	if v, ok := x.globals[name]; ok {
		return v, nil
	}
	if v, ok := x.engine.cfg.Functions[name]; ok {
		return v, nil
	}
	if h, ok := x.root.(HashModel); ok {
		return h.Get(name)
	}
	return nil, nil
}

// loopState returns the state of the innermost loop binding name.
func (x *execution) loopState(name string) *loopState {
	for i := len(x.scopes) - 1; i >= 0; i-- {
		sc := x.scopes[i]
		if _, ok := sc.vars[name]; ok {
			return sc.loop
		}
		if sc.call != nil {
			return nil
		}
	}
	return nil
}

func (x *execution) currentCall() *callFrame {
	for i := len(x.scopes) - 1; i >= 0; i-- {
		if c := x.scopes[i].call; c != nil {
			return c
		}
	}
	return nil
}

func (x *execution) run(nodes []Node, w io.Writer) error {
	for _, n := range nodes {
		if err := x.step(n); err != nil {
			return err
		}
		if err := x.exec(n, w); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocyclo // one case per node type
func (x *execution) exec(node Node, w io.Writer) error {
	switch n := node.(type) {
	case *TextNode:
		_, err := io.WriteString(w, n.Text)
		return err

	case *InterpolationNode:
		v, err := x.eval(n.Expr)
		if err != nil {
			return x.wrap(n, err)
		}
		s, err := x.output(n.Expr, v)
		if err != nil {
			return x.wrap(n, err)
		}
		_, err = io.WriteString(w, s)
		return err

	case *IfNode:
		for _, b := range n.Branches {
			ok, err := x.evalBool(b.Cond)
			if err != nil {
				return x.wrap(n, err)
			}
			if ok {
				return x.run(b.Body, w)
			}
		}
		return x.run(n.Else, w)

	case *ListNode:
		return x.execList(n, w)

	case *SepNode:
		if sc := x.innermostLoop(); sc != nil && !sc.hasNext {
			return sepSignal{}
		}
		return nil

	case *BreakNode:
		return breakSignal{}

	case *AssignNode:
		return x.execAssign(n, w)

	case *MacroNode, *FunctionNode:
		return nil

	case *MacroCallNode:
		return x.execMacroCall(n, w)

	case *NestedNode:
		frame := x.currentCall()
		if frame == nil || frame.nested == nil {
			return nil
		}
		saved := x.swap(frame.callerScopes, frame.callerNS, frame.callerTpl)
		defer x.restore(saved)
		return x.run(frame.nested, w)

	case *ReturnNode:
		if n.Value == nil {
			return returnSignal{}
		}
		v, err := x.eval(n.Value)
		if err != nil {
			return x.wrap(n, err)
		}
		return returnSignal{value: v}

	case *IncludeNode:
		return x.execInclude(n, w)

	case *ImportNode:
		return x.execImport(n)

	case *SwitchNode:
		return x.execSwitch(n, w)

	case *AttemptNode:
		var buf strings.Builder
		err := x.run(n.Body, &buf)
		if err == nil || isSignal(err) {
			if _, werr := io.WriteString(w, buf.String()); werr != nil {
				return werr
			}
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return x.run(n.Recover, w)

	case *CompressNode:
		var buf strings.Builder
		if err := x.run(n.Body, &buf); err != nil {
			return err
		}
		_, err := io.WriteString(w, compressWhitespace(buf.String()))
		return err

	case *StopNode:
		var msg string
		if n.Message != nil {
			s, err := x.evalString(n.Message)
			if err != nil {
				return x.wrap(n, err)
			}
			msg = s
		}
		return x.wrap(n, &StopError{Message: msg})
	}

	return fmt.Errorf("unsupported node %T", node)
}

func (x *execution) innermostLoop() *loopState {
	for i := len(x.scopes) - 1; i >= 0; i-- {
		if l := x.scopes[i].loop; l != nil {
			return l
		}
		if x.scopes[i].call != nil {
			return nil
		}
	}
	return nil
}

func (x *execution) execList(n *ListNode, w io.Writer) error {
	src, err := x.evalRequired(n.Source)
	if err != nil {
		return x.wrap(n, err)
	}

	if n.ValueVar != "" {
		hash, ok := src.(HashExModel)
		if !ok {
			return x.wrap(n, &TypeError{Expr: n.Source.String(), Expected: "hash", Got: typeName(src)})
		}
		keys, err := hash.Keys()
		if err != nil {
			return x.wrap(n, err)
		}
		if len(keys) == 0 {
			return x.run(n.Else, w)
		}
		sc := newScope()
		x.push(sc)
		defer x.pop()
		for i, k := range keys {
			v, err := hash.Get(k)
			if err != nil {
				return x.wrap(n, err)
			}
			sc.vars[n.Item] = SimpleScalar(k)
			sc.vars[n.ValueVar] = v
			sc.loop = &loopState{index: i, size: len(keys), hasNext: i < len(keys)-1}
			if stop, err := x.loopBody(n.Body, w); err != nil || stop {
				return err
			}
		}
		return nil
	}

	seq, ok := src.(SequenceModel)
	if !ok {
		expected := "sequence"
		if _, isHash := src.(HashModel); isHash {
			expected = "sequence (list a hash with \"as key, value\")"
		}
		return x.wrap(n, &TypeError{Expr: n.Source.String(), Expected: expected, Got: typeName(src)})
	}
	size, err := seq.Size()
	if err != nil {
		return x.wrap(n, err)
	}
	if size == 0 {
		return x.run(n.Else, w)
	}

	index := seq.Index
	if ls, ok := src.(LoopSourceModel); ok {
		index = func(i int) (Model, error) { return ls.LoopItem(n.Item, i) }
	}

	sc := newScope()
	x.push(sc)
	defer x.pop()
	for i := 0; i < size; i++ {
		item, err := index(i)
		if err != nil {
			return x.wrap(n, err)
		}
		sc.vars[n.Item] = item
		sc.loop = &loopState{index: i, size: size, hasNext: i < size-1}
		if stop, err := x.loopBody(n.Body, w); err != nil || stop {
			return err
		}
	}
	return nil
}

// loopBody runs one iteration and reports whether #break ended the loop.
func (x *execution) loopBody(body []Node, w io.Writer) (bool, error) {
	err := x.run(body, w)
	switch err.(type) {
	case sepSignal:
		return false, nil
	case breakSignal:
		return true, nil
	}
	return false, err
}

func (x *execution) execAssign(n *AssignNode, w io.Writer) error {
	if len(n.Targets) == 1 && n.Targets[0].Value == nil {
		var buf strings.Builder
		if err := x.run(n.Capture, &buf); err != nil {
			return err
		}
		return x.wrap(n, x.set(n.Scope, n.Targets[0].Name, SimpleScalar(buf.String())))
	}

	for _, t := range n.Targets {
		v, err := x.evalRequired(t.Value)
		if err != nil {
			return x.wrap(n, err)
		}
		if err := x.set(n.Scope, t.Name, v); err != nil {
			return x.wrap(n, err)
		}
	}
	return nil
}

func (x *execution) set(s AssignScope, name string, v Model) error {
	switch s {
	case ScopeGlobal:
		x.globals[name] = v
	case ScopeLocal:
		for i := len(x.scopes) - 1; i >= 0; i-- {
			if x.scopes[i].call != nil {
				x.scopes[i].vars[name] = v
				return nil
			}
		}
		return fmt.Errorf("#local %s used outside of a macro or function", name)
	default:
		x.ns.vars[name] = v
	}
	return nil
}

func (x *execution) execMacroCall(n *MacroCallNode, w io.Writer) error {
	callee, err := x.eval(n.Callee)
	if err != nil {
		return x.wrap(n, err)
	}
	m, ok := callee.(*macroValue)
	if !ok {
		if callee == nil {
			return x.wrap(n, &UndefinedError{Expr: n.Callee.String()})
		}
		return x.wrap(n, &TypeError{Expr: n.Callee.String(), Expected: "macro", Got: typeName(callee)})
	}

	sc := newScope()
	sc.call = &callFrame{
		nested:       n.Body,
		callerScopes: slices.Clone(x.scopes),
		callerNS:     x.ns,
		callerTpl:    x.tpl,
	}

	params := m.node.Params
	if len(n.Positional) > len(params) {
		return x.wrap(n, fmt.Errorf("macro %s takes %d parameters, got %d", m.node.Name, len(params), len(n.Positional)))
	}
	for i, arg := range n.Positional {
		v, err := x.eval(arg)
		if err != nil {
			return x.wrap(n, err)
		}
		sc.vars[params[i].Name] = v
	}
	for _, arg := range n.Named {
		if !hasParam(params, arg.Name) {
			return x.wrap(n, fmt.Errorf("macro %s has no parameter named %q", m.node.Name, arg.Name))
		}
		v, err := x.eval(arg.Value)
		if err != nil {
			return x.wrap(n, err)
		}
		sc.vars[arg.Name] = v
	}

	if err := x.enter(n); err != nil {
		return err
	}
	defer x.leave()
	saved := x.swap([]*scope{sc}, m.ns, m.tpl)
	defer x.restore(saved)

	if err := x.bindDefaults(m.node, m.node.Name, params, sc); err != nil {
		return err
	}
	err = x.run(m.node.Body, w)
	if _, ok := err.(returnSignal); ok {
		return nil
	}
	return err
}

// bindDefaults fills unset parameters from their defaults, evaluated in the
// callee's context so they may refer to earlier parameters.
func (x *execution) bindDefaults(n Node, name string, params []Param, sc *scope) error {
	for _, p := range params {
		if v, ok := sc.vars[p.Name]; ok && v != nil {
			continue
		}
		if p.Default == nil {
			return x.wrap(n, fmt.Errorf("%s: required parameter %q is missing", name, p.Name))
		}
		v, err := x.eval(p.Default)
		if err != nil {
			return x.wrap(n, err)
		}
		sc.vars[p.Name] = v
	}
	return nil
}

func hasParam(params []Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (x *execution) callFunction(n Node, fn *functionValue, args []Model) (Model, error) {
	params := fn.node.Params
	if len(args) > len(params) {
		return nil, fmt.Errorf("function %s takes %d parameters, got %d", fn.node.Name, len(params), len(args))
	}
	sc := newScope()
	sc.call = &callFrame{}
	for i, v := range args {
		sc.vars[params[i].Name] = v
	}

	if err := x.enter(n); err != nil {
		return nil, err
	}
	defer x.leave()
	saved := x.swap([]*scope{sc}, fn.ns, fn.tpl)
	defer x.restore(saved)

	if err := x.bindDefaults(n, fn.node.Name, params, sc); err != nil {
		return nil, err
	}
	err := x.run(fn.node.Body, io.Discard)
	if ret, ok := err.(returnSignal); ok {
		return ret.value, nil
	}
	return nil, err
}

func (x *execution) load(n Node, path Expr) (*Template, string, error) {
	name, err := x.evalString(path)
	if err != nil {
		return nil, "", x.wrap(n, err)
	}
	resolved := ResolveName(x.tpl.Name, name)
	tpl, err := x.engine.Compile(resolved)
	if err != nil {
		return nil, resolved, x.wrap(n, err)
	}
	return tpl, resolved, nil
}

func (x *execution) execInclude(n *IncludeNode, w io.Writer) error {
	tpl, _, err := x.load(n, n.Path)
	if err != nil {
		if x.opts.ignoreMissingTemplates && errors.Is(err, ErrTemplateNotFound) {
			return nil
		}
		return err
	}

	if err := x.enter(n); err != nil {
		return err
	}
	defer x.leave()
	x.hoist(tpl, x.ns)
	prev := x.tpl
	x.tpl = tpl
	defer func() { x.tpl = prev }()
	return x.run(tpl.Root, w)
}

func (x *execution) execImport(n *ImportNode) error {
	tpl, resolved, err := x.load(n, n.Path)
	if err != nil {
		if x.opts.ignoreMissingTemplates && errors.Is(err, ErrTemplateNotFound) {
			x.ns.vars[n.Namespace] = newNamespace(resolved)
			return nil
		}
		return err
	}

	ns, ok := x.imports[resolved]
	if !ok {
		ns = newNamespace(resolved)
		x.hoist(tpl, ns)
		x.imports[resolved] = ns

		if err := x.enter(n); err != nil {
			return err
		}
		saved := x.swap(nil, ns, tpl)
		err := x.run(tpl.Root, io.Discard)
		x.restore(saved)
		x.leave()
		if err != nil && !isSignal(err) {
			return err
		}
	}
	x.ns.vars[n.Namespace] = ns
	return nil
}

func (x *execution) execSwitch(n *SwitchNode, w io.Writer) error {
	value, err := x.evalRequired(n.Value)
	if err != nil {
		return x.wrap(n, err)
	}

	start := -1
cases:
	for i, c := range n.Cases {
		for _, candidate := range c.Values {
			cv, err := x.evalRequired(candidate)
			if err != nil {
				return x.wrap(n, err)
			}
			eq, err := equals(value, cv)
			if err != nil {
				return x.wrap(n, err)
			}
			if eq {
				start = i
				break cases
			}
		}
	}
	if start < 0 {
		for i, c := range n.Cases {
			if c.Default {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return nil
	}

	// cases fall through until #break, as in FreeMarker
	for _, c := range n.Cases[start:] {
		err := x.run(c.Body, w)
		if _, ok := err.(breakSignal); ok {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func compressWhitespace(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
