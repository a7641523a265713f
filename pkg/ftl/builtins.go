package ftl

import (
	"fmt"
	"html"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type builtinImpl func(x *execution, e *BuiltinExpr, target Model, args []Model) (Model, error)

type builtin struct {
	fn builtinImpl
	// nullSafe builtins receive a nil target instead of an UndefinedError.
	nullSafe bool
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		// generic
		"has_content": {fn: biHasContent, nullSafe: true},
		"is_string":   {fn: isKind[ScalarModel](), nullSafe: true},
		"is_number":   {fn: isKind[NumberModel](), nullSafe: true},
		"is_boolean":  {fn: isKind[BooleanModel](), nullSafe: true},
		"is_sequence": {fn: isKind[SequenceModel](), nullSafe: true},
		"is_hash":     {fn: isKind[HashModel](), nullSafe: true},
		"is_date":     {fn: isKind[DateModel](), nullSafe: true},
		"string":      {fn: biString},
		"c":           {fn: biC},

		// strings
		"length":      {fn: stringFn(func(s string) Model { return SimpleNumber(utf8.RuneCountInString(s)) })},
		"upper_case":  {fn: stringFn(func(s string) Model { return SimpleScalar(strings.ToUpper(s)) })},
		"lower_case":  {fn: stringFn(func(s string) Model { return SimpleScalar(strings.ToLower(s)) })},
		"cap_first":   {fn: stringFn(func(s string) Model { return SimpleScalar(mapFirst(s, unicode.ToUpper)) })},
		"uncap_first": {fn: stringFn(func(s string) Model { return SimpleScalar(mapFirst(s, unicode.ToLower)) })},
		"capitalize":  {fn: stringFn(func(s string) Model { return SimpleScalar(capitalize(s)) })},
		"trim":        {fn: stringFn(func(s string) Model { return SimpleScalar(strings.TrimSpace(s)) })},
		"html":        {fn: stringFn(func(s string) Model { return SimpleScalar(html.EscapeString(s)) })},
		"url":         {fn: stringFn(func(s string) Model { return SimpleScalar(url.QueryEscape(s)) })},
		"contains":    {fn: stringPred(strings.Contains)},
		"starts_with": {fn: stringPred(strings.HasPrefix)},
		"ends_with":   {fn: stringPred(strings.HasSuffix)},
		"replace":     {fn: biReplace},
		"split":       {fn: biSplit},
		"left_pad":    {fn: biPad(true)},
		"right_pad":   {fn: biPad(false)},
		"number":      {fn: biNumber},
		"boolean":     {fn: biBoolean},

		// numbers
		"round":   {fn: numberFn(math.Round)},
		"floor":   {fn: numberFn(math.Floor)},
		"ceiling": {fn: numberFn(math.Ceil)},
		"abs":     {fn: numberFn(math.Abs)},
		"int":     {fn: numberFn(math.Trunc)},

		// booleans
		"then": {fn: biThen},

		// dates
		"date":     {fn: biDate},
		"datetime": {fn: biDate},
		"time":     {fn: biDate},

		// sequences
		"size":         {fn: biSize},
		"first":        {fn: biFirst},
		"last":         {fn: biLast},
		"join":         {fn: biJoin},
		"reverse":      {fn: biReverse},
		"seq_contains": {fn: biSeqContains},
		"sort":         {fn: biSort},

		// hashes
		"keys":   {fn: biKeys},
		"values": {fn: biValues},
	}
}

type loopBuiltin func(st *loopState) Model

var loopBuiltins = map[string]loopBuiltin{
	"index":    func(st *loopState) Model { return SimpleNumber(st.index) },
	"counter":  func(st *loopState) Model { return SimpleNumber(st.index + 1) },
	"has_next": func(st *loopState) Model { return SimpleBoolean(st.hasNext) },
	"is_first": func(st *loopState) Model { return SimpleBoolean(st.index == 0) },
	"is_last":  func(st *loopState) Model { return SimpleBoolean(!st.hasNext) },
	"item_parity": func(st *loopState) Model {
		if st.index%2 == 0 {
			return SimpleScalar("odd")
		}
		return SimpleScalar("even")
	},
}

func (x *execution) evalBuiltin(e *BuiltinExpr) (Model, error) {
	if fn, ok := loopBuiltins[e.Name]; ok {
		if id, ok := e.Target.(*Ident); ok {
			if st := x.loopState(id.Name); st != nil {
				return fn(st), nil
			}
		}
	}

	args := make([]Model, len(e.Args))
	for i, a := range e.Args {
		v, err := x.evalRequired(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if custom, ok := x.engine.cfg.Builtins[e.Name]; ok {
		target, err := x.eval(e.Target)
		if err != nil && !IsUndefined(err) {
			return nil, err
		}
		return custom(target, args)
	}

	bi, ok := builtins[e.Name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in ?%s", e.Name)
	}
	target, err := x.eval(e.Target)
	if err != nil {
		if !bi.nullSafe || !IsUndefined(err) {
			return nil, err
		}
		target = nil
	}
	if target == nil && !bi.nullSafe {
		return nil, &UndefinedError{Expr: e.Target.String()}
	}
	return bi.fn(x, e, target, args)
}

func argCount(e *BuiltinExpr, args []Model, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("?%s expects %d argument(s), got %d", e.Name, lo, len(args))
		}
		return fmt.Errorf("?%s expects %d to %d arguments, got %d", e.Name, lo, hi, len(args))
	}
	return nil
}

func argString(e *BuiltinExpr, args []Model, i int) (string, error) {
	return toString(e, args[i])
}

func argNumber(e *BuiltinExpr, args []Model, i int) (float64, error) {
	n, ok := args[i].(NumberModel)
	if !ok {
		return 0, &TypeError{Expr: fmt.Sprintf("argument %d of ?%s", i+1, e.Name), Expected: "number", Got: typeName(args[i])}
	}
	return n.AsNumber()
}

func targetString(e *BuiltinExpr, target Model) (string, error) {
	return toString(e.Target, target)
}

func targetSequence(e *BuiltinExpr, target Model) (SequenceModel, int, error) {
	seq, ok := target.(SequenceModel)
	if !ok {
		return nil, 0, &TypeError{Expr: e.Target.String(), Expected: "sequence", Got: typeName(target)}
	}
	size, err := seq.Size()
	return seq, size, err
}

func stringFn(f func(string) Model) builtinImpl {
	return func(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
		if err := argCount(e, args, 0, 0); err != nil {
			return nil, err
		}
		s, err := targetString(e, target)
		if err != nil {
			return nil, err
		}
		return f(s), nil
	}
}

func stringPred(f func(s, sub string) bool) builtinImpl {
	return func(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
		if err := argCount(e, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := targetString(e, target)
		if err != nil {
			return nil, err
		}
		sub, err := argString(e, args, 0)
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(f(s, sub)), nil
	}
}

func numberFn(f func(float64) float64) builtinImpl {
	return func(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
		n, ok := target.(NumberModel)
		if !ok {
			return nil, &TypeError{Expr: e.Target.String(), Expected: "number", Got: typeName(target)}
		}
		v, err := n.AsNumber()
		if err != nil {
			return nil, err
		}
		return SimpleNumber(f(v)), nil
	}
}

func isKind[T any]() builtinImpl {
	return func(_ *execution, _ *BuiltinExpr, target Model, _ []Model) (Model, error) {
		_, ok := target.(T)
		return SimpleBoolean(ok), nil
	}
}

// biHasContent is false for missing values, empty strings, empty sequences
// and empty hashes. Hash emptiness is checked first so values that are both
// hashes and sequences are not asked for their size.
func biHasContent(_ *execution, _ *BuiltinExpr, target Model, _ []Model) (Model, error) {
	if target == nil {
		return SimpleBoolean(false), nil
	}
	if h, ok := target.(HashModel); ok {
		empty, err := h.IsEmpty()
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(!empty), nil
	}
	if seq, ok := target.(SequenceModel); ok {
		size, err := seq.Size()
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(size > 0), nil
	}
	if s, ok := target.(ScalarModel); ok {
		str, err := s.AsString()
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(str != ""), nil
	}
	return SimpleBoolean(true), nil
}

func biString(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		s, err := targetString(e, target)
		if err != nil {
			return nil, err
		}
		return SimpleScalar(s), nil
	}

	if b, ok := target.(BooleanModel); ok && useBooleanFormat(target, args) {
		bv, err := b.AsBoolean()
		if err != nil {
			return nil, err
		}
		var yes, no string
		if len(args) == 2 {
			if yes, err = argString(e, args, 0); err != nil {
				return nil, err
			}
			if no, err = argString(e, args, 1); err != nil {
				return nil, err
			}
		} else {
			p, err := argString(e, args, 0)
			if err != nil {
				return nil, err
			}
			yes, no, _ = booleanFormat(p)
		}
		if bv {
			return SimpleScalar(yes), nil
		}
		return SimpleScalar(no), nil
	}

	pattern, err := argString(e, args, 0)
	if err != nil {
		return nil, err
	}
	if d, ok := target.(DateModel); ok && looksLikeDatePattern(pattern) {
		t, err := d.AsDate()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(formatDatePattern(t, pattern)), nil
	}
	if n, ok := target.(NumberModel); ok {
		f, err := n.AsNumber()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(formatNumberPattern(f, pattern)), nil
	}
	if d, ok := target.(DateModel); ok {
		t, err := d.AsDate()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(formatDatePattern(t, pattern)), nil
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	return SimpleScalar(s), nil
}

// useBooleanFormat decides whether ?string(...) formats a boolean: two
// arguments, a "yes,no" pattern, or a value that is nothing but a boolean.
func useBooleanFormat(target Model, args []Model) bool {
	if len(args) == 2 {
		return true
	}
	if p, ok := args[0].(ScalarModel); ok {
		if s, err := p.AsString(); err == nil {
			if _, _, ok := booleanFormat(s); ok {
				return true
			}
		}
	}
	switch target.(type) {
	case ScalarModel, NumberModel, DateModel:
		return false
	}
	return true
}

// biC is the "computer format": numbers without grouping, booleans as
// true/false, strings quoted.
func biC(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	if n, ok := target.(NumberModel); ok {
		f, err := n.AsNumber()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(formatNumber(f)), nil
	}
	if b, ok := target.(BooleanModel); ok {
		bv, err := b.AsBoolean()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(strconv.FormatBool(bv)), nil
	}
	if s, ok := target.(ScalarModel); ok {
		str, err := s.AsString()
		if err != nil {
			return nil, err
		}
		return SimpleScalar(strconv.Quote(str)), nil
	}
	return nil, &TypeError{Expr: e.Target.String(), Expected: "number, boolean or string", Got: typeName(target)}
}

func mapFirst(s string, f func(rune) rune) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[size:]
}

func capitalize(s string) string {
	var b strings.Builder
	start := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			start = true
			b.WriteRune(r)
			continue
		}
		if start {
			b.WriteRune(unicode.ToUpper(r))
			start = false
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func biReplace(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 2, 2); err != nil {
		return nil, err
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	old, err := argString(e, args, 0)
	if err != nil {
		return nil, err
	}
	repl, err := argString(e, args, 1)
	if err != nil {
		return nil, err
	}
	return SimpleScalar(strings.ReplaceAll(s, old, repl)), nil
}

func biSplit(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 1, 1); err != nil {
		return nil, err
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	sep, err := argString(e, args, 0)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make(SimpleSequence, len(parts))
	for i, p := range parts {
		out[i] = SimpleScalar(p)
	}
	return out, nil
}

func biPad(left bool) builtinImpl {
	return func(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
		if err := argCount(e, args, 1, 2); err != nil {
			return nil, err
		}
		s, err := targetString(e, target)
		if err != nil {
			return nil, err
		}
		width, err := argNumber(e, args, 0)
		if err != nil {
			return nil, err
		}
		fill := " "
		if len(args) == 2 {
			if fill, err = argString(e, args, 1); err != nil {
				return nil, err
			}
			if fill == "" {
				return nil, fmt.Errorf("?%s padding string must not be empty", e.Name)
			}
		}
		missing := int(width) - utf8.RuneCountInString(s)
		if missing <= 0 {
			return SimpleScalar(s), nil
		}
		pad := []rune(strings.Repeat(fill, missing))[:missing]
		if left {
			return SimpleScalar(string(pad) + s), nil
		}
		return SimpleScalar(s + string(pad)), nil
	}
}

func biNumber(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	if n, ok := target.(NumberModel); ok {
		f, err := n.AsNumber()
		if err != nil {
			return nil, err
		}
		return SimpleNumber(f), nil
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("can't convert %q to number", s)
	}
	return SimpleNumber(f), nil
}

func biBoolean(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	if b, ok := target.(BooleanModel); ok {
		bv, err := b.AsBoolean()
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(bv), nil
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	switch strings.TrimSpace(s) {
	case "true":
		return SimpleBoolean(true), nil
	case "false":
		return SimpleBoolean(false), nil
	}
	return nil, fmt.Errorf("can't convert %q to boolean", s)
}

func biThen(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 2, 2); err != nil {
		return nil, err
	}
	b, ok := target.(BooleanModel)
	if !ok {
		return nil, &TypeError{Expr: e.Target.String(), Expected: "boolean", Got: typeName(target)}
	}
	bv, err := b.AsBoolean()
	if err != nil {
		return nil, err
	}
	if bv {
		return args[0], nil
	}
	return args[1], nil
}

// biDate converts a string to a date (optionally with a pattern argument) or
// passes dates through.
func biDate(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 0, 1); err != nil {
		return nil, err
	}
	if d, ok := target.(DateModel); ok {
		t, err := d.AsDate()
		if err != nil {
			return nil, err
		}
		return SimpleDate(t), nil
	}
	s, err := targetString(e, target)
	if err != nil {
		return nil, err
	}
	var pattern string
	if len(args) == 1 {
		if pattern, err = argString(e, args, 0); err != nil {
			return nil, err
		}
	}
	t, err := parseDate(s, pattern)
	if err != nil {
		return nil, fmt.Errorf("can't parse %q as a date: %w", s, err)
	}
	return SimpleDate(t), nil
}

func biSize(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	if seq, ok := target.(SequenceModel); ok {
		size, err := seq.Size()
		if err != nil {
			return nil, err
		}
		return SimpleNumber(size), nil
	}
	if h, ok := target.(HashExModel); ok {
		keys, err := h.Keys()
		if err != nil {
			return nil, err
		}
		return SimpleNumber(len(keys)), nil
	}
	return nil, &TypeError{Expr: e.Target.String(), Expected: "sequence or extended hash", Got: typeName(target)}
}

func biFirst(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	return seq.Index(0)
}

func biLast(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	return seq.Index(size - 1)
}

func biJoin(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 1, 1); err != nil {
		return nil, err
	}
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	sep, err := argString(e, args, 0)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, size)
	for i := 0; i < size; i++ {
		item, err := seq.Index(i)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		s, err := toString(e.Target, item)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return SimpleScalar(strings.Join(parts, sep)), nil
}

func biReverse(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	out := make(SimpleSequence, size)
	for i := 0; i < size; i++ {
		item, err := seq.Index(i)
		if err != nil {
			return nil, err
		}
		out[size-1-i] = item
	}
	return out, nil
}

func biSeqContains(_ *execution, e *BuiltinExpr, target Model, args []Model) (Model, error) {
	if err := argCount(e, args, 1, 1); err != nil {
		return nil, err
	}
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	for i := 0; i < size; i++ {
		item, err := seq.Index(i)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		if eq, err := equals(item, args[0]); err == nil && eq {
			return SimpleBoolean(true), nil
		}
	}
	return SimpleBoolean(false), nil
}

func biSort(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	seq, size, err := targetSequence(e, target)
	if err != nil {
		return nil, err
	}
	items := make(SimpleSequence, size)
	for i := 0; i < size; i++ {
		if items[i], err = seq.Index(i); err != nil {
			return nil, err
		}
	}
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		c, err := compare(items[i], items[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, fmt.Errorf("?sort: %w", sortErr)
	}
	return items, nil
}

func biKeys(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	h, ok := target.(HashExModel)
	if !ok {
		return nil, &TypeError{Expr: e.Target.String(), Expected: "extended hash", Got: typeName(target)}
	}
	keys, err := h.Keys()
	if err != nil {
		return nil, err
	}
	out := make(SimpleSequence, len(keys))
	for i, k := range keys {
		out[i] = SimpleScalar(k)
	}
	return out, nil
}

func biValues(_ *execution, e *BuiltinExpr, target Model, _ []Model) (Model, error) {
	h, ok := target.(HashExModel)
	if !ok {
		return nil, &TypeError{Expr: e.Target.String(), Expected: "extended hash", Got: typeName(target)}
	}
	keys, err := h.Keys()
	if err != nil {
		return nil, err
	}
	out := make(SimpleSequence, len(keys))
	for i, k := range keys {
		if out[i], err = h.Get(k); err != nil {
			return nil, err
		}
	}
	return out, nil
}
