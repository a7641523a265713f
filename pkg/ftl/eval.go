package ftl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

//nolint:gocyclo // one case per expression type
func (x *execution) eval(expr Expr) (Model, error) {
	switch e := expr.(type) {
	case *StringLit:
		return SimpleScalar(e.Value), nil

	case *TemplateString:
		var b strings.Builder
		for _, part := range e.Parts {
			switch p := part.(type) {
			case string:
				b.WriteString(p)
			case Expr:
				v, err := x.eval(p)
				if err != nil {
					return nil, err
				}
				s, err := x.output(p, v)
				if err != nil {
					return nil, err
				}
				b.WriteString(s)
			}
		}
		return SimpleScalar(b.String()), nil

	case *NumberLit:
		return SimpleNumber(e.Value), nil

	case *BoolLit:
		return SimpleBoolean(e.Value), nil

	case *SequenceLit:
		items := make(SimpleSequence, len(e.Items))
		for i, item := range e.Items {
			v, err := x.evalRequired(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil

	case *HashLit:
		h := NewSimpleHash()
		for i, k := range e.Keys {
			key, err := x.evalString(k)
			if err != nil {
				return nil, err
			}
			v, err := x.evalRequired(e.Values[i])
			if err != nil {
				return nil, err
			}
			h.Put(key, v)
		}
		return h, nil

	case *RangeExpr:
		from, err := x.evalInt(e.From)
		if err != nil {
			return nil, err
		}
		to, err := x.evalInt(e.To)
		if err != nil {
			return nil, err
		}
		return newRange(from, to, e.Exclusive), nil

	case *Ident:
		return x.lookup(e.Name)

	case *ParenExpr:
		return x.eval(e.X)

	case *DotExpr:
		target, err := x.evalRequired(e.Target)
		if err != nil {
			return nil, err
		}
		hash, ok := target.(HashModel)
		if !ok {
			return nil, &TypeError{Expr: e.Target.String(), Expected: "hash", Got: typeName(target)}
		}
		return hash.Get(e.Name)

	case *IndexExpr:
		return x.evalIndex(e)

	case *BuiltinExpr:
		return x.evalBuiltin(e)

	case *CallExpr:
		return x.evalCall(e)

	case *UnaryExpr:
		switch e.Op {
		case "!":
			b, err := x.evalBool(e.X)
			if err != nil {
				return nil, err
			}
			return SimpleBoolean(!b), nil
		case "-":
			n, err := x.evalNumber(e.X)
			if err != nil {
				return nil, err
			}
			return SimpleNumber(-n), nil
		default:
			n, err := x.evalNumber(e.X)
			if err != nil {
				return nil, err
			}
			return SimpleNumber(n), nil
		}

	case *BinaryExpr:
		return x.evalBinary(e)

	case *DefaultExpr:
		v, err := x.eval(e.X)
		if err != nil && !IsUndefined(err) {
			return nil, err
		}
		if err == nil && v != nil {
			return v, nil
		}
		if e.Default == nil {
			return emptyValue{}, nil
		}
		return x.eval(e.Default)

	case *ExistsExpr:
		v, err := x.eval(e.X)
		if err != nil {
			if IsUndefined(err) {
				return SimpleBoolean(false), nil
			}
			return nil, err
		}
		return SimpleBoolean(v != nil), nil
	}

	return nil, fmt.Errorf("unsupported expression %T", expr)
}

// evalRequired evaluates e and turns a missing value into an UndefinedError.
func (x *execution) evalRequired(e Expr) (Model, error) {
	v, err := x.eval(e)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &UndefinedError{Expr: e.String()}
	}
	return v, nil
}

func (x *execution) evalBool(e Expr) (bool, error) {
	v, err := x.evalRequired(e)
	if err != nil {
		return false, err
	}
	b, ok := v.(BooleanModel)
	if !ok {
		return false, &TypeError{Expr: e.String(), Expected: "boolean", Got: typeName(v)}
	}
	return b.AsBoolean()
}

func (x *execution) evalNumber(e Expr) (float64, error) {
	v, err := x.evalRequired(e)
	if err != nil {
		return 0, err
	}
	n, ok := v.(NumberModel)
	if !ok {
		return 0, &TypeError{Expr: e.String(), Expected: "number", Got: typeName(v)}
	}
	return n.AsNumber()
}

func (x *execution) evalInt(e Expr) (int, error) {
	n, err := x.evalNumber(e)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (x *execution) evalString(e Expr) (string, error) {
	v, err := x.evalRequired(e)
	if err != nil {
		return "", err
	}
	return toString(e, v)
}

// output converts the value of e for `${...}` and string interpolation.
func (x *execution) output(e Expr, v Model) (string, error) {
	if v == nil {
		return "", &UndefinedError{Expr: e.String()}
	}
	return toString(e, v)
}

func toString(e Expr, v Model) (string, error) {
	if s, ok := v.(ScalarModel); ok {
		return s.AsString()
	}
	if n, ok := v.(NumberModel); ok {
		f, err := n.AsNumber()
		if err != nil {
			return "", err
		}
		return formatNumber(f), nil
	}
	if d, ok := v.(DateModel); ok {
		t, err := d.AsDate()
		if err != nil {
			return "", err
		}
		return formatDate(t), nil
	}
	if b, ok := v.(BooleanModel); ok {
		bv, err := b.AsBoolean()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(bv), nil
	}
	name := "value"
	if e != nil {
		name = e.String()
	}
	return "", &TypeError{Expr: name, Expected: "string, number, date or boolean", Got: typeName(v)}
}

func isStringable(v Model) bool {
	switch v.(type) {
	case ScalarModel, NumberModel, DateModel:
		return true
	}
	return false
}

func (x *execution) evalIndex(e *IndexExpr) (Model, error) {
	target, err := x.evalRequired(e.Target)
	if err != nil {
		return nil, err
	}
	key, err := x.evalRequired(e.Key)
	if err != nil {
		return nil, err
	}

	if r, ok := key.(rangeSequence); ok {
		return slice(e, target, r)
	}
	if seq, ok := target.(SequenceModel); ok {
		if n, ok := key.(NumberModel); ok {
			f, err := n.AsNumber()
			if err != nil {
				return nil, err
			}
			return seq.Index(int(f))
		}
	}
	if hash, ok := target.(HashModel); ok {
		if s, ok := key.(ScalarModel); ok {
			k, err := s.AsString()
			if err != nil {
				return nil, err
			}
			return hash.Get(k)
		}
	}
	if s, ok := target.(ScalarModel); ok {
		if n, ok := key.(NumberModel); ok {
			str, err := s.AsString()
			if err != nil {
				return nil, err
			}
			f, err := n.AsNumber()
			if err != nil {
				return nil, err
			}
			runes := []rune(str)
			i := int(f)
			if i < 0 || i >= len(runes) {
				return nil, fmt.Errorf("string index %d out of bounds for %s (length %d)", i, e.Target.String(), len(runes))
			}
			return SimpleScalar(string(runes[i])), nil
		}
	}
	return nil, &TypeError{Expr: e.Target.String(), Expected: "sequence or hash", Got: typeName(target)}
}

// slice implements `seq[a..b]` and `str[a..b]`.
func slice(e *IndexExpr, target Model, r rangeSequence) (Model, error) {
	if seq, ok := target.(SequenceModel); ok {
		out := make(SimpleSequence, 0, r.size)
		for i := 0; i < r.size; i++ {
			item, err := seq.Index(r.from + i*r.step)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	if s, ok := target.(ScalarModel); ok {
		str, err := s.AsString()
		if err != nil {
			return nil, err
		}
		runes := []rune(str)
		var b strings.Builder
		for i := 0; i < r.size; i++ {
			idx := r.from + i*r.step
			if idx < 0 || idx >= len(runes) {
				return nil, fmt.Errorf("range %s out of bounds for %s (length %d)", e.Key.String(), e.Target.String(), len(runes))
			}
			b.WriteRune(runes[idx])
		}
		return SimpleScalar(b.String()), nil
	}
	return nil, &TypeError{Expr: e.Target.String(), Expected: "sequence or string", Got: typeName(target)}
}

func (x *execution) evalCall(e *CallExpr) (Model, error) {
	fn, err := x.evalRequired(e.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]Model, len(e.Args))
	for i, a := range e.Args {
		v, err := x.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch f := fn.(type) {
	case *functionValue:
		return x.callFunction(e, f, args)
	case *macroValue:
		return nil, fmt.Errorf("%s is a macro; call it with <@%s/>", e.Fn.String(), e.Fn.String())
	case MethodModel:
		return f.Call(args)
	}
	return nil, &TypeError{Expr: e.Fn.String(), Expected: "function or method", Got: typeName(fn)}
}

func (x *execution) evalBinary(e *BinaryExpr) (Model, error) {
	switch e.Op {
	case "&&", "||":
		l, err := x.evalBool(e.L)
		if err != nil {
			return nil, err
		}
		if e.Op == "&&" && !l {
			return SimpleBoolean(false), nil
		}
		if e.Op == "||" && l {
			return SimpleBoolean(true), nil
		}
		r, err := x.evalBool(e.R)
		if err != nil {
			return nil, err
		}
		return SimpleBoolean(r), nil
	}

	l, err := x.evalRequired(e.L)
	if err != nil {
		return nil, err
	}
	r, err := x.evalRequired(e.R)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==", "!=":
		eq, err := equals(l, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.String(), err)
		}
		return SimpleBoolean(eq == (e.Op == "==")), nil
	case "<", "<=", ">", ">=":
		c, err := compare(l, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.String(), err)
		}
		switch e.Op {
		case "<":
			return SimpleBoolean(c < 0), nil
		case "<=":
			return SimpleBoolean(c <= 0), nil
		case ">":
			return SimpleBoolean(c > 0), nil
		default:
			return SimpleBoolean(c >= 0), nil
		}
	case "+":
		return add(e, l, r)
	}

	a, aok := l.(NumberModel)
	b, bok := r.(NumberModel)
	if !aok {
		return nil, &TypeError{Expr: e.L.String(), Expected: "number", Got: typeName(l)}
	}
	if !bok {
		return nil, &TypeError{Expr: e.R.String(), Expected: "number", Got: typeName(r)}
	}
	af, err := a.AsNumber()
	if err != nil {
		return nil, err
	}
	bf, err := b.AsNumber()
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "-":
		return SimpleNumber(af - bf), nil
	case "*":
		return SimpleNumber(af * bf), nil
	case "/":
		if bf == 0 {
			return nil, fmt.Errorf("%s: division by zero", e.String())
		}
		return SimpleNumber(af / bf), nil
	case "%":
		if bf == 0 {
			return nil, fmt.Errorf("%s: division by zero", e.String())
		}
		return SimpleNumber(math.Mod(af, bf)), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", e.Op)
}

// equals compares two values the way FreeMarker's == does: numbers by value,
// then strings, booleans and dates. Other combinations are an error.
func equals(l, r Model) (bool, error) {
	if a, ok := l.(NumberModel); ok {
		if b, ok := r.(NumberModel); ok {
			af, err := a.AsNumber()
			if err != nil {
				return false, err
			}
			bf, err := b.AsNumber()
			if err != nil {
				return false, err
			}
			return af == bf, nil
		}
	}
	if a, ok := l.(ScalarModel); ok {
		if b, ok := r.(ScalarModel); ok {
			as, err := a.AsString()
			if err != nil {
				return false, err
			}
			bs, err := b.AsString()
			if err != nil {
				return false, err
			}
			return as == bs, nil
		}
	}
	if a, ok := l.(BooleanModel); ok {
		if b, ok := r.(BooleanModel); ok {
			ab, err := a.AsBoolean()
			if err != nil {
				return false, err
			}
			bb, err := b.AsBoolean()
			if err != nil {
				return false, err
			}
			return ab == bb, nil
		}
	}
	if a, ok := l.(DateModel); ok {
		if b, ok := r.(DateModel); ok {
			at, err := a.AsDate()
			if err != nil {
				return false, err
			}
			bt, err := b.AsDate()
			if err != nil {
				return false, err
			}
			return at.Equal(bt), nil
		}
	}
	return false, fmt.Errorf("can't compare %s with %s", typeName(l), typeName(r))
}

func compare(l, r Model) (int, error) {
	if a, ok := l.(NumberModel); ok {
		if b, ok := r.(NumberModel); ok {
			af, err := a.AsNumber()
			if err != nil {
				return 0, err
			}
			bf, err := b.AsNumber()
			if err != nil {
				return 0, err
			}
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if a, ok := l.(DateModel); ok {
		if b, ok := r.(DateModel); ok {
			at, err := a.AsDate()
			if err != nil {
				return 0, err
			}
			bt, err := b.AsDate()
			if err != nil {
				return 0, err
			}
			return at.Compare(bt), nil
		}
	}
	if a, ok := l.(ScalarModel); ok {
		if b, ok := r.(ScalarModel); ok {
			as, err := a.AsString()
			if err != nil {
				return 0, err
			}
			bs, err := b.AsString()
			if err != nil {
				return 0, err
			}
			return strings.Compare(as, bs), nil
		}
	}
	return 0, fmt.Errorf("can't order %s and %s", typeName(l), typeName(r))
}

func add(e *BinaryExpr, l, r Model) (Model, error) {
	if a, ok := l.(NumberModel); ok {
		if b, ok := r.(NumberModel); ok {
			af, err := a.AsNumber()
			if err != nil {
				return nil, err
			}
			bf, err := b.AsNumber()
			if err != nil {
				return nil, err
			}
			return SimpleNumber(af + bf), nil
		}
	}
	if isStringable(l) && isStringable(r) {
		ls, err := toString(e.L, l)
		if err != nil {
			return nil, err
		}
		rs, err := toString(e.R, r)
		if err != nil {
			return nil, err
		}
		return SimpleScalar(ls + rs), nil
	}
	if a, ok := l.(SequenceModel); ok {
		if b, ok := r.(SequenceModel); ok {
			return concatSequences(a, b)
		}
	}
	if a, ok := l.(HashExModel); ok {
		if b, ok := r.(HashExModel); ok {
			return mergeHashes(a, b)
		}
	}
	return nil, fmt.Errorf("%s: can't add %s and %s", e.String(), typeName(l), typeName(r))
}

func concatSequences(seqs ...SequenceModel) (Model, error) {
	var out SimpleSequence
	for _, s := range seqs {
		size, err := s.Size()
		if err != nil {
			return nil, err
		}
		for i := 0; i < size; i++ {
			item, err := s.Index(i)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func mergeHashes(hashes ...HashExModel) (Model, error) {
	out := NewSimpleHash()
	for _, h := range hashes {
		keys, err := h.Keys()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			v, err := h.Get(k)
			if err != nil {
				return nil, err
			}
			out.Put(k, v)
		}
	}
	return out, nil
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
