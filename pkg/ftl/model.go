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

package ftl

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Model is any value the engine can evaluate.
//
// The evaluator never inspects concrete types. It asks a value for one of the
// capability interfaces below (HashModel, SequenceModel, ScalarModel, ...) and
// a single value may implement several of them at once.
type Model any

// HashModel is a value that supports lookup by name (`a.b`, `a["b"]`).
// Get returns (nil, nil) when the key is missing.
type HashModel interface {
	Get(key string) (Model, error)
	IsEmpty() (bool, error)
}

// HashExModel is a HashModel that can enumerate its keys. It is required
// for `<#list hash as k, v>` and the `?keys` / `?values` builtins.
type HashExModel interface {
	HashModel
	Keys() ([]string, error)
}

// SequenceModel is a value that supports lookup by index and has a size.
type SequenceModel interface {
	Index(i int) (Model, error)
	Size() (int, error)
}

// LoopSourceModel is a sequence that supplies the value bound to a #list
// loop variable itself. #list calls LoopItem instead of Index when the
// source implements it.
type LoopSourceModel interface {
	SequenceModel
	LoopItem(name string, i int) (Model, error)
}

// ScalarModel is a value that can be viewed as a string.
type ScalarModel interface {
	AsString() (string, error)
}

// BooleanModel is a value that can be viewed as a boolean.
type BooleanModel interface {
	AsBoolean() (bool, error)
}

// NumberModel is a value that can be viewed as a number.
type NumberModel interface {
	AsNumber() (float64, error)
}

// DateModel is a value that can be viewed as a point in time.
type DateModel interface {
	AsDate() (time.Time, error)
}

// MethodModel is a value that can be called from an expression: `fn(a, b)`.
type MethodModel interface {
	Call(args []Model) (Model, error)
}

// AdapterModel is implemented by wrappers that can hand back the Go value
// they were built from.
type AdapterModel interface {
	AdaptedObject() any
}

// SimpleScalar is a plain string value.
type SimpleScalar string

// AsString implements ScalarModel.
func (s SimpleScalar) AsString() (string, error) { return string(s), nil }

// SimpleBoolean is a plain boolean value.
type SimpleBoolean bool

// AsBoolean implements BooleanModel.
func (b SimpleBoolean) AsBoolean() (bool, error) { return bool(b), nil }

// SimpleNumber is a plain numeric value.
type SimpleNumber float64

// AsNumber implements NumberModel.
func (n SimpleNumber) AsNumber() (float64, error) { return float64(n), nil }

// SimpleDate is a plain date/time value.
type SimpleDate time.Time

// AsDate implements DateModel.
func (d SimpleDate) AsDate() (time.Time, error) { return time.Time(d), nil }

// SimpleSequence is an in-memory sequence of models.
type SimpleSequence []Model

// Index implements SequenceModel.
func (s SimpleSequence) Index(i int) (Model, error) {
	if i < 0 || i >= len(s) {
		return nil, nil
	}
	return s[i], nil
}

// Size implements SequenceModel.
func (s SimpleSequence) Size() (int, error) { return len(s), nil }

// SimpleHash is an insertion-ordered in-memory hash.
type SimpleHash struct {
	keys   []string
	values map[string]Model
}

// NewSimpleHash creates an empty SimpleHash.
func NewSimpleHash() *SimpleHash {
	return &SimpleHash{values: make(map[string]Model)}
}

// Put stores a value under key, keeping the first insertion position.
func (h *SimpleHash) Put(key string, value Model) {
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get implements HashModel.
func (h *SimpleHash) Get(key string) (Model, error) { return h.values[key], nil }

// IsEmpty implements HashModel.
func (h *SimpleHash) IsEmpty() (bool, error) { return len(h.keys) == 0, nil }

// Keys implements HashExModel.
func (h *SimpleHash) Keys() ([]string, error) {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out, nil
}

// MethodFunc adapts a Go function to MethodModel.
type MethodFunc func(args []Model) (Model, error)

// Call implements MethodModel.
func (f MethodFunc) Call(args []Model) (Model, error) { return f(args) }

// Wrap converts a Go value into a Model.
//
// Values that already implement a capability interface are returned as is.
// Maps with string keys and structs become hashes, slices and arrays become
// sequences, and scalars map onto the Simple* types. Containers are wrapped
// lazily: nested values are converted only when the template reaches them.
func Wrap(v any) Model {
	switch x := v.(type) {
	case nil:
		return nil
	case HashModel, SequenceModel, ScalarModel, BooleanModel, NumberModel, DateModel, MethodModel:
		return x
	case string:
		return SimpleScalar(x)
	case bool:
		return SimpleBoolean(x)
	case int:
		return SimpleNumber(x)
	case int64:
		return SimpleNumber(x)
	case float64:
		return SimpleNumber(x)
	case time.Time:
		return SimpleDate(x)
	case func(args ...any) (any, error):
		return MethodFunc(func(args []Model) (Model, error) {
			plain := make([]any, len(args))
			for i, a := range args {
				plain[i] = Unwrap(a)
			}
			out, err := x(plain...)
			if err != nil {
				return nil, err
			}
			return Wrap(out), nil
		})
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Wrap(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			return &mapHash{rv: rv}
		}
	case reflect.Slice:
		if rv.IsNil() {
			return SimpleSequence(nil)
		}
		return &reflectSequence{rv: rv}
	case reflect.Array:
		return &reflectSequence{rv: rv}
	case reflect.Struct:
		return &structHash{rv: rv}
	case reflect.String:
		return SimpleScalar(rv.String())
	case reflect.Bool:
		return SimpleBoolean(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return SimpleNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return SimpleNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return SimpleNumber(rv.Float())
	}

	if s, ok := v.(fmt.Stringer); ok {
		return SimpleScalar(s.String())
	}
	return SimpleScalar(fmt.Sprint(v))
}

// Unwrap converts a Model back into a plain Go value where possible.
// Models without a natural Go representation are returned unchanged.
func Unwrap(m Model) any {
	switch x := m.(type) {
	case nil:
		return nil
	case SimpleScalar:
		return string(x)
	case SimpleBoolean:
		return bool(x)
	case SimpleNumber:
		return float64(x)
	case SimpleDate:
		return time.Time(x)
	case SimpleSequence:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Unwrap(item)
		}
		return out
	case *SimpleHash:
		out := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			out[k] = Unwrap(x.values[k])
		}
		return out
	case AdapterModel:
		return x.AdaptedObject()
	}
	return m
}

type mapHash struct {
	rv reflect.Value
}

func (m *mapHash) Get(key string) (Model, error) {
	v := m.rv.MapIndex(reflect.ValueOf(key).Convert(m.rv.Type().Key()))
	if !v.IsValid() {
		return nil, nil
	}
	return Wrap(v.Interface()), nil
}

func (m *mapHash) IsEmpty() (bool, error) { return m.rv.Len() == 0, nil }

func (m *mapHash) Keys() ([]string, error) {
	keys := make([]string, 0, m.rv.Len())
	for _, k := range m.rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mapHash) AdaptedObject() any { return m.rv.Interface() }

type structHash struct {
	rv reflect.Value
}

// Get resolves a field by exact name, by `json`/`yaml` tag, or by the
// lower-camel form of the Go field name (`companyName` for CompanyName).
func (s *structHash) Get(key string) (Model, error) {
	t := s.rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == key || tagName(f, "json") == key || tagName(f, "yaml") == key || lowerFirst(f.Name) == key {
			return Wrap(s.rv.Field(i).Interface()), nil
		}
	}
	return nil, nil
}

func (s *structHash) IsEmpty() (bool, error) { return s.rv.NumField() == 0, nil }

func (s *structHash) Keys() ([]string, error) {
	t := s.rv.Type()
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			keys = append(keys, lowerFirst(f.Name))
		}
	}
	return keys, nil
}

func (s *structHash) AdaptedObject() any { return s.rv.Interface() }

type reflectSequence struct {
	rv reflect.Value
}

func (r *reflectSequence) Index(i int) (Model, error) {
	if i < 0 || i >= r.rv.Len() {
		return nil, nil
	}
	return Wrap(r.rv.Index(i).Interface()), nil
}

func (r *reflectSequence) Size() (int, error) { return r.rv.Len(), nil }

func (r *reflectSequence) AdaptedObject() any { return r.rv.Interface() }

func tagName(f reflect.StructField, tag string) string {
	name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
	return name
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// emptyValue is the result of a default operator without a right-hand side
// (`x!`). It reads as an empty string, an empty sequence and an empty hash.
type emptyValue struct{}

func (emptyValue) AsString() (string, error) { return "", nil }
func (emptyValue) Get(string) (Model, error) { return nil, nil }
func (emptyValue) IsEmpty() (bool, error)    { return true, nil }
func (emptyValue) Keys() ([]string, error)   { return nil, nil }
func (emptyValue) Index(int) (Model, error)  { return nil, nil }
func (emptyValue) Size() (int, error)        { return 0, nil }

// rangeSequence is the lazy sequence produced by `a..b` and `a..<b`.
type rangeSequence struct {
	from, size, step int
}

func newRange(from, to int, exclusive bool) rangeSequence {
	step := 1
	if to < from {
		step = -1
	}
	size := (to-from)*step + 1
	if exclusive {
		size--
	}
	if size < 0 {
		size = 0
	}
	return rangeSequence{from: from, size: size, step: step}
}

func (r rangeSequence) Index(i int) (Model, error) {
	if i < 0 || i >= r.size {
		return nil, nil
	}
	return SimpleNumber(r.from + i*r.step), nil
}

func (r rangeSequence) Size() (int, error) { return r.size, nil }

// typeName describes the capabilities of a value for error messages.
func typeName(m Model) string {
	if m == nil {
		return "missing"
	}
	var kinds []string
	if _, ok := m.(ScalarModel); ok {
		kinds = append(kinds, "string")
	}
	if _, ok := m.(NumberModel); ok {
		kinds = append(kinds, "number")
	}
	if _, ok := m.(BooleanModel); ok {
		kinds = append(kinds, "boolean")
	}
	if _, ok := m.(DateModel); ok {
		kinds = append(kinds, "date")
	}
	if _, ok := m.(SequenceModel); ok {
		kinds = append(kinds, "sequence")
	}
	if _, ok := m.(HashModel); ok {
		kinds = append(kinds, "hash")
	}
	if _, ok := m.(MethodModel); ok {
		kinds = append(kinds, "method")
	}
	switch m.(type) {
	case *macroValue:
		kinds = append(kinds, "macro")
	case *functionValue:
		kinds = append(kinds, "function")
	}
	if len(kinds) == 0 {
		return fmt.Sprintf("%T", m)
	}
	return strings.Join(kinds, "+")
}
