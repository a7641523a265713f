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

// Package introspection exposes watch-mode state over HTTP for debugging.
//
// Components publish named variables into an instance-scoped Registry, and
// Server serves them as JSON with optional kubectl-style JSONPath field
// selection:
//
//	GET /debug/vars                                  list variable paths
//	GET /debug/vars/all                              every variable
//	GET /debug/vars/analyses                         one variable
//	GET /debug/vars/history?field={[0].template}     one field of it
package introspection

import "sync/atomic"

// Var is a debug variable. Get returns its current JSON-serializable value
// and may be called concurrently.
type Var interface {
	Get() (any, error)
}

// Func is a Var computed on each query.
type Func func() (any, error)

// Get implements Var.
func (f Func) Get() (any, error) {
	return f()
}

// IntVar is an atomic counter Var.
type IntVar struct {
	value atomic.Int64
}

// NewInt creates an IntVar holding initial.
func NewInt(initial int64) *IntVar {
	v := &IntVar{}
	v.value.Store(initial)
	return v
}

// Get implements Var.
func (v *IntVar) Get() (any, error) {
	return v.value.Load(), nil
}

// Add adds delta.
func (v *IntVar) Add(delta int64) {
	v.value.Add(delta)
}

// Value returns the current value.
func (v *IntVar) Value() int64 {
	return v.value.Load()
}
