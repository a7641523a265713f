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

// Package eventimmutability provides a linter that detects modifications to
// published event structs.
//
// Events travel through the event bus by reference and every subscriber
// sees the same value, so consumers must treat them as read-only. A type is
// an event when its pointer has an EventType() string method.
package eventimmutability

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const Doc = `detect modifications to event struct fields

Events are immutable once published. This analyzer reports assignments to
fields of an event received by a function: through a parameter, a type
switch over an event interface, or a range over a channel.

Example of violation:

	func (c *StateCache) handleEvent(ev events.Event) {
		switch e := ev.(type) {
		case *AnalysisCompletedEvent:
			e.Trigger = "cache" // violation: event field mutation detected
		}
	}

Constructors and methods of the event type itself may set fields, and so may
code that builds an event in a local variable before publishing it.`

// Analyzer is the event immutability analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "eventimmutability",
	Doc:      Doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	var recvType types.Type
	received := make(map[*types.Var]bool)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
		(*ast.TypeSwitchStmt)(nil),
		(*ast.RangeStmt)(nil),
		(*ast.AssignStmt)(nil),
		(*ast.IncDecStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		switch node := n.(type) {
		case *ast.FuncDecl:
			recvType = nil
			received = make(map[*types.Var]bool)

			if node.Recv != nil && len(node.Recv.List) > 0 {
				recvType = deref(pass.TypesInfo.TypeOf(node.Recv.List[0].Type))
			}
			if node.Type.Params != nil {
				for _, field := range node.Type.Params.List {
					for _, name := range field.Names {
						if v, ok := pass.TypesInfo.ObjectOf(name).(*types.Var); ok {
							received[v] = true
						}
					}
				}
			}

		case *ast.TypeSwitchStmt:
			for _, stmt := range node.Body.List {
				if v, ok := pass.TypesInfo.Implicits[stmt].(*types.Var); ok {
					received[v] = true
				}
			}

		case *ast.RangeStmt:
			if _, ok := pass.TypesInfo.TypeOf(node.X).Underlying().(*types.Chan); !ok {
				return
			}
			if ident, ok := node.Key.(*ast.Ident); ok {
				if v, ok := pass.TypesInfo.ObjectOf(ident).(*types.Var); ok {
					received[v] = true
				}
			}

		case *ast.AssignStmt:
			for _, lhs := range node.Lhs {
				checkAssignment(pass, lhs, recvType, received)
			}

		case *ast.IncDecStmt:
			checkAssignment(pass, node.X, recvType, received)
		}
	})

	return nil, nil
}

func checkAssignment(pass *analysis.Pass, lhs ast.Expr, recvType types.Type, received map[*types.Var]bool) {
	sel, ok := lhs.(*ast.SelectorExpr)
	if !ok {
		return
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}

	named, ok := deref(pass.TypesInfo.TypeOf(sel.X)).(*types.Named)
	if !ok || !isEvent(named) {
		return
	}
	if recvType != nil && types.Identical(recvType, named) {
		return
	}

	v, ok := pass.TypesInfo.ObjectOf(ident).(*types.Var)
	if !ok || !received[v] {
		return
	}

	pass.Reportf(sel.Pos(),
		"event field mutation detected: events must not be modified after they are published (type: %s, field: %s)",
		named.Obj().Name(),
		sel.Sel.Name,
	)
}

// isEvent reports whether named is a struct whose pointer has an
// EventType() string method.
func isEvent(named *types.Named) bool {
	if _, ok := named.Underlying().(*types.Struct); !ok {
		return false
	}
	obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(named), true, named.Obj().Pkg(), "EventType")
	fn, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return false
	}
	basic, ok := sig.Results().At(0).Type().(*types.Basic)
	return ok && basic.Kind() == types.String
}

func deref(t types.Type) types.Type {
	if ptr, ok := t.(*types.Pointer); ok {
		return ptr.Elem()
	}
	return t
}
