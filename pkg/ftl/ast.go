package ftl

import (
	"strconv"
	"strings"
)

// Node is a statement-level element of a parsed template.
type Node interface {
	Position() Position
}

// Expr is an expression inside `${...}` or a directive tag.
type Expr interface {
	Position() Position
	String() string
}

type nodeBase struct{ pos Position }

func (n nodeBase) Position() Position { return n.pos }

// TextNode is literal template text.
type TextNode struct {
	nodeBase
	Text string
}

// InterpolationNode is `${expr}`.
type InterpolationNode struct {
	nodeBase
	Expr Expr
}

// CondBranch is one `if`/`elseif` arm.
type CondBranch struct {
	Cond Expr
	Body []Node
}

// IfNode is `<#if>...<#elseif>...<#else>...</#if>`.
type IfNode struct {
	nodeBase
	Branches []CondBranch
	Else     []Node
}

// ListNode is `<#list seq as item>` or `<#list hash as key, value>`.
type ListNode struct {
	nodeBase
	Source   Expr
	Item     string
	ValueVar string
	Body     []Node
	Else     []Node
}

// SepNode is `<#sep>`: the rest of the loop body is skipped on the last item.
type SepNode struct{ nodeBase }

// BreakNode is `<#break>`.
type BreakNode struct{ nodeBase }

// AssignScope selects where an assignment directive stores its value.
type AssignScope int

const (
	ScopeNamespace AssignScope = iota // <#assign>
	ScopeGlobal                       // <#global>
	ScopeLocal                        // <#local>
)

// Assignment is one `name = expr` pair.
type Assignment struct {
	Name  string
	Value Expr
}

// AssignNode is `<#assign a=1 b=2>` or the capture form
// `<#assign a>body</#assign>`.
type AssignNode struct {
	nodeBase
	Scope   AssignScope
	Targets []Assignment
	Capture []Node
}

// Param is a macro or function parameter with an optional default.
type Param struct {
	Name    string
	Default Expr
}

// MacroNode is `<#macro name params>body</#macro>`.
type MacroNode struct {
	nodeBase
	Name   string
	Params []Param
	Body   []Node
}

// FunctionNode is `<#function name params>body</#function>`.
type FunctionNode struct {
	nodeBase
	Name   string
	Params []Param
	Body   []Node
}

// ReturnNode is `<#return>` or `<#return expr>`.
type ReturnNode struct {
	nodeBase
	Value Expr
}

// NestedNode is `<#nested>`.
type NestedNode struct{ nodeBase }

// NamedArg is one `name=value` argument of a macro call.
type NamedArg struct {
	Name  string
	Value Expr
}

// MacroCallNode is `<@name args/>` or `<@name args>body</@name>`.
type MacroCallNode struct {
	nodeBase
	Callee     Expr
	Named      []NamedArg
	Positional []Expr
	Body       []Node
}

// IncludeNode is `<#include "path">`.
type IncludeNode struct {
	nodeBase
	Path Expr
}

// ImportNode is `<#import "path" as ns>`.
type ImportNode struct {
	nodeBase
	Path      Expr
	Namespace string
}

// SwitchCase is one `<#case>` (or `<#default>` when Default is set).
type SwitchCase struct {
	Values  []Expr
	Default bool
	Body    []Node
}

// SwitchNode is `<#switch value>...</#switch>`.
type SwitchNode struct {
	nodeBase
	Value Expr
	Cases []SwitchCase
}

// AttemptNode is `<#attempt>...<#recover>...</#attempt>`.
type AttemptNode struct {
	nodeBase
	Body    []Node
	Recover []Node
}

// CompressNode is `<#compress>...</#compress>`.
type CompressNode struct {
	nodeBase
	Body []Node
}

// StopNode is `<#stop>` or `<#stop "message">`.
type StopNode struct {
	nodeBase
	Message Expr
}

// Expressions

// StringLit is a quoted string without interpolations.
type StringLit struct {
	nodeBase
	Value string
}

func (e *StringLit) String() string { return strconv.Quote(e.Value) }

// TemplateString is a quoted string containing `${...}` parts. Parts holds
// string and Expr values in source order.
type TemplateString struct {
	nodeBase
	Parts []any
}

func (e *TemplateString) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, p := range e.Parts {
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case Expr:
			b.WriteString("${" + v.String() + "}")
		}
	}
	b.WriteByte('"')
	return b.String()
}

// NumberLit is a numeric literal.
type NumberLit struct {
	nodeBase
	Value float64
}

func (e *NumberLit) String() string { return formatNumber(e.Value) }

// BoolLit is `true` or `false`.
type BoolLit struct {
	nodeBase
	Value bool
}

func (e *BoolLit) String() string { return strconv.FormatBool(e.Value) }

// SequenceLit is `[a, b, c]`.
type SequenceLit struct {
	nodeBase
	Items []Expr
}

func (e *SequenceLit) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// HashLit is `{"k": v, ...}`.
type HashLit struct {
	nodeBase
	Keys   []Expr
	Values []Expr
}

func (e *HashLit) String() string {
	parts := make([]string, len(e.Keys))
	for i := range e.Keys {
		parts[i] = e.Keys[i].String() + ": " + e.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RangeExpr is `a..b` (inclusive) or `a..<b` (exclusive).
type RangeExpr struct {
	nodeBase
	From, To  Expr
	Exclusive bool
}

func (e *RangeExpr) String() string {
	op := ".."
	if e.Exclusive {
		op = "..<"
	}
	return e.From.String() + op + e.To.String()
}

// Ident is a top-level variable reference.
type Ident struct {
	nodeBase
	Name string
}

func (e *Ident) String() string { return e.Name }

// DotExpr is `target.name`.
type DotExpr struct {
	nodeBase
	Target Expr
	Name   string
}

func (e *DotExpr) String() string { return e.Target.String() + "." + e.Name }

// IndexExpr is `target[key]`.
type IndexExpr struct {
	nodeBase
	Target Expr
	Key    Expr
}

func (e *IndexExpr) String() string { return e.Target.String() + "[" + e.Key.String() + "]" }

// BuiltinExpr is `target?name` or `target?name(args)`.
type BuiltinExpr struct {
	nodeBase
	Target Expr
	Name   string
	Args   []Expr
}

func (e *BuiltinExpr) String() string {
	s := e.Target.String() + "?" + e.Name
	if e.Args != nil {
		s += "(" + joinExprs(e.Args) + ")"
	}
	return s
}

// CallExpr is `fn(args)`.
type CallExpr struct {
	nodeBase
	Fn   Expr
	Args []Expr
}

func (e *CallExpr) String() string { return e.Fn.String() + "(" + joinExprs(e.Args) + ")" }

// UnaryExpr is `!x` or `-x`.
type UnaryExpr struct {
	nodeBase
	Op string
	X  Expr
}

func (e *UnaryExpr) String() string { return e.Op + e.X.String() }

// BinaryExpr covers arithmetic, comparison and logical operators.
type BinaryExpr struct {
	nodeBase
	Op   string
	L, R Expr
}

func (e *BinaryExpr) String() string { return e.L.String() + " " + e.Op + " " + e.R.String() }

// DefaultExpr is `x!default` (Default is nil for a bare `x!`).
type DefaultExpr struct {
	nodeBase
	X       Expr
	Default Expr
}

func (e *DefaultExpr) String() string {
	if e.Default == nil {
		return e.X.String() + "!"
	}
	return e.X.String() + "!" + e.Default.String()
}

// ExistsExpr is `x??`.
type ExistsExpr struct {
	nodeBase
	X Expr
}

func (e *ExistsExpr) String() string { return e.X.String() + "??" }

// ParenExpr is `(x)`.
type ParenExpr struct {
	nodeBase
	X Expr
}

func (e *ParenExpr) String() string { return "(" + e.X.String() + ")" }

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
