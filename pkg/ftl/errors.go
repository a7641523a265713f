package ftl

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound is returned (wrapped) by loaders and by Compile when a
	// template name cannot be resolved.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrStepLimit is returned when an execution exceeds Config.MaxSteps.
	ErrStepLimit = errors.New("execution step limit exceeded")

	// ErrCallDepth is returned when macro, function, include or import nesting
	// exceeds Config.MaxCallDepth.
	ErrCallDepth = errors.New("call depth limit exceeded")
)

// Position is a location inside a template source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ParseError describes a syntax error found while compiling a template.
type ParseError struct {
	Template string
	Pos      Position
	Msg      string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error in template %q at %s: %s", e.Template, e.Pos, e.Msg)
}

// EvalError describes a failure while executing a template.
type EvalError struct {
	Template string
	Pos      Position
	Cause    error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%v [in template %q at %s]", e.Cause, e.Template, e.Pos)
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// UndefinedError reports an expression that evaluated to a missing value in
// a place where a value is required.
type UndefinedError struct {
	Expr string
}

// Error implements the error interface.
func (e *UndefinedError) Error() string {
	return fmt.Sprintf("the following has evaluated to null or missing: ==> %s", e.Expr)
}

// IsUndefined reports whether err is (or wraps) an UndefinedError.
func IsUndefined(err error) bool {
	var undefined *UndefinedError
	return errors.As(err, &undefined)
}

// TypeError reports a value that lacks the capability an operation needs.
type TypeError struct {
	Expr     string
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, but %s evaluated to %s", e.Expected, e.Expr, e.Got)
}

// StopError is raised by the #stop directive.
type StopError struct {
	Message string
}

// Error implements the error interface.
func (e *StopError) Error() string {
	if e.Message == "" {
		return "template execution stopped"
	}
	return "template execution stopped: " + e.Message
}

// control-flow signals; they never escape Execute.
type breakSignal struct{}

func (breakSignal) Error() string { return "#break outside of #list or #switch" }

type sepSignal struct{}

func (sepSignal) Error() string { return "#sep outside of #list" }

type returnSignal struct {
	value Model
}

func (returnSignal) Error() string { return "#return outside of #macro or #function" }
