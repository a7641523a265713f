package templating

import (
	"errors"
	"fmt"

	"ftlvars/pkg/ftl"
)

// CompilationError represents a template that could not be parsed.
type CompilationError struct {
	// TemplateName is the name of the template that failed to compile
	TemplateName string

	// TemplateSnippet contains the first 200 characters of the template
	TemplateSnippet string

	// Line and Column locate the syntax error when the parser reported one.
	Line   int
	Column int

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile template '%s': %v", e.TemplateName, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// RenderError represents a failure while executing a compiled template.
type RenderError struct {
	// TemplateName is the name of the template that failed to render
	TemplateName string

	// Cause is the underlying execution error
	Cause error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render template '%s': %v", e.TemplateName, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// TemplateNotFoundError represents a request for a template no loader knows.
type TemplateNotFoundError struct {
	// TemplateName is the name of the requested template
	TemplateName string

	// AvailableTemplates lists the names the loader could enumerate
	AvailableTemplates []string
}

// Error implements the error interface.
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template '%s' not found", e.TemplateName)
}

// Unwrap makes errors.Is(err, ftl.ErrTemplateNotFound) hold.
func (e *TemplateNotFoundError) Unwrap() error {
	return ftl.ErrTemplateNotFound
}

// UnsupportedEngineError represents an unknown engine name in configuration.
type UnsupportedEngineError struct {
	Name string
}

// Error implements the error interface.
func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported template engine type: %s", e.Name)
}

// NewCompilationError creates a CompilationError, copying the location out
// of an ftl.ParseError when there is one.
func NewCompilationError(templateName, templateContent string, cause error) *CompilationError {
	snippet := templateContent
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}

	ce := &CompilationError{
		TemplateName:    templateName,
		TemplateSnippet: snippet,
		Cause:           cause,
	}
	var perr *ftl.ParseError
	if errors.As(cause, &perr) {
		ce.Line = perr.Pos.Line
		ce.Column = perr.Pos.Column
	}
	return ce
}

// NewRenderError creates a RenderError for a template rendering failure.
func NewRenderError(templateName string, cause error) *RenderError {
	return &RenderError{
		TemplateName: templateName,
		Cause:        cause,
	}
}

// NewTemplateNotFoundError creates a TemplateNotFoundError with the list of available templates.
func NewTemplateNotFoundError(templateName string, availableTemplates []string) *TemplateNotFoundError {
	return &TemplateNotFoundError{
		TemplateName:       templateName,
		AvailableTemplates: availableTemplates,
	}
}
