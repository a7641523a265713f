package templating

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ftlvars/pkg/ftl"
)

// errorLocation represents the location of an error in a template.
type errorLocation struct {
	Line   int
	Column int
}

// parsedError represents a parsed template rendering error with structured information.
type parsedError struct {
	Location *errorLocation
	Problem  string
	Context  string
	Hints    []string
}

// Error patterns produced by the ftl engine.
var (
	// Pattern: "at line X, column Y".
	lineColPattern = regexp.MustCompile(`line (\d+), column (\d+)`)

	// Pattern: "syntax error in template "x" at line X, column Y: message".
	syntaxPattern = regexp.MustCompile(`syntax error in template "[^"]*" at line \d+, column \d+: (.+)`)

	// Pattern: "evaluated to null or missing: ==> expr [in template ...]".
	undefinedPattern = regexp.MustCompile(`evaluated to null or missing: ==> (.+?)(?: \[in template|$)`)

	// Pattern: "expected X, but expr evaluated to Y".
	typeMismatchPattern = regexp.MustCompile(`expected (.+?), but (.+?) evaluated to ([\w+]+)`)

	// Pattern: "unknown built-in ?name".
	unknownBuiltinPattern = regexp.MustCompile(`unknown built-in \?(\w+)`)

	// Pattern: "macro: required parameter "x" is missing".
	missingParamPattern = regexp.MustCompile(`(\S+): required parameter "([^"]+)" is missing`)
)

// FormatRenderError formats a template rendering error into a human-readable multi-line string.
//
// The output has a location line, a one-line problem description, the
// offending template line with a caret, and hints. err is typically a
// *RenderError or *CompilationError; templateContent may be empty.
func FormatRenderError(err error, templateName, templateContent string) string {
	if err == nil {
		return ""
	}

	parsed := parseTemplateError(err.Error())

	var b strings.Builder
	fmt.Fprintf(&b, "Template Error: %s\n", templateName)
	b.WriteString(strings.Repeat("-", 60))
	b.WriteString("\n")

	if parsed.Location != nil {
		fmt.Fprintf(&b, "Location: Line %d, Column %d\n", parsed.Location.Line, parsed.Location.Column)
	}

	problem := parsed.Problem
	if problem == "" {
		problem = truncate(err.Error(), 100)
	}
	fmt.Fprintf(&b, "Problem:  %s\n", problem)

	if parsed.Location != nil && templateContent != "" {
		if snippet := extractTemplateContext(templateContent, parsed.Location.Line, parsed.Location.Column); snippet != "" {
			b.WriteString("\nTemplate Context:\n")
			b.WriteString(snippet)
		}
	}

	if len(parsed.Hints) > 0 {
		b.WriteString("\nHint: ")
		b.WriteString(strings.Join(parsed.Hints, "\n      "))
		b.WriteString("\n")
	}

	return b.String()
}

// parseTemplateError parses an engine error string into its parts.
func parseTemplateError(errorStr string) parsedError {
	return parsedError{
		Location: extractLocation(errorStr),
		Problem:  extractProblem(errorStr),
		Hints:    generateHints(errorStr),
	}
}

// extractLocation extracts line and column numbers from the error string.
// The last match wins since nested errors report the innermost location last.
func extractLocation(errorStr string) *errorLocation {
	matches := lineColPattern.FindAllStringSubmatch(errorStr, -1)
	if len(matches) == 0 {
		return nil
	}
	m := matches[len(matches)-1]
	line, _ := strconv.Atoi(m[1])
	col, _ := strconv.Atoi(m[2])
	return &errorLocation{Line: line, Column: col}
}

// extractProblem extracts the core problem description from the error.
func extractProblem(errorStr string) string {
	if m := syntaxPattern.FindStringSubmatch(errorStr); m != nil {
		return "Syntax error: " + m[1]
	}
	if m := undefinedPattern.FindStringSubmatch(errorStr); m != nil {
		return fmt.Sprintf("Undefined value '%s'", m[1])
	}
	if m := missingParamPattern.FindStringSubmatch(errorStr); m != nil {
		return fmt.Sprintf("Missing required parameter '%s' of %s", m[2], m[1])
	}
	if m := unknownBuiltinPattern.FindStringSubmatch(errorStr); m != nil {
		return fmt.Sprintf("Unknown built-in '?%s'", m[1])
	}
	if m := typeMismatchPattern.FindStringSubmatch(errorStr); m != nil {
		return fmt.Sprintf("Type mismatch: '%s' is %s, expected %s", m[2], m[3], m[1])
	}
	switch {
	case strings.Contains(errorStr, "division by zero"):
		return "Division by zero"
	case strings.Contains(errorStr, ftl.ErrStepLimit.Error()):
		return "Execution step limit exceeded"
	case strings.Contains(errorStr, ftl.ErrCallDepth.Error()):
		return "Call depth limit exceeded"
	}
	return ""
}

// generateHints generates actionable hints based on common error patterns.
func generateHints(errorStr string) []string {
	var hints []string

	switch {
	case strings.Contains(errorStr, "syntax error"):
		hints = append(hints,
			"Check that every <#if>, <#list>, <#macro> and <#function> has its closing tag.",
			"Interpolations must be closed with '}'.")
	case strings.Contains(errorStr, "evaluated to null or missing"):
		hints = append(hints,
			"Check that the variable exists in the data passed to the template.",
			"Use 'name!\"default\"' for a fallback or 'name??' to test for presence.")
	case strings.Contains(errorStr, "required parameter"):
		hints = append(hints,
			"Pass the parameter in the <@macro .../> call or give it a default in the definition.")
	case strings.Contains(errorStr, "unknown built-in"):
		hints = append(hints,
			"Built-ins are written as 'value?name'. Check the spelling or register a custom filter.")
	case strings.Contains(errorStr, "expected") && strings.Contains(errorStr, "evaluated to"):
		hints = append(hints,
			"The template expects a different data type than what was provided.",
			"Verify the types of variables in your rendering data.")
	case strings.Contains(errorStr, ftl.ErrStepLimit.Error()),
		strings.Contains(errorStr, ftl.ErrCallDepth.Error()):
		hints = append(hints,
			"Look for a macro, function or include that recurses without an exit condition.")
	}

	if len(hints) == 0 {
		hints = append(hints,
			"Check your template syntax and the data passed to the template.")
	}
	return hints
}

// extractTemplateContext renders the line before the error and the error
// line itself, with a caret under the column when it is known.
func extractTemplateContext(templateContent string, line, column int) string {
	lines := strings.Split(templateContent, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}

	width := len(strconv.Itoa(line))
	var b strings.Builder
	if line > 1 {
		fmt.Fprintf(&b, "%*d | %s\n", width, line-1, lines[line-2])
	}
	errorLine := lines[line-1]
	fmt.Fprintf(&b, "%*d | %s\n", width, line, errorLine)

	if column > 0 && column <= len(errorLine)+1 {
		b.WriteString(strings.Repeat(" ", width+3+column-1))
		b.WriteString("^\n")
	}
	return b.String()
}

// FormatRenderErrorShort returns a single-line version of the error for logs.
func FormatRenderErrorShort(err error, templateName string) string {
	if err == nil {
		return ""
	}

	parsed := parseTemplateError(err.Error())

	parts := []string{"Template: " + templateName}
	if parsed.Location != nil {
		parts = append(parts, fmt.Sprintf("Line %d Col %d", parsed.Location.Line, parsed.Location.Column))
	}
	if parsed.Problem != "" {
		parts = append(parts, parsed.Problem)
	} else {
		parts = append(parts, truncate(err.Error(), 60))
	}
	return strings.Join(parts, " | ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
