package extractor

import (
	"regexp"
	"strings"
)

// Directives is what Scan finds in a template source.
type Directives struct {
	Macros      []Signature
	Functions   []Signature
	Includes    []string
	Imports     []Import
	Assignments []Assignment
	Loops       []Loop
	MacroCalls  []string
}

// Signature is a macro or function name with its ordered parameter names.
type Signature struct {
	Name   string   `json:"name" yaml:"name"`
	Params []string `json:"params" yaml:"params"`
}

// Import is an `<#import "template" as alias>` directive.
type Import struct {
	Alias    string `json:"alias" yaml:"alias"`
	Template string `json:"template" yaml:"template"`
}

// AssignScope is the directive that bound a variable.
type AssignScope string

const (
	ScopeAssign AssignScope = "assign"
	ScopeGlobal AssignScope = "global"
	ScopeLocal  AssignScope = "local"
)

// Assignment is one name bound by assign, global or local.
type Assignment struct {
	Name  string
	Scope AssignScope
}

// Loop is a `<#list source as var>` directive. Vars holds one name for
// sequences and two (key, value) for hashes.
type Loop struct {
	Source string
	Vars   []string
}

// SourcePath returns the variable path the loop iterates over with
// builtins, defaults and parentheses stripped ("" when the source is not a
// plain path, such as a literal or a range).
func (l Loop) SourcePath() string {
	return leadingPath.FindString(strings.TrimLeft(l.Source, "( "))
}

var (
	commentPattern  = regexp.MustCompile(`(?s)<#--.*?-->`)
	macroPattern    = regexp.MustCompile(`<#macro\s+([A-Za-z_][\w.]*)([^>]*)>`)
	functionPattern = regexp.MustCompile(`<#function\s+([A-Za-z_]\w*)([^>]*)>`)
	includePattern  = regexp.MustCompile(`<#include\s+["']([^"']+)["']`)
	importPattern   = regexp.MustCompile(`<#import\s+["']([^"']+)["']\s+as\s+([A-Za-z_]\w*)`)
	assignPattern   = regexp.MustCompile(`(?s)<#(assign|global|local)\s+(.*?)/?>`)
	listPattern     = regexp.MustCompile(`<#list\s+([^>]+?)\s+as\s+([A-Za-z_]\w*)(?:\s*,\s*([A-Za-z_]\w*))?\s*>`)
	callPattern     = regexp.MustCompile(`<@([A-Za-z_][\w.]*)`)

	stringLiteral  = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	paramPattern   = regexp.MustCompile(`([A-Za-z_]\w*)(?:\.\.\.)?(?:\s*=\s*(?:"[^"]*"|'[^']*'|\[[^\]]*\]|\S+))?`)
	bindPattern    = regexp.MustCompile(`([A-Za-z_]\w*)\s*(?:\+\+|--|[-+*/%]?=)(?:[^=]|$)`)
	capturePattern = regexp.MustCompile(`^\s*([A-Za-z_]\w*)(?:\s+in\s+[A-Za-z_]\w*)?\s*$`)
	leadingPath    = regexp.MustCompile(`^[A-Za-z_][\w]*(?:\.[A-Za-z_]\w*)*`)
)

// Scan recognizes directives one tag at a time. It never fails: malformed
// or unusual markup simply yields fewer results. Comments are ignored.
func Scan(src string) Directives {
	src = commentPattern.ReplaceAllString(src, "")

	var d Directives
	for _, m := range macroPattern.FindAllStringSubmatch(src, -1) {
		d.Macros = appendSignature(d.Macros, Signature{Name: m[1], Params: parseParams(m[2])})
	}
	for _, m := range functionPattern.FindAllStringSubmatch(src, -1) {
		d.Functions = appendSignature(d.Functions, Signature{Name: m[1], Params: parseParams(m[2])})
	}
	for _, m := range includePattern.FindAllStringSubmatch(src, -1) {
		d.Includes = appendUnique(d.Includes, m[1])
	}
	for _, m := range importPattern.FindAllStringSubmatch(src, -1) {
		d.Imports = append(d.Imports, Import{Template: m[1], Alias: m[2]})
	}
	for _, m := range assignPattern.FindAllStringSubmatch(src, -1) {
		scope := AssignScope(m[1])
		for _, name := range boundNames(m[2]) {
			d.Assignments = append(d.Assignments, Assignment{Name: name, Scope: scope})
		}
	}
	for _, m := range listPattern.FindAllStringSubmatch(src, -1) {
		loop := Loop{Source: strings.TrimSpace(m[1]), Vars: []string{m[2]}}
		if m[3] != "" {
			loop.Vars = append(loop.Vars, m[3])
		}
		d.Loops = append(d.Loops, loop)
	}
	for _, m := range callPattern.FindAllStringSubmatch(src, -1) {
		d.MacroCalls = appendUnique(d.MacroCalls, m[1])
	}
	return d
}

// parseParams extracts parameter names from the rest of a macro or function
// tag. Defaults, varargs dots, commas and parentheses are dropped.
func parseParams(s string) []string {
	s = stringLiteral.ReplaceAllString(s, `""`)
	s = strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(s)
	s = strings.TrimSuffix(strings.TrimSpace(s), "/")

	params := []string{}
	for _, m := range paramPattern.FindAllStringSubmatch(s, -1) {
		params = appendUnique(params, m[1])
	}
	return params
}

// boundNames returns the variables set by the body of an assign-like tag:
// either `a = 1 b += 2 c++` or the capture form `<#assign name>`.
func boundNames(body string) []string {
	body = stringLiteral.ReplaceAllString(body, `""`)
	if m := capturePattern.FindStringSubmatch(body); m != nil {
		return []string{m[1]}
	}

	var names []string
	for _, idx := range bindPattern.FindAllStringSubmatchIndex(body, -1) {
		start := idx[2]
		// skip identifiers that are really the tail of a.b or a?b
		if start > 0 && strings.ContainsRune(".?!", rune(body[start-1])) {
			continue
		}
		names = appendUnique(names, body[idx[2]:idx[3]])
	}
	return names
}

func appendSignature(sigs []Signature, sig Signature) []Signature {
	for i, s := range sigs {
		if s.Name == sig.Name {
			sigs[i] = sig
			return sigs
		}
	}
	return append(sigs, sig)
}
