package extractor

import (
	"fmt"
	"strings"
)

// UsageKind classifies how a template used a path.
type UsageKind string

// Only OUTPUT, CONDITION and ITERATION are ever observed by mock passes.
// The others exist so consumers can share one vocabulary.
const (
	UsageOutput        UsageKind = "OUTPUT"
	UsageAssignment    UsageKind = "ASSIGNMENT"
	UsageCondition     UsageKind = "CONDITION"
	UsageIteration     UsageKind = "ITERATION"
	UsageParameter     UsageKind = "PARAMETER"
	UsageInterpolation UsageKind = "INTERPOLATION"
)

// Reference is one discovered access path with the usages observed for it.
type Reference struct {
	Path   string      `json:"path" yaml:"path"`
	Usages []UsageKind `json:"usages,omitempty" yaml:"usages,omitempty"`
}

// Analysis is the result of analyzing one template.
type Analysis struct {
	TemplateName string `json:"templateName" yaml:"templateName"`
	Valid        bool   `json:"valid" yaml:"valid"`

	AssignedVariables []string `json:"assignedVariables" yaml:"assignedVariables"`
	LocalVariables    []string `json:"localVariables" yaml:"localVariables"`
	GlobalVariables   []string `json:"globalVariables" yaml:"globalVariables"`
	LoopVariables     []string `json:"loopVariables" yaml:"loopVariables"`

	References []Reference `json:"references" yaml:"references"`

	Macros            []Signature `json:"macros" yaml:"macros"`
	Functions         []Signature `json:"functions" yaml:"functions"`
	MacroCalls        []string    `json:"macroCalls" yaml:"macroCalls"`
	IncludedTemplates []string    `json:"includedTemplates" yaml:"includedTemplates"`
	ImportedTemplates []Import    `json:"importedTemplates" yaml:"importedTemplates"`

	Errors []string `json:"errors" yaml:"errors"`

	// Passes reports each mock pass; empty when the template never compiled.
	Passes []PassResult `json:"passes,omitempty" yaml:"passes,omitempty"`

	Variables *Tree `json:"variables" yaml:"variables"`
}

func newAnalysis(name string) *Analysis {
	return &Analysis{
		TemplateName:      name,
		Valid:             true,
		AssignedVariables: []string{},
		LocalVariables:    []string{},
		GlobalVariables:   []string{},
		LoopVariables:     []string{},
		References:        []Reference{},
		Macros:            []Signature{},
		Functions:         []Signature{},
		MacroCalls:        []string{},
		IncludedTemplates: []string{},
		ImportedTemplates: []Import{},
		Errors:            []string{},
		Variables:         NewTree(),
	}
}

func (a *Analysis) fail(format string, args ...any) {
	a.Valid = false
	a.Errors = append(a.Errors, fmt.Sprintf(format, args...))
}

// applyDirectives copies scanner metadata into the analysis.
func (a *Analysis) applyDirectives(d Directives) {
	for _, as := range d.Assignments {
		a.AssignedVariables = appendUnique(a.AssignedVariables, as.Name)
		if as.Scope == ScopeLocal {
			a.LocalVariables = appendUnique(a.LocalVariables, as.Name)
		} else {
			a.GlobalVariables = appendUnique(a.GlobalVariables, as.Name)
		}
	}
	for _, l := range d.Loops {
		for _, v := range l.Vars {
			a.LoopVariables = appendUnique(a.LoopVariables, v)
		}
	}
	a.Macros = append(a.Macros, d.Macros...)
	a.Functions = append(a.Functions, d.Functions...)
	a.MacroCalls = append(a.MacroCalls, d.MacroCalls...)
	a.IncludedTemplates = append(a.IncludedTemplates, d.Includes...)
	for _, imp := range d.Imports {
		a.importTemplate(imp)
	}
}

// importTemplate binds an alias to a template. A later import under the
// same alias replaces the earlier one in place.
func (a *Analysis) importTemplate(imp Import) {
	for i, existing := range a.ImportedTemplates {
		if existing.Alias == imp.Alias {
			a.ImportedTemplates[i] = imp
			return
		}
	}
	a.ImportedTemplates = append(a.ImportedTemplates, imp)
}

// Usages returns the usage kinds observed for path.
func (a *Analysis) Usages(path string) []UsageKind {
	for _, r := range a.References {
		if r.Path == path {
			return r.Usages
		}
	}
	return nil
}

// Paths returns every discovered access path in discovery order.
func (a *Analysis) Paths() []string {
	out := make([]string, len(a.References))
	for i, r := range a.References {
		out[i] = r.Path
	}
	return out
}

// Macro returns the macro signature named name.
func (a *Analysis) Macro(name string) (Signature, bool) {
	return findSignature(a.Macros, name)
}

// Function returns the function signature named name.
func (a *Analysis) Function(name string) (Signature, bool) {
	return findSignature(a.Functions, name)
}

// RequiredExternalVariables returns the top-level names of the variable tree.
func (a *Analysis) RequiredExternalVariables() []string {
	if a.Variables == nil {
		return []string{}
	}
	return a.Variables.Names()
}

// Summary renders a human-readable report of the analysis.
func (a *Analysis) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Template Analysis: %s ===\n", a.TemplateName)
	fmt.Fprintf(&b, "Template Valid: %t\n", a.Valid)
	fmt.Fprintf(&b, "Hierarchical Variables:\n%s\n", Serialize(a.Variables))
	fmt.Fprintf(&b, "Assigned Variables: %s\n", bracketList(a.AssignedVariables))
	fmt.Fprintf(&b, "Loop Variables: %s\n", bracketList(a.LoopVariables))
	fmt.Fprintf(&b, "Macros: %s\n", bracketList(signatureNames(a.Macros)))
	fmt.Fprintf(&b, "Functions: %s\n", bracketList(signatureNames(a.Functions)))
	if len(a.Errors) > 0 {
		fmt.Fprintf(&b, "Errors: %s\n", bracketList(a.Errors))
	}
	return b.String()
}

func bracketList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func signatureNames(sigs []Signature) []string {
	names := make([]string, len(sigs))
	for i, s := range sigs {
		names[i] = s.Name
	}
	return names
}

func findSignature(sigs []Signature, name string) (Signature, bool) {
	for _, s := range sigs {
		if s.Name == name {
			return s, true
		}
	}
	return Signature{}, false
}

func appendUnique[T comparable](list []T, v T) []T {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
