package service

import (
	"strings"

	"ftlvars/pkg/extractor"
)

// VariableMap is the variable catalogue of one template.
type VariableMap struct {
	TemplateName string `json:"templateName" yaml:"templateName"`
	Valid        bool   `json:"valid" yaml:"valid"`

	// Required is the hierarchical variable tree.
	Required *extractor.Tree `json:"requiredVariables" yaml:"requiredVariables"`

	// Flattened lifts the children of each top-level mapping one level up
	// as "parent.child" keys.
	Flattened *extractor.Tree `json:"flattenedVariables" yaml:"flattenedVariables"`

	// FormVariables is the subset of Flattened with form-related names.
	FormVariables *extractor.Tree `json:"formVariables" yaml:"formVariables"`

	// Descriptions describes each top-level variable by its usages.
	Descriptions map[string]string `json:"variableDescriptions" yaml:"variableDescriptions"`

	// MissingVariables carries the failure message when analysis failed.
	MissingVariables []string `json:"missingVariables" yaml:"missingVariables"`
}

var formMarkers = []string{
	"form", "field", "input", "value", "data",
	"selected", "checked", "option", "submit", "valid",
}

// IsFormRelated reports whether a variable name looks like form state.
func IsFormRelated(name string) bool {
	n := strings.ToLower(name)
	for _, m := range formMarkers {
		if strings.Contains(n, m) {
			return true
		}
	}
	return false
}

var usageDescriptions = map[extractor.UsageKind]string{
	extractor.UsageOutput:        "output display",
	extractor.UsageAssignment:    "variable assignment",
	extractor.UsageCondition:     "conditional logic",
	extractor.UsageIteration:     "loop iteration",
	extractor.UsageParameter:     "parameter passing",
	extractor.UsageInterpolation: "string interpolation",
}

// DescribeUsages turns observed usage kinds into a short sentence.
func DescribeUsages(usages []extractor.UsageKind) string {
	if len(usages) == 0 {
		return "Variable used in template"
	}
	parts := make([]string, len(usages))
	for i, u := range usages {
		d, ok := usageDescriptions[u]
		if !ok {
			d = "general usage"
		}
		parts[i] = d
	}
	return "Used for: " + strings.Join(parts, ", ")
}

// Flatten lifts the children of each top-level mapping of tree to
// "parent.child" keys. Deeper mappings are kept as values.
func Flatten(tree *extractor.Tree) *extractor.Tree {
	out := extractor.NewTree()
	for _, k := range tree.Names() {
		sub := tree.Subtree(k)
		if sub == nil {
			v, _ := tree.Lookup(k)
			out.Set(k, v)
			continue
		}
		for _, child := range sub.Names() {
			v, _ := sub.Lookup(child)
			out.Set(k+"."+child, v)
		}
	}
	return out
}

func filterTree(tree *extractor.Tree, keep func(string) bool) *extractor.Tree {
	out := extractor.NewTree()
	for _, k := range tree.Names() {
		if keep(k) {
			v, _ := tree.Lookup(k)
			out.Set(k, v)
		}
	}
	return out
}

func filterNames(names []string, keep func(string) bool) []string {
	out := []string{}
	for _, n := range names {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
