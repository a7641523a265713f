package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysis_Summary(t *testing.T) {
	a := analyze(t, `<#macro row label></#macro><#assign x = 1><#list items as item>${item.name}</#list>`)

	want := `=== Template Analysis: test.ftl ===
Template Valid: true
Hierarchical Variables:
{
  "items": [],
  "item": {
    "name": ""
  }
}
Assigned Variables: [x]
Loop Variables: [item]
Macros: [row]
Functions: []
`
	assert.Equal(t, want, a.Summary())
}

func TestAnalysis_SummaryWithErrors(t *testing.T) {
	a := newAnalysis("broken.ftl")
	a.fail("Template parsing failed: %s", "boom")

	assert.Contains(t, a.Summary(), "Template Valid: false\n")
	assert.Contains(t, a.Summary(), "Errors: [Template parsing failed: boom]\n")
}

func TestAnalysis_RequiredExternalVariables(t *testing.T) {
	a := analyze(t, `${company.name}${total}<#list items as item>${item.rate}</#list>`)

	assert.Equal(t, []string{"company", "total", "items", "item"}, a.RequiredExternalVariables())
	assert.Empty(t, (&Analysis{}).RequiredExternalVariables())
}

func TestAnalysis_JSON(t *testing.T) {
	a := analyze(t, `${company.name}`)

	out, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "test.ftl", decoded["templateName"])
	assert.Equal(t, map[string]any{"company": map[string]any{"name": ""}}, decoded["variables"])
	assert.Len(t, decoded["passes"], 3)
}

func TestAnalysis_ImportedTemplatesByAlias(t *testing.T) {
	a := analyze(t, `<#import "old.ftl" as lib><#import "forms.ftl" as f><#import "new.ftl" as lib>${title}`)

	assert.Equal(t, []Import{
		{Alias: "lib", Template: "new.ftl"},
		{Alias: "f", Template: "forms.ftl"},
	}, a.ImportedTemplates)
}
