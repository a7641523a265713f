package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlvars/pkg/extractor"
)

const reportTemplate = `<#import "lib.ftl" as lib><#include "header.ftl">` +
	`<#macro row label value>${label}: ${value}</#macro>` +
	`<#assign shown = 0>` +
	`<#if hasDetails>${inputName}</#if>` +
	`<#list items as item><@row label=item.name value=item.rate/></#list>`

func TestService_Report(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{
		"report.ftl": reportTemplate,
		"header.ftl": "${title}",
	})

	r, err := svc.Report(context.Background(), "report.ftl", DefaultReportOptions())
	require.NoError(t, err)

	assert.True(t, r.Valid)
	assert.Equal(t, fixedNow, r.AnalyzedAt)
	assert.Equal(t, []string{"title", "hasDetails", "inputName", "items", "item"}, r.RequiredExternalVariables)
	assert.Equal(t, []string{"inputName"}, r.FormVariables)
	assert.Equal(t, []string{"shown"}, r.AssignedVariables)
	assert.Equal(t, []extractor.Signature{{Name: "row", Params: []string{"label", "value"}}}, r.Macros)
	assert.Equal(t, []string{"row"}, r.MacroCalls)
	assert.Equal(t, []string{"header.ftl"}, r.IncludedTemplates)

	require.NotNil(t, r.Statistics)
	assert.Equal(t, Statistics{
		TotalReferencedVariables:       len(r.ReferencedVariables),
		RequiredExternalVariablesCount: 5,
		FormVariablesCount:             1,
		AssignedVariablesCount:         1,
		GlobalVariablesCount:           1,
		LoopVariablesCount:             1,
		MacrosCount:                    1,
		MacroCallsCount:                1,
		IncludedTemplatesCount:         1,
		ImportedTemplatesCount:         1,
	}, *r.Statistics)

	require.NotNil(t, r.Validation)
	assert.Equal(t, Validation{IsValid: true, Message: "Template is valid"}, *r.Validation)

	require.NotNil(t, r.Variables)
	assert.Contains(t, r.VariablesJSON, `"hasDetails": false`)
	require.NotNil(t, r.VariablesWithDefaults)
	hasDetails, _ := r.VariablesWithDefaults.Lookup("hasDetails")
	assert.Equal(t, true, hasDetails)

	assert.Nil(t, r.Preview)
	assert.Contains(t, r.Summary, "=== Template Analysis: report.ftl ===")

	var found bool
	for _, d := range r.ReferencedVariables {
		if d.Name == "hasDetails" {
			found = true
			assert.True(t, d.Required)
			assert.Equal(t, "Used for: conditional logic", d.Description)
		}
	}
	assert.True(t, found)
}

func TestService_ReportWithPreview(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"t.ftl": "${companyName}"})

	r, err := svc.Report(context.Background(), "t.ftl", ReportOptions{Preview: true})
	require.NoError(t, err)

	assert.Nil(t, r.Statistics)
	assert.Nil(t, r.Validation)
	assert.Nil(t, r.Variables)
	require.NotNil(t, r.Preview)
	assert.True(t, r.Preview.Success)
	assert.Equal(t, "Sample CompanyName", r.Preview.Output)
}

func TestService_ReportInvalidTemplate(t *testing.T) {
	svc, _ := newTestService(t, map[string]string{"bad.ftl": "<#list>"})

	r, err := svc.Report(context.Background(), "bad.ftl", DefaultReportOptions())
	require.NoError(t, err)

	assert.False(t, r.Valid)
	require.NotNil(t, r.Validation)
	assert.Equal(t, "Template has validation errors", r.Validation.Message)
	assert.Equal(t, 1, r.Validation.ErrorCount)
}

func TestService_ReportMissingTemplate(t *testing.T) {
	svc, _ := newTestService(t, nil)

	r, err := svc.Report(context.Background(), "nope.ftl", DefaultReportOptions())
	require.Error(t, err)
	assert.Equal(t, "Analysis failed", r.Summary)
	assert.Equal(t, []string{"Template not found: nope.ftl"}, r.Errors)
}
