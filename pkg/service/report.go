package service

import (
	"context"
	"time"

	"ftlvars/pkg/extractor"
)

// ReportOptions selects the optional sections of a report.
type ReportOptions struct {
	Hierarchy  bool
	Defaults   bool
	Preview    bool
	Validation bool
	Statistics bool
}

// DefaultReportOptions includes everything except the preview render.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{Hierarchy: true, Defaults: true, Validation: true, Statistics: true}
}

// Report is the full analysis of one template.
type Report struct {
	TemplateName string    `json:"templateName" yaml:"templateName"`
	Valid        bool      `json:"templateValid" yaml:"templateValid"`
	Errors       []string  `json:"errors" yaml:"errors"`
	AnalyzedAt   time.Time `json:"analysisTimestamp" yaml:"analysisTimestamp"`

	RequiredExternalVariables []string `json:"requiredExternalVariables" yaml:"requiredExternalVariables"`
	FormVariables             []string `json:"formVariables" yaml:"formVariables"`
	AssignedVariables         []string `json:"assignedVariables" yaml:"assignedVariables"`
	LocalVariables            []string `json:"localVariables" yaml:"localVariables"`
	GlobalVariables           []string `json:"globalVariables" yaml:"globalVariables"`
	LoopVariables             []string `json:"loopVariables" yaml:"loopVariables"`

	Macros            []extractor.Signature `json:"macros" yaml:"macros"`
	Functions         []extractor.Signature `json:"functions" yaml:"functions"`
	MacroCalls        []string              `json:"macroCalls" yaml:"macroCalls"`
	IncludedTemplates []string              `json:"includedTemplates" yaml:"includedTemplates"`
	ImportedTemplates []extractor.Import    `json:"importedTemplates" yaml:"importedTemplates"`

	ReferencedVariables []VariableDetail `json:"referencedVariables" yaml:"referencedVariables"`

	Variables             *extractor.Tree `json:"hierarchicalVariables,omitempty" yaml:"hierarchicalVariables,omitempty"`
	VariablesJSON         string          `json:"hierarchicalVariablesJson,omitempty" yaml:"hierarchicalVariablesJson,omitempty"`
	VariablesWithDefaults *extractor.Tree `json:"hierarchicalVariablesWithDefaults,omitempty" yaml:"hierarchicalVariablesWithDefaults,omitempty"`

	Validation *Validation   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Statistics *Statistics   `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Preview    *RenderResult `json:"preview,omitempty" yaml:"preview,omitempty"`

	Summary string `json:"summary" yaml:"summary"`
}

// VariableDetail describes one referenced access path.
type VariableDetail struct {
	Name        string                `json:"name" yaml:"name"`
	Usages      []extractor.UsageKind `json:"usageTypes" yaml:"usageTypes"`
	Required    bool                  `json:"isRequired" yaml:"isRequired"`
	FormRelated bool                  `json:"isFormRelated" yaml:"isFormRelated"`
	Description string                `json:"description" yaml:"description"`
}

// Validation summarizes validity.
type Validation struct {
	IsValid    bool   `json:"isValid" yaml:"isValid"`
	HasErrors  bool   `json:"hasErrors" yaml:"hasErrors"`
	ErrorCount int    `json:"errorCount" yaml:"errorCount"`
	Message    string `json:"validationMessage" yaml:"validationMessage"`
}

// Statistics counts what the analysis found.
type Statistics struct {
	TotalReferencedVariables       int `json:"totalReferencedVariables" yaml:"totalReferencedVariables"`
	RequiredExternalVariablesCount int `json:"requiredExternalVariablesCount" yaml:"requiredExternalVariablesCount"`
	FormVariablesCount             int `json:"formVariablesCount" yaml:"formVariablesCount"`
	AssignedVariablesCount         int `json:"assignedVariablesCount" yaml:"assignedVariablesCount"`
	LocalVariablesCount            int `json:"localVariablesCount" yaml:"localVariablesCount"`
	GlobalVariablesCount           int `json:"globalVariablesCount" yaml:"globalVariablesCount"`
	LoopVariablesCount             int `json:"loopVariablesCount" yaml:"loopVariablesCount"`
	MacrosCount                    int `json:"macrosCount" yaml:"macrosCount"`
	FunctionsCount                 int `json:"functionsCount" yaml:"functionsCount"`
	MacroCallsCount                int `json:"macroCallsCount" yaml:"macroCallsCount"`
	IncludedTemplatesCount         int `json:"includedTemplatesCount" yaml:"includedTemplatesCount"`
	ImportedTemplatesCount         int `json:"importedTemplatesCount" yaml:"importedTemplatesCount"`
}

// Report analyzes the template and assembles the sections selected by opts.
// The error is non-nil only when the template could not be loaded; the
// report then carries the failure in Errors.
func (s *Service) Report(ctx context.Context, name string, opts ReportOptions) (*Report, error) {
	a, err := s.Analyze(ctx, name)
	if err != nil {
		return &Report{
			TemplateName:              name,
			Errors:                    a.Errors,
			AnalyzedAt:                s.now(),
			RequiredExternalVariables: []string{},
			FormVariables:             []string{},
			AssignedVariables:         []string{},
			Summary:                   "Analysis failed",
		}, err
	}

	required := a.RequiredExternalVariables()
	form := filterNames(required, IsFormRelated)

	r := &Report{
		TemplateName:              name,
		Valid:                     a.Valid,
		Errors:                    a.Errors,
		AnalyzedAt:                s.now(),
		RequiredExternalVariables: required,
		FormVariables:             form,
		AssignedVariables:         a.AssignedVariables,
		LocalVariables:            a.LocalVariables,
		GlobalVariables:           a.GlobalVariables,
		LoopVariables:             a.LoopVariables,
		Macros:                    a.Macros,
		Functions:                 a.Functions,
		MacroCalls:                a.MacroCalls,
		IncludedTemplates:         a.IncludedTemplates,
		ImportedTemplates:         a.ImportedTemplates,
		ReferencedVariables:       details(a, required),
		Summary:                   a.Summary(),
	}

	if opts.Hierarchy {
		r.Variables = a.Variables
		r.VariablesJSON = extractor.Serialize(a.Variables)
		if opts.Defaults {
			r.VariablesWithDefaults = extractor.SampleTree(a.Variables)
		}
	}
	if opts.Validation {
		msg := "Template is valid"
		if !a.Valid {
			msg = "Template has validation errors"
		}
		r.Validation = &Validation{
			IsValid:    a.Valid,
			HasErrors:  len(a.Errors) > 0,
			ErrorCount: len(a.Errors),
			Message:    msg,
		}
	}
	if opts.Statistics {
		r.Statistics = &Statistics{
			TotalReferencedVariables:       len(a.References),
			RequiredExternalVariablesCount: len(required),
			FormVariablesCount:             len(form),
			AssignedVariablesCount:         len(a.AssignedVariables),
			LocalVariablesCount:            len(a.LocalVariables),
			GlobalVariablesCount:           len(a.GlobalVariables),
			LoopVariablesCount:             len(a.LoopVariables),
			MacrosCount:                    len(a.Macros),
			FunctionsCount:                 len(a.Functions),
			MacroCallsCount:                len(a.MacroCalls),
			IncludedTemplatesCount:         len(a.IncludedTemplates),
			ImportedTemplatesCount:         len(a.ImportedTemplates),
		}
	}
	if opts.Preview {
		data := r.previewData(a)
		r.Preview = s.render(ctx, kindPreview, name, data.Model(), data.Len(), true)
	}
	return r, nil
}

func (r *Report) previewData(a *extractor.Analysis) *extractor.Tree {
	if r.VariablesWithDefaults != nil {
		return r.VariablesWithDefaults
	}
	if !a.Valid {
		return extractor.FallbackSamples()
	}
	return extractor.SampleTree(a.Variables)
}

func details(a *extractor.Analysis, required []string) []VariableDetail {
	top := make(map[string]bool, len(required))
	for _, n := range required {
		top[n] = true
	}
	out := make([]VariableDetail, len(a.References))
	for i, ref := range a.References {
		out[i] = VariableDetail{
			Name:        ref.Path,
			Usages:      ref.Usages,
			Required:    top[ref.Path],
			FormRelated: IsFormRelated(ref.Path),
			Description: DescribeUsages(ref.Usages),
		}
	}
	return out
}
