package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"ftlvars/pkg/service"
)

// Output formats accepted by --output.
const (
	outputSummary = "summary"
	outputJSON    = "json"
	outputYAML    = "yaml"
	outputTree    = "tree"
	outputText    = "text"
)

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	heading  = color.New(color.Bold).SprintFunc()
)

func checkOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unknown output format: %s (expected one of %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == outputYAML {
		return writeYAML(w, v)
	}
	return writeJSON(w, v)
}

// writeReportSummary prints the human-readable form of a report.
func writeReportSummary(w io.Writer, r *service.Report) {
	status := passMark("✓ valid")
	if !r.Valid {
		status = failMark("✗ invalid")
	}
	fmt.Fprintf(w, "%s %s\n\n", heading(r.TemplateName), status)
	fmt.Fprint(w, r.Summary)
	if !strings.HasSuffix(r.Summary, "\n") {
		fmt.Fprintln(w)
	}

	if len(r.FormVariables) > 0 {
		fmt.Fprintf(w, "\nForm variables: %s\n", strings.Join(r.FormVariables, ", "))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "%s %s\n", failMark("Error:"), e)
	}
	if r.Preview != nil {
		fmt.Fprintf(w, "\n%s\n", heading("Preview"))
		writeRenderResult(w, r.Preview)
	}
}

// writeRenderResult prints rendered output, or the diagnostic of a failed
// render.
func writeRenderResult(w io.Writer, res *service.RenderResult) {
	if !res.Success {
		for _, e := range res.Errors {
			fmt.Fprintf(w, "%s %s\n", failMark("✗"), e)
		}
		if res.Diagnostic != "" {
			fmt.Fprintln(w, warnText(res.Diagnostic))
		}
		return
	}
	fmt.Fprint(w, res.Output)
	if !strings.HasSuffix(res.Output, "\n") {
		fmt.Fprintln(w)
	}
}

func writeDebugInfo(w io.Writer, res *service.RenderResult) {
	if res.DebugInfo == nil {
		return
	}
	d := res.DebugInfo
	fmt.Fprintf(w, "%s variables=%d size=%d render_time=%s\n",
		heading("Debug:"), d.VariableCount, d.TemplateSize, d.RenderTime)
}
