package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/service"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		output  string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <template>",
		Short: "Report the variables a template reads",
		Long: `Analyze a template and report the variables it reads, the variables it
assigns, its macros, functions, includes and imports.

Output formats:
  summary  human-readable report (default)
  json     full report as JSON
  yaml     full report as YAML
  tree     the required-variable tree with placeholder values

Example usage:
  ftlvars analyze invoice.ftl
  ftlvars analyze invoice.ftl --output json --preview`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputSummary, outputJSON, outputYAML, outputTree); err != nil {
				return err
			}

			svc, src, err := a.newService(nil)
			if err != nil {
				return err
			}
			name := templateName(src, args[0])

			opts := service.DefaultReportOptions()
			opts.Preview = preview
			report, err := svc.Report(cmd.Context(), name, opts)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", name, err)
			}

			w := cmd.OutOrStdout()
			switch output {
			case outputJSON, outputYAML:
				return writeStructured(w, output, report)
			case outputTree:
				_, err := fmt.Fprintln(w, extractor.Serialize(report.Variables))
				return err
			default:
				writeReportSummary(w, report)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputSummary, "Output format: summary, json, yaml, tree")
	cmd.Flags().BoolVar(&preview, "preview", false, "Render the template with sample data and include the result")
	return cmd
}
