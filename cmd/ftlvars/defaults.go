package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ftlvars/pkg/extractor"
)

func newDefaultsCmd(a *app) *cobra.Command {
	var (
		output  string
		samples bool
	)

	cmd := &cobra.Command{
		Use:   "defaults <template>",
		Short: "Print a data model skeleton for a template",
		Long: `Print the variables a template requires as a data model.

By default leaves carry empty placeholders chosen by name ("" for text,
0 for counts and amounts, false for flags, [] for lists). With --samples
leaves carry realistic sample values instead, suitable for previews.

Example usage:
  ftlvars defaults invoice.ftl
  ftlvars defaults invoice.ftl --samples > data.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputJSON, outputYAML); err != nil {
				return err
			}

			svc, src, err := a.newService(nil)
			if err != nil {
				return err
			}
			name := templateName(src, args[0])

			var tree *extractor.Tree
			if samples {
				tree = svc.PreviewData(cmd.Context(), name)
			} else {
				tree, err = svc.RequiredVariablesWithDefaults(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("failed to analyze %s: %w", name, err)
				}
			}

			w := cmd.OutOrStdout()
			if output == outputYAML {
				return writeYAML(w, tree)
			}
			_, err = fmt.Fprintln(w, extractor.Serialize(tree))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json, yaml")
	cmd.Flags().BoolVar(&samples, "samples", false, "Use realistic sample values instead of empty placeholders")
	return cmd
}
