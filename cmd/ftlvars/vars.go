package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVarsCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "vars <template>",
		Short: "Print the variable map of a template for form builders",
		Long: `Print the variables of a template as a hierarchy, flattened one level
deep, and filtered to form-related names, with a usage description for
each top-level variable.

Example usage:
  ftlvars vars signup.ftl --output yaml`,
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

			vm, err := svc.VariableMap(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to analyze %s: %w", name, err)
			}
			return writeStructured(cmd.OutOrStdout(), output, vm)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json, yaml")
	return cmd
}
