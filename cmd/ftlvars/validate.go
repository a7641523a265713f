package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ftlvars/pkg/templating"
)

var errInvalidTemplates = errors.New("invalid templates")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [template...]",
		Short: "Check that templates compile",
		Long: `Compile the named templates, or every template in the template
directory when none are named. Exits non-zero when any template fails.

Example usage:
  ftlvars validate
  ftlvars validate invoice.ftl receipt.ftl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, src, err := a.newService(nil)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(args))
			for _, arg := range args {
				names = append(names, templateName(src, arg))
			}
			if len(names) == 0 {
				names = svc.Engine().TemplateNames()
			}
			if len(names) == 0 {
				return errors.New("no templates found")
			}

			w := cmd.OutOrStdout()
			failed := 0
			for _, name := range names {
				err := svc.ValidateError(cmd.Context(), name)
				if err == nil {
					fmt.Fprintf(w, "%s %s\n", passMark("✓"), name)
					continue
				}
				failed++
				fmt.Fprintf(w, "%s %s\n", failMark("✗"), name)
				fmt.Fprintf(w, "    %s\n", templating.FormatRenderErrorShort(err, name))
			}

			fmt.Fprintf(w, "\nTemplates: %d valid, %d invalid, %d total\n", len(names)-failed, failed, len(names))
			if failed > 0 {
				return fmt.Errorf("%w: %d/%d templates failed to compile", errInvalidTemplates, failed, len(names))
			}
			return nil
		},
	}
}
