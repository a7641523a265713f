package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ftlvars/pkg/service"
)

var errRenderFailed = errors.New("render failed")

func newRenderCmd(a *app) *cobra.Command {
	var (
		dataFile string
		output   string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with data from a file",
		Long: `Render a template with variables read from a YAML or JSON file.

On failure the error is explained with the template location and hints,
and the command exits non-zero.

Example usage:
  ftlvars render invoice.ftl --data invoice.yaml
  ftlvars render invoice.ftl --data invoice.json --debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputText, outputJSON, outputYAML); err != nil {
				return err
			}

			vars, err := loadData(dataFile)
			if err != nil {
				return err
			}

			svc, src, err := a.newService(nil)
			if err != nil {
				return err
			}

			res := svc.Render(cmd.Context(), service.RenderRequest{
				TemplateName:     templateName(src, args[0]),
				Variables:        vars,
				IncludeDebugInfo: debug,
			})
			return writeRender(cmd, output, res)
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or JSON file with the template variables")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print render statistics to stderr")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preview <template>",
		Short: "Render a template with generated sample data",
		Long: `Analyze a template, build realistic sample data for the variables it
reads and render it with that data.

Example usage:
  ftlvars preview invoice.ftl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output, outputText, outputJSON, outputYAML); err != nil {
				return err
			}

			svc, src, err := a.newService(nil)
			if err != nil {
				return err
			}
			return writeRender(cmd, output, svc.RenderPreview(cmd.Context(), templateName(src, args[0])))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")
	return cmd
}

func writeRender(cmd *cobra.Command, output string, res *service.RenderResult) error {
	if output != outputText {
		if err := writeStructured(cmd.OutOrStdout(), output, res); err != nil {
			return err
		}
	} else if res.Success {
		writeRenderResult(cmd.OutOrStdout(), res)
		writeDebugInfo(cmd.ErrOrStderr(), res)
	} else {
		writeRenderResult(cmd.ErrOrStderr(), res)
	}

	if !res.Success {
		return fmt.Errorf("%w: %s", errRenderFailed, res.TemplateName)
	}
	return nil
}

// loadData reads template variables from path. JSON is read by the YAML
// decoder. An empty path yields no variables.
func loadData(path string) (map[string]any, error) {
	vars := map[string]any{}
	if path == "" {
		return vars, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return vars, nil
}
