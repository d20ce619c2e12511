package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func newModelsCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Browse project models",
	}
	cmd.AddCommand(newModelsListCmd(s))
	cmd.AddCommand(newModelsDescribeCmd(s))
	return cmd
}

func newModelsListCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}
			models, err := client.Models(cmd.Context())
			if err != nil {
				return err
			}

			if s.output == "json" {
				out := make([]map[string]any, len(models))
				for i, m := range models {
					out[i] = map[string]any{
						"name":        m.Name,
						"label":       m.Label,
						"schema":      m.SchemaName,
						"description": m.Description,
					}
				}
				return PrintJSON(os.Stdout, out)
			}

			rows := make([][]string, len(models))
			for i, m := range models {
				rows[i] = []string{m.Name, m.Label, m.SchemaName}
			}
			PrintTable(os.Stdout, []string{"name", "label", "schema"}, rows)
			return nil
		},
	}
}

func newModelsDescribeCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <model>",
		Short: "List a model's dimensions and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}
			model, err := client.Model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dims, err := model.Dimensions(cmd.Context())
			if err != nil {
				return err
			}
			mets, err := model.Metrics(cmd.Context())
			if err != nil {
				return err
			}

			if s.output == "json" {
				fields := make([]map[string]any, 0, len(dims)+len(mets))
				for _, f := range append(dims, mets...) {
					fields = append(fields, map[string]any{
						"field_id": f.FieldID(),
						"kind":     string(f.Kind),
						"type":     string(f.Type),
						"label":    f.Label,
					})
				}
				return PrintJSON(os.Stdout, map[string]any{
					"name":   model.Name,
					"label":  model.Label,
					"fields": fields,
				})
			}

			rows := make([][]string, 0, len(dims)+len(mets))
			for _, f := range append(dims, mets...) {
				rows = append(rows, []string{f.FieldID(), string(f.Kind), string(f.Type), f.Label})
			}
			PrintTable(os.Stdout, []string{"field", "kind", "type", "label"}, rows)
			return nil
		},
	}
}
