package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSQLCmd(s *settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sql <statement>",
		Short: "Execute raw SQL against the project warehouse",
		Example: `  lightdash sql "SELECT country, count(*) FROM orders GROUP BY 1" --limit 100`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}
			result, err := client.SQL(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if s.output == "json" {
				raw, err := result.JSONString()
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, raw)
				return nil
			}

			columns := result.Columns()
			PrintTable(os.Stdout, columns, rowCells(columns, result.Records()))
			fmt.Fprintf(os.Stdout, "(%d rows)\n", result.Len())
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Row limit (default 500)")
	return cmd
}
