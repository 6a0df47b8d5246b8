// Package fetch implements the fetch command.
package fetch

import (
	"fmt"

	"fjacquet/sales-etl/cmd/common"
	"fjacquet/sales-etl/cmd/root"

	"github.com/spf13/cobra"
)

// NewCmd builds the fetch command.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the sales table and save a raw CSV snapshot",
		Long: `Fetch pages through the configured Supabase table 1000 rows at a time until a
short page arrives or source.row_limit rows are collected, then writes them to
paths.raw_file. SUPABASE_URL and SUPABASE_KEY must be set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			raw, err := common.Fetch(cmd.Context(), c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d rows into %s\n", raw.Len(), c.GetConfig().Paths.RawFile)
			return err
		},
	}
}
