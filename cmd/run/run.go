// Package run implements the run command, which fetches and transforms in
// one step.
package run

import (
	"fmt"

	"fjacquet/sales-etl/cmd/common"
	"fjacquet/sales-etl/cmd/root"
	"fjacquet/sales-etl/internal/transformer"

	"github.com/spf13/cobra"
)

// NewCmd builds the run command.
func NewCmd() *cobra.Command {
	var fillGaps bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the sales table and transform it",
		Long: `Run performs fetch followed by transform. The raw snapshot is still written to
paths.raw_file so the transformation can be repeated offline.`,
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

			opts := transformer.Options{FillGaps: c.GetConfig().Transform.FillGaps}
			if cmd.Flags().Changed("fill-gaps") {
				opts.FillGaps = fillGaps
			}

			result, err := common.Transform(cmd.Context(), c, raw, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "Fetched %d rows\n", raw.Len()); err != nil {
				return err
			}
			_, err = fmt.Fprint(out, common.PrintSummary(result))
			return err
		},
	}

	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "Interpolate missing months in every series")
	return cmd
}
