// Package transform implements the transform command.
package transform

import (
	"fmt"

	"fjacquet/sales-etl/cmd/common"
	"fjacquet/sales-etl/cmd/root"
	"fjacquet/sales-etl/internal/transformer"

	"github.com/spf13/cobra"
)

// NewCmd builds the transform command.
func NewCmd() *cobra.Command {
	var (
		input    string
		fillGaps bool
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Aggregate a raw snapshot into monthly series",
		Long: `Transform reads a raw snapshot written by fetch, runs the cleaning and monthly
aggregation pipeline and writes the monthly CSV together with the integrity
report. With --fill-gaps every series is extended to a contiguous monthly
sequence ending at the cutoff month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			raw, err := common.LoadRaw(c, input)
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
			_, err = fmt.Fprint(cmd.OutOrStdout(), common.PrintSummary(result))
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Raw snapshot to read (default paths.raw_file)")
	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "Interpolate missing months in every series")
	return cmd
}
