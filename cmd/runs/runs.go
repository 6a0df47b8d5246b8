// Package runs implements the runs command, which lists stored pipeline runs.
package runs

import (
	"fmt"
	"io"
	"text/tabwriter"

	"fjacquet/sales-etl/cmd/root"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/store"

	"github.com/spf13/cobra"
)

// NewCmd builds the runs command.
func NewCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored pipeline runs",
		Long: `Runs lists the transformations recorded in the SQLite store (store.path),
newest first. With --id it prints the monthly rows stored for that run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			runStore := c.GetStore()
			if runStore == nil {
				return fmt.Errorf("run store disabled: set store.path or SALES_STORE_PATH")
			}

			if runID != "" {
				records, err := runStore.MonthlyForRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return printMonthly(cmd.OutOrStdout(), records)
			}

			summaries, err := runStore.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), summaries)
		},
	}

	cmd.Flags().StringVar(&runID, "id", "", "Show the monthly rows of one run")
	return cmd
}

func printRuns(out io.Writer, summaries []store.RunSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(out, "No runs stored")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tCUTOFF\tFILL GAPS\tROWS\tINPUT\tOUTPUT\tCHECK")
	for _, r := range summaries {
		check := "ok"
		if !r.CheckOK {
			check = "mismatch"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%.2f\t%.2f\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.CutoffDate, r.FillGaps,
			r.RowsTransformed, r.TotalInputClean, r.TotalOutputMonthly, check)
	}
	return w.Flush()
}

func printMonthly(out io.Writer, records []models.MonthlyRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MONTH\tCITY\tPRODUCT\tCHANNEL\tUNITS")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\n", r.Month, r.City, r.Product, r.Channel, r.Units)
	}
	return w.Flush()
}
