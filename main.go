package main

import (
	"fmt"
	"os"

	"fjacquet/sales-etl/cmd/fetch"
	"fjacquet/sales-etl/cmd/root"
	"fjacquet/sales-etl/cmd/run"
	"fjacquet/sales-etl/cmd/runs"
	"fjacquet/sales-etl/cmd/showconfig"
	"fjacquet/sales-etl/cmd/transform"
)

func init() {
	root.Cmd.AddCommand(fetch.NewCmd())
	root.Cmd.AddCommand(transform.NewCmd())
	root.Cmd.AddCommand(run.NewCmd())
	root.Cmd.AddCommand(runs.NewCmd())
	root.Cmd.AddCommand(showconfig.NewCmd())
}

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
