// Package showconfig implements the config command, which prints the
// effective configuration.
package showconfig

import (
	"fmt"

	"fjacquet/sales-etl/cmd/root"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewCmd builds the config command.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Config prints the configuration after defaults, config file, environment
variables and flags have been merged. The access key is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.Container()
			if err != nil {
				return err
			}
			cfg := c.GetConfig()

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}

			keyState := "not set"
			if cfg.Source.Key != "" {
				keyState = "set"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s# source.key: %s\n", data, keyState)
			return err
		},
	}
}
