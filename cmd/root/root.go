// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/sales-etl/internal/config"
	"fjacquet/sales-etl/internal/container"
	"fjacquet/sales-etl/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// AppContainer is the dependency container built for the running command.
	AppContainer *container.Container

	// ContainerOptions are applied after the command-line logger when the
	// container is built. Tests use it to inject a row source or store.
	ContainerOptions []container.Option

	// Cmd is the root command
	Cmd = NewCmd()
)

// NewCmd builds a root command with the persistent flags and the hooks that
// create and close AppContainer.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales-etl",
		Short: "A CLI tool to aggregate daily sales records into monthly series.",
		Long: `sales-etl pulls daily sales rows from a Supabase (PostgREST) table, replaces
sentinel unit codes with nulls, normalizes category spellings and sums units per
month for every (city, product, channel) series.

Each transformation writes a monthly CSV plus an integrity report comparing the
cleaned input units with the aggregated output units.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  initialize,
		PersistentPostRunE: cleanup,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default searches $HOME/.sales-etl, .sales-etl and the working directory)")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text or json)")
	flags.String("cutoff", "", "Last date kept by the pipeline (YYYY-MM-DD)")
	flags.String("output-dir", "", "Directory for the integrity reports")
	return cmd
}

// Execute runs the root command and releases the container even when the
// command failed.
func Execute() error {
	err := Cmd.Execute()
	if closeErr := Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes AppContainer if one is open.
func Close() error {
	return cleanup(nil, nil)
}

func initialize(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadEnv(); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.InitializeConfig(configFile)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	logger := logging.NewLogrusAdapterWithOutput(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	opts := append([]container.Option{container.WithLogger(logger)}, ContainerOptions...)

	c, err := container.NewContainer(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	AppContainer = c
	return nil
}

func cleanup(_ *cobra.Command, _ []string) error {
	if AppContainer == nil {
		return nil
	}
	err := AppContainer.Close()
	AppContainer = nil
	return err
}

// applyFlagOverrides copies explicitly set persistent flags over the loaded
// configuration and validates the result.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
		{"cutoff", &cfg.Transform.CutoffDate},
		{"output-dir", &cfg.Paths.ReportDir},
	}

	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return err
		}
		*o.target = value
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Container returns AppContainer or an error when the pre-run hook has not
// built it.
func Container() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return AppContainer, nil
}
