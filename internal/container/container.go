// Package container provides dependency injection for the sales-etl
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/sales-etl/internal/config"
	"fjacquet/sales-etl/internal/loader"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/report"
	"fjacquet/sales-etl/internal/source"
	"fjacquet/sales-etl/internal/store"
	"fjacquet/sales-etl/internal/transformer"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	transformer *transformer.Transformer
	reports     *report.ReportGenerator
	store       store.RunStore
	rowSource   source.RowSource
}

// Option customizes a Container at creation time.
type Option func(*Container)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithRowSource replaces the PostgREST client the loader would use.
func WithRowSource(src source.RowSource) Option {
	return func(c *Container) {
		c.rowSource = src
	}
}

// WithStore replaces the SQLite run store.
func WithStore(s store.RunStore) Option {
	return func(c *Container) {
		c.store = s
	}
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
//
// The run store is opened only when cfg.Store.Path is set. The loader is not
// built here, so commands that never fetch run without source credentials.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	// Create logger first as it's needed by other components
	if c.logger == nil {
		c.logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	cutoff, err := cfg.Transform.Cutoff()
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff date %q: %w", cfg.Transform.CutoffDate, err)
	}
	c.transformer = transformer.New(cutoff, c.logger)
	c.reports = report.NewReportGenerator(c.logger)

	if c.store == nil && cfg.Store.Path != "" {
		runStore, err := store.Open(cfg.Store.Path, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		c.store = runStore
	}

	c.logger.Info("Container initialized successfully",
		logging.F(logging.FieldCutoff, cfg.Transform.CutoffDate),
		logging.F("fill_gaps", cfg.Transform.FillGaps),
		logging.F("store_enabled", c.store != nil))

	return c, nil
}

// GetLoader builds a loader for the configured source. It fails with a
// ConfigError when the source URL or key is missing.
func (c *Container) GetLoader() (*loader.Loader, error) {
	src := c.rowSource
	if src == nil {
		src = source.NewPostgRESTClient(c.config.Source.URL, c.config.Source.Key, c.config.Source.Timeout())
	}
	return loader.New(c.config.Source, src, c.logger, loader.WithDelimiter(c.config.CSV.Rune()))
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetTransformer returns the pipeline transformer.
func (c *Container) GetTransformer() *transformer.Transformer {
	return c.transformer
}

// GetReportGenerator returns the integrity report generator.
func (c *Container) GetReportGenerator() *report.ReportGenerator {
	return c.reports
}

// GetStore returns the run store, or nil when storage is disabled.
func (c *Container) GetStore() store.RunStore {
	return c.store
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			return fmt.Errorf("failed to close run store: %w", err)
		}
	}
	c.logger.Debug("Container closed")
	return nil
}
