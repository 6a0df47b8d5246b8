// Package loader pages rows out of the remote sales table and keeps a raw
// CSV snapshot of what it fetched.
package loader

import (
	"context"
	"fmt"

	"fjacquet/sales-etl/internal/config"
	"fjacquet/sales-etl/internal/fileutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/pipelineerror"
	"fjacquet/sales-etl/internal/source"
	"fjacquet/sales-etl/internal/table"
)

const (
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 1000
	// DefaultRowLimit caps how many rows a fetch accumulates.
	DefaultRowLimit = 100000
)

// Loader fetches a remote table page by page.
type Loader struct {
	src       source.RowSource
	pageSize  int
	delimiter rune
	logger    logging.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithDelimiter sets the field delimiter of raw snapshots.
func WithDelimiter(r rune) Option {
	return func(l *Loader) {
		l.delimiter = r
	}
}

// New creates a loader reading from src. It fails with a ConfigError when the
// endpoint URL or the access key is missing from cfg.
func New(cfg config.Source, src source.RowSource, logger logging.Logger, opts ...Option) (*Loader, error) {
	if cfg.URL == "" {
		return nil, &pipelineerror.ConfigError{Field: "source.url", Reason: "SUPABASE_URL is not set"}
	}
	if cfg.Key == "" {
		return nil, &pipelineerror.ConfigError{Field: "source.key", Reason: "SUPABASE_KEY is not set"}
	}
	if src == nil {
		return nil, &pipelineerror.ConfigError{Field: "source", Reason: "no row source"}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	l := &Loader{
		src:       src,
		pageSize:  pageSize,
		delimiter: ',',
		logger:    logger.WithField(logging.FieldComponent, "loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Fetch pages through tableName until a short page arrives or rowLimit rows
// have been accumulated. A rowLimit <= 0 means DefaultRowLimit. The result
// never holds more than rowLimit rows.
func (l *Loader) Fetch(ctx context.Context, tableName string, rowLimit int) (*table.Table, error) {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	log := l.logger.WithField(logging.FieldTable, tableName)
	log.Info("Fetching table", logging.F("row_limit", rowLimit), logging.F("page_size", l.pageSize))

	var records []table.Record
	for offset := 0; ; offset += l.pageSize {
		page, err := l.src.FetchRange(ctx, tableName, offset, offset+l.pageSize-1)
		if err != nil {
			log.WithError(err).Error("Page request failed", logging.F(logging.FieldOffset, offset))
			return nil, &pipelineerror.TransportError{Table: tableName, Offset: offset, Err: err}
		}
		if len(page) == 0 {
			break
		}

		records = append(records, page...)
		log.Debug("Fetched page",
			logging.F(logging.FieldOffset, offset),
			logging.F(logging.FieldCount, len(records)))

		if len(page) < l.pageSize || len(records) >= rowLimit {
			break
		}
	}

	if len(records) > rowLimit {
		records = records[:rowLimit]
	}

	t, err := table.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("building table from %s: %w", tableName, err)
	}

	log.Info("Fetch completed", logging.F(logging.FieldCount, t.Len()))
	return t, nil
}

// SaveRaw writes t to path as CSV with a header row, replacing any existing
// file.
func (l *Loader) SaveRaw(t *table.Table, path string) error {
	return SaveRaw(t, path, l.delimiter, l.logger)
}

// SaveRaw writes t to path as CSV, creating parent directories as needed.
func SaveRaw(t *table.Table, path string, delimiter rune, logger logging.Logger) error {
	file, err := fileutils.CreateFile(path)
	if err != nil {
		return fmt.Errorf("saving raw snapshot: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close file", logging.F(logging.FieldFile, path))
		}
	}()

	if err := table.WriteCSV(file, t, delimiter); err != nil {
		return fmt.Errorf("saving raw snapshot: %w", err)
	}

	logger.Info("Raw snapshot saved",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, t.Len()))
	return nil
}

// LoadRaw reads a snapshot written by SaveRaw. Cells come back as strings or
// nulls; the transformer coerces the columns it uses.
func LoadRaw(path string, delimiter rune, logger logging.Logger) (*table.Table, error) {
	file, err := fileutils.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading raw snapshot: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close file", logging.F(logging.FieldFile, path))
		}
	}()

	t, err := table.ReadCSV(file, delimiter)
	if err != nil {
		return nil, fmt.Errorf("loading raw snapshot %s: %w", path, err)
	}

	logger.Info("Raw snapshot loaded",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldCount, t.Len()))
	return t, nil
}
