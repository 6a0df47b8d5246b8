// Package store keeps a history of pipeline runs and their monthly
// aggregates in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fjacquet/sales-etl/internal/fileutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// createdAtLayout has fixed width so stored timestamps sort as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run ID has no stored run.
var ErrRunNotFound = errors.New("run not found")

// RunSummary describes one stored pipeline run.
type RunSummary struct {
	ID                 string
	CreatedAt          time.Time
	CutoffDate         string
	FillGaps           bool
	TotalInputClean    float64
	TotalOutputMonthly float64
	Diff               float64
	CheckOK            bool
	RowsRaw            int
	RowsTransformed    int
}

// RunStore is the persistence the CLI needs for run history.
type RunStore interface {
	SaveRun(ctx context.Context, summary RunSummary, records []models.MonthlyRecord) (string, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	MonthlyForRun(ctx context.Context, runID string) ([]models.MonthlyRecord, error)
	Close() error
}

// SQLiteStore implements RunStore on a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at dbPath and applies
// pending migrations.
func Open(dbPath string, logger logging.Logger) (*SQLiteStore, error) {
	if err := fileutils.EnsureDirectoryExists(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Debug("Run store opened", logging.F(logging.FieldFile, dbPath))
	return &SQLiteStore{
		db:     db,
		logger: logger.WithField(logging.FieldComponent, "store"),
		now:    time.Now,
	}, nil
}

// WithClock replaces the clock used for created_at.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores summary and its monthly records in one transaction. A new
// run ID is generated when summary.ID is empty; the stored ID is returned.
func (s *SQLiteStore) SaveRun(ctx context.Context, summary RunSummary, records []models.MonthlyRecord) (string, error) {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, cutoff_date, fill_gaps, total_input_clean,
			total_output_monthly, diff, check_ok, rows_raw, rows_transformed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID,
		summary.CreatedAt.UTC().Format(createdAtLayout),
		summary.CutoffDate,
		summary.FillGaps,
		summary.TotalInputClean,
		summary.TotalOutputMonthly,
		summary.Diff,
		summary.CheckOK,
		summary.RowsRaw,
		summary.RowsTransformed,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO monthly_units (run_id, month, city, product, channel, units)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare monthly insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, summary.ID, r.Month.String(), r.City, r.Product, r.Channel, r.Units); err != nil {
			return "", fmt.Errorf("insert monthly row %s %s: %w", r.Month, r.SeriesKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}

	s.logger.Info("Run stored",
		logging.F(logging.FieldRunID, summary.ID),
		logging.F(logging.FieldCount, len(records)))
	return summary.ID, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, cutoff_date, fill_gaps, total_input_clean,
			total_output_monthly, diff, check_ok, rows_raw, rows_transformed
		FROM runs
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			createdAt string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.CutoffDate, &r.FillGaps, &r.TotalInputClean,
			&r.TotalOutputMonthly, &r.Diff, &r.CheckOK, &r.RowsRaw, &r.RowsTransformed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: invalid created_at %q: %w", r.ID, createdAt, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// MonthlyForRun returns the monthly records of runID ordered by key.
func (s *SQLiteStore) MonthlyForRun(ctx context.Context, runID string) ([]models.MonthlyRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, city, product, channel, units
		FROM monthly_units
		WHERE run_id = ?
		ORDER BY month, city, product, channel`, runID)
	if err != nil {
		return nil, fmt.Errorf("query monthly rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []models.MonthlyRecord{}
	for rows.Next() {
		var (
			r     models.MonthlyRecord
			month string
		)
		if err := rows.Scan(&month, &r.City, &r.Product, &r.Channel, &r.Units); err != nil {
			return nil, fmt.Errorf("scan monthly row: %w", err)
		}
		if err := r.Month.UnmarshalCSV(month); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query monthly rows: %w", err)
	}
	return records, nil
}
