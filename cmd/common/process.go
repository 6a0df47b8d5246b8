// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"

	"fjacquet/sales-etl/internal/container"
	"fjacquet/sales-etl/internal/dateutils"
	"fjacquet/sales-etl/internal/loader"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/report"
	"fjacquet/sales-etl/internal/store"
	"fjacquet/sales-etl/internal/table"
	"fjacquet/sales-etl/internal/transformer"
	"fjacquet/sales-etl/internal/validation"
)

// TransformResult describes what a transformation run produced.
type TransformResult struct {
	Monthly        *table.Table
	Report         *report.IntegrityReport
	MonthlyFile    string
	JSONReport     string
	MarkdownReport string
	RunID          string
}

// Fetch pulls the configured table and saves the raw snapshot.
func Fetch(ctx context.Context, c *container.Container) (*table.Table, error) {
	cfg := c.GetConfig()

	l, err := c.GetLoader()
	if err != nil {
		return nil, err
	}
	raw, err := l.Fetch(ctx, cfg.Source.Table, cfg.Source.RowLimit)
	if err != nil {
		return nil, err
	}
	if err := l.SaveRaw(raw, cfg.Paths.RawFile); err != nil {
		return nil, err
	}
	return raw, nil
}

// LoadRaw reads the raw snapshot at path, or at the configured raw file when
// path is empty.
func LoadRaw(c *container.Container, path string) (*table.Table, error) {
	if path == "" {
		path = c.GetConfig().Paths.RawFile
	}
	if err := validation.IsValidInputFile(path); err != nil {
		return nil, err
	}
	return loader.LoadRaw(path, c.GetConfig().CSV.Rune(), c.GetLogger())
}

// Transform runs the pipeline over raw, then writes the monthly CSV and the
// integrity report, and stores the run when a store is configured.
func Transform(ctx context.Context, c *container.Container, raw *table.Table, opts transformer.Options) (*TransformResult, error) {
	cfg := c.GetConfig()
	logger := c.GetLogger()
	tr := c.GetTransformer()

	monthly, err := tr.RunPipeline(raw, opts)
	if err != nil {
		return nil, err
	}

	clean, err := tr.CleanInput(raw)
	if err != nil {
		return nil, err
	}
	inputTotal, err := clean.Sum(models.ColumnUnits)
	if err != nil {
		return nil, err
	}
	outputTotal, err := monthly.Sum(models.ColumnUnits)
	if err != nil {
		return nil, err
	}

	generator := c.GetReportGenerator()
	integrity := generator.Build(report.Input{
		TotalInputClean:    inputTotal,
		TotalOutputMonthly: outputTotal,
		RowsRaw:            raw.Len(),
		RowsTransformed:    monthly.Len(),
		FillGaps:           opts.FillGaps,
	})

	result := &TransformResult{
		Monthly:     monthly,
		Report:      integrity,
		MonthlyFile: cfg.Paths.MonthlyFile,
	}

	if err := transformer.WriteMonthlyCSV(cfg.Paths.MonthlyFile, monthly, cfg.CSV.Rune(), logger); err != nil {
		return nil, err
	}
	result.JSONReport, result.MarkdownReport, err = generator.Write(integrity, cfg.Paths.ReportDir)
	if err != nil {
		return nil, err
	}

	if runStore := c.GetStore(); runStore != nil {
		runID, err := saveRun(ctx, runStore, tr, integrity, monthly)
		if err != nil {
			return nil, err
		}
		result.RunID = runID
	}

	logger.Info("Transformation completed",
		logging.F(logging.FieldRowsAfter, monthly.Len()),
		logging.F("check_ok", integrity.Integrity.CheckOK),
		logging.F(logging.FieldRunID, result.RunID))
	return result, nil
}

func saveRun(ctx context.Context, runStore store.RunStore, tr *transformer.Transformer, r *report.IntegrityReport, monthly *table.Table) (string, error) {
	records, err := transformer.ToRecords(monthly)
	if err != nil {
		return "", err
	}
	runID, err := runStore.SaveRun(ctx, store.RunSummary{
		CutoffDate:         dateutils.ToISODate(tr.Cutoff()),
		FillGaps:           r.FillGaps,
		TotalInputClean:    r.Integrity.TotalInputClean,
		TotalOutputMonthly: r.Integrity.TotalOutputMonthly,
		Diff:               r.Integrity.Diff,
		CheckOK:            r.Integrity.CheckOK,
		RowsRaw:            r.Dimensions.RowsRaw,
		RowsTransformed:    r.Dimensions.RowsTransformed,
	}, records)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	return runID, nil
}

// PrintSummary is the human-readable outcome of a transformation.
func PrintSummary(result *TransformResult) string {
	status := "MATCH"
	if !result.Report.Integrity.CheckOK {
		status = "MISMATCH"
	}
	s := fmt.Sprintf("Monthly rows: %d\nIntegrity: %s (input %.2f, output %.2f, diff %.2f)\nMonthly CSV: %s\nReports: %s, %s\n",
		result.Monthly.Len(),
		status,
		result.Report.Integrity.TotalInputClean,
		result.Report.Integrity.TotalOutputMonthly,
		result.Report.Integrity.Diff,
		result.MonthlyFile,
		result.JSONReport,
		result.MarkdownReport)
	if result.RunID != "" {
		s += fmt.Sprintf("Run ID: %s\n", result.RunID)
	}
	return s
}
