// Package transformer turns raw daily sales rows into monthly aggregates per
// (city, product, channel) series.
//
// Every stage is a function from table to table. Stages never modify their
// input, so RunPipeline can hand the raw table to the integrity report after
// the run.
package transformer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fjacquet/sales-etl/internal/dateutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/pipelineerror"
	"fjacquet/sales-etl/internal/table"
)

// Column names not covered by the monthly model.
const (
	ColumnDate    = "fecha"
	ColumnPayment = "metodo_pago"
)

// OtherLabel replaces null and placeholder categories.
const OtherLabel = "OTROS"

// Stage names used in logs and data-shape errors.
const (
	StageRename     = "rename_columns"
	StageCutoff     = "filter_by_cutoff"
	StageSentinels  = "clean_sentinels"
	StageCategories = "normalize_categories"
	StageAggregate  = "aggregate_monthly"
	StageFillGaps   = "fill_gaps"
)

// DefaultColumnMap maps source column names to the canonical ones.
var DefaultColumnMap = map[string]string{
	"region":            models.ColumnCity,
	"tipo":              models.ColumnProduct,
	"punto_venta":       models.ColumnChannel,
	"unidades_vendidas": models.ColumnUnits,
}

// DefaultSentinels are the unit values that encode "missing".
var DefaultSentinels = []float64{-1, 999, 9999}

// placeholders are compared after upper-casing and trimming.
var placeholders = map[string]struct{}{
	"NULL": {}, "N/A": {}, "UNDEFINED": {}, "NAN": {}, "NONE": {}, "": {},
}

// Dimensions are the series key columns, in output order.
var Dimensions = []string{models.ColumnCity, models.ColumnProduct, models.ColumnChannel}

// Options selects the optional stages of RunPipeline.
type Options struct {
	FillGaps bool
}

// Transformer holds the fixed parameters of the pipeline.
type Transformer struct {
	cutoff      time.Time
	columnMap   map[string]string
	sentinels   []float64
	categorical []string
	logger      logging.Logger
}

// New creates a transformer that keeps rows dated on or before cutoff.
func New(cutoff time.Time, logger logging.Logger) *Transformer {
	return &Transformer{
		cutoff:      dateutils.StartOfDay(cutoff),
		columnMap:   DefaultColumnMap,
		sentinels:   DefaultSentinels,
		categorical: []string{models.ColumnCity, models.ColumnProduct, models.ColumnChannel, ColumnPayment},
		logger:      logger.WithField(logging.FieldComponent, "transformer"),
	}
}

// Cutoff returns the last date the pipeline keeps.
func (tr *Transformer) Cutoff() time.Time {
	return tr.cutoff
}

// RunPipeline applies rename, cutoff filter, sentinel cleaning, category
// normalization and monthly aggregation, followed by gap filling when
// opts.FillGaps is set. The first failing stage aborts the run.
func (tr *Transformer) RunPipeline(raw *table.Table, opts Options) (*table.Table, error) {
	started := time.Now()
	tr.logger.Info("Starting transformation pipeline",
		logging.F(logging.FieldRowsBefore, raw.Len()),
		logging.F("fill_gaps", opts.FillGaps))

	stages := []struct {
		name string
		run  func(*table.Table) (*table.Table, error)
	}{
		{StageRename, tr.RenameColumns},
		{StageCutoff, tr.FilterByCutoff},
		{StageSentinels, tr.CleanSentinels},
		{StageCategories, tr.NormalizeCategories},
		{StageAggregate, tr.AggregateMonthly},
	}
	if opts.FillGaps {
		stages = append(stages, struct {
			name string
			run  func(*table.Table) (*table.Table, error)
		}{StageFillGaps, tr.FillGaps})
	}

	current := raw
	for _, stage := range stages {
		next, err := stage.run(current)
		if err != nil {
			tr.logger.WithError(err).Error("Pipeline stage failed", logging.F(logging.FieldStage, stage.name))
			return nil, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		current = next
	}

	tr.logger.Info("Transformation pipeline finished",
		logging.F(logging.FieldRowsAfter, current.Len()),
		logging.F(logging.FieldDuration, time.Since(started).Milliseconds()))
	return current, nil
}

// CleanInput applies the stages that precede normalization: rename, cutoff
// filter and sentinel cleaning. Its units total is the integrity baseline.
func (tr *Transformer) CleanInput(raw *table.Table) (*table.Table, error) {
	renamed, err := tr.RenameColumns(raw)
	if err != nil {
		return nil, err
	}
	filtered, err := tr.FilterByCutoff(renamed)
	if err != nil {
		return nil, err
	}
	return tr.CleanSentinels(filtered)
}

// RenameColumns maps the source column names to city, product, channel and
// units. Unmapped columns pass through.
func (tr *Transformer) RenameColumns(t *table.Table) (*table.Table, error) {
	out, err := t.Rename(tr.columnMap)
	if err != nil {
		return nil, &pipelineerror.DataShapeError{Stage: StageRename, Reason: err.Error()}
	}
	return out, nil
}

// FilterByCutoff parses the date column and drops rows dated after the
// cutoff. Rows without a date are dropped too.
func (tr *Transformer) FilterByCutoff(t *table.Table) (*table.Table, error) {
	if !t.Has(ColumnDate) {
		return nil, pipelineerror.MissingColumn(StageCutoff, ColumnDate)
	}

	parsed, err := t.MapColumn(ColumnDate, func(v any) (any, error) {
		d, ok, err := dateCell(StageCutoff, v)
		if err != nil || !ok {
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	kept := parsed.Filter(func(r table.RowView) bool {
		d, ok := r.Get(ColumnDate).(time.Time)
		return ok && !dateutils.StartOfDay(d).After(tr.cutoff)
	})

	tr.logger.Info("Filtered rows by cutoff",
		logging.F(logging.FieldCutoff, dateutils.ToISODate(tr.cutoff)),
		logging.F(logging.FieldRowsBefore, t.Len()),
		logging.F(logging.FieldRowsAfter, kept.Len()),
		logging.F("removed", t.Len()-kept.Len()))
	return kept, nil
}

// CleanSentinels coerces units to numbers and replaces sentinel codes with
// null.
func (tr *Transformer) CleanSentinels(t *table.Table) (*table.Table, error) {
	if !t.Has(models.ColumnUnits) {
		return nil, pipelineerror.MissingColumn(StageSentinels, models.ColumnUnits)
	}

	replaced := 0
	out, err := t.MapColumn(models.ColumnUnits, func(v any) (any, error) {
		f, ok, err := numberCell(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if tr.isSentinel(f) {
			replaced++
			return nil, nil
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}

	tr.logger.Info("Replaced sentinel values", logging.F(logging.FieldCount, replaced))
	return out, nil
}

// NormalizeCategories upper-cases and trims every categorical column that is
// present, mapping nulls and placeholders to OTROS.
func (tr *Transformer) NormalizeCategories(t *table.Table) (*table.Table, error) {
	out := t
	for _, col := range tr.categorical {
		if !out.Has(col) {
			continue
		}
		mapped := 0
		next, err := out.MapColumn(col, func(v any) (any, error) {
			s := NormalizeCategory(v)
			if s == OtherLabel {
				mapped++
			}
			return s, nil
		})
		if err != nil {
			return nil, err
		}
		tr.logger.Debug("Normalized category column",
			logging.F("column", col),
			logging.F("otros", mapped))
		out = next
	}
	return out, nil
}

// NormalizeCategory returns the canonical spelling of a category cell.
// Diacritics are kept.
func NormalizeCategory(v any) string {
	if v == nil {
		return OtherLabel
	}
	s := strings.ToUpper(strings.TrimSpace(table.Format(v)))
	if _, ok := placeholders[s]; ok {
		return OtherLabel
	}
	return s
}

// AggregateMonthly sums units per (month, city, product, channel). The
// output has exactly those columns, sorted by key.
func (tr *Transformer) AggregateMonthly(t *table.Table) (*table.Table, error) {
	for _, col := range append([]string{ColumnDate, models.ColumnUnits}, Dimensions...) {
		if !t.Has(col) {
			return nil, pipelineerror.MissingColumn(StageAggregate, col)
		}
	}

	withMonth, err := t.WithColumn(models.ColumnMonth, func(r table.RowView) (any, error) {
		d, ok, err := dateCell(StageAggregate, r.Get(ColumnDate))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &pipelineerror.DataShapeError{Stage: StageAggregate, Column: ColumnDate, Reason: "missing date"}
		}
		return dateutils.StartOfMonth(d), nil
	})
	if err != nil {
		return nil, err
	}

	keys := append([]string{models.ColumnMonth}, Dimensions...)
	out, err := withMonth.GroupBySum(keys, models.ColumnUnits)
	if err != nil {
		return nil, &pipelineerror.DataShapeError{Stage: StageAggregate, Column: models.ColumnUnits, Reason: err.Error()}
	}

	tr.logger.Info("Aggregated monthly series",
		logging.F(logging.FieldRowsBefore, t.Len()),
		logging.F(logging.FieldRowsAfter, out.Len()))
	return out, nil
}

func (tr *Transformer) isSentinel(f float64) bool {
	for _, s := range tr.sentinels {
		if f == s {
			return true
		}
	}
	return false
}

// dateCell reads a date that may still be text. ok is false for nulls.
func dateCell(stage string, v any) (time.Time, bool, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return x, true, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return time.Time{}, false, nil
		}
		d, _, err := dateutils.ParseDate(x)
		if err != nil {
			return time.Time{}, false, &pipelineerror.DataShapeError{Stage: stage, Column: ColumnDate, Value: x, Reason: "unparseable date"}
		}
		return d, true, nil
	default:
		return time.Time{}, false, &pipelineerror.DataShapeError{
			Stage: stage, Column: ColumnDate, Value: table.Format(v), Reason: fmt.Sprintf("unexpected %T", v),
		}
	}
}

// numberCell reads a unit count that may still be text. ok is false for
// nulls and blank strings.
func numberCell(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, &pipelineerror.DataShapeError{Stage: StageSentinels, Column: models.ColumnUnits, Value: x, Reason: "not a number"}
		}
		return f, true, nil
	default:
		return 0, false, &pipelineerror.DataShapeError{
			Stage: StageSentinels, Column: models.ColumnUnits, Value: table.Format(v), Reason: fmt.Sprintf("unexpected %T", v),
		}
	}
}
