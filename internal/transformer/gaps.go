package transformer

import (
	"time"

	"fjacquet/sales-etl/internal/dateutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/pipelineerror"
	"fjacquet/sales-etl/internal/table"
)

// FillGaps gives every observed series a row for each month from the first
// observed month through the cutoff month. Missing units are interpolated
// linearly between known months, then carried forward and backward to the
// series edges.
//
// Only series present in agg are extended; no new (city, product, channel)
// combinations are created.
func (tr *Transformer) FillGaps(agg *table.Table) (*table.Table, error) {
	keys := monthlyKeys()
	columns := append(monthlyKeys(), models.ColumnUnits)
	for _, col := range columns {
		if !agg.Has(col) {
			return nil, pipelineerror.MissingColumn(StageFillGaps, col)
		}
	}
	if agg.Len() == 0 {
		return agg, nil
	}

	first, last, err := monthBounds(agg)
	if err != nil {
		return nil, err
	}
	end := dateutils.StartOfMonth(tr.cutoff)
	if last.After(end) {
		end = last
	}

	months := dateutils.MonthRange(first, end)
	calendarRows := make([][]any, len(months))
	for i, m := range months {
		calendarRows[i] = []any{m}
	}
	calendar, err := table.New([]string{models.ColumnMonth}, calendarRows)
	if err != nil {
		return nil, err
	}

	series, err := agg.Distinct(Dimensions...)
	if err != nil {
		return nil, err
	}
	grid, err := calendar.CrossJoin(series)
	if err != nil {
		return nil, err
	}
	values, err := agg.Select(columns...)
	if err != nil {
		return nil, err
	}
	joined, err := grid.LeftJoin(values, keys)
	if err != nil {
		return nil, err
	}

	nullsBefore, err := joined.CountNull(models.ColumnUnits)
	if err != nil {
		return nil, err
	}
	filled, err := joined.TransformGroups(Dimensions, models.ColumnMonth, models.ColumnUnits, fillSeries)
	if err != nil {
		return nil, &pipelineerror.DataShapeError{Stage: StageFillGaps, Column: models.ColumnUnits, Reason: err.Error()}
	}
	nullsAfter, err := filled.CountNull(models.ColumnUnits)
	if err != nil {
		return nil, err
	}

	out, err := filled.SortBy(keys...)
	if err != nil {
		return nil, err
	}

	tr.logger.Info("Filled monthly gaps",
		logging.F("series", series.Len()),
		logging.F("months", len(months)),
		logging.F(logging.FieldRowsBefore, agg.Len()),
		logging.F(logging.FieldRowsAfter, out.Len()),
		logging.F("imputed", nullsBefore-nullsAfter))
	return out, nil
}

func fillSeries(values []table.NullFloat) []table.NullFloat {
	return table.BackwardFill(table.ForwardFill(table.Interpolate(values)))
}

func monthlyKeys() []string {
	return append([]string{models.ColumnMonth}, Dimensions...)
}

func monthBounds(agg *table.Table) (first, last time.Time, err error) {
	cells, err := agg.Column(models.ColumnMonth)
	if err != nil {
		return first, last, err
	}
	for i, v := range cells {
		m, ok := v.(time.Time)
		if !ok {
			return first, last, &pipelineerror.DataShapeError{
				Stage: StageFillGaps, Column: models.ColumnMonth, Value: table.Format(v), Reason: "not a month",
			}
		}
		if i == 0 || m.Before(first) {
			first = m
		}
		if i == 0 || m.After(last) {
			last = m
		}
	}
	return first, last, nil
}
