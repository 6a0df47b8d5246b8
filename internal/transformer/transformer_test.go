package transformer

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/sales-etl/internal/dateutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/pipelineerror"
	"fjacquet/sales-etl/internal/table"
)

var rawColumns = []string{"fecha", "region", "tipo", "punto_venta", "unidades_vendidas", "metodo_pago"}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func newTestTransformer(t *testing.T, cutoff string) (*Transformer, *logging.MockLogger) {
	t.Helper()
	logger := logging.NewMockLogger()
	return New(dateutils.MustParseISO(cutoff), logger), logger
}

// exampleRaw is the four-row sample: one sentinel, one row past the cutoff
// and two spellings of the same city.
func exampleRaw() *table.Table {
	return table.MustNew(rawColumns, [][]any{
		{"2025-01-01", "Bogotá", "CARNE", "Tienda", 10.0, "efectivo"},
		{"2025-01-15", "bogota ", "Carne", "Tienda", 9999.0, nil},
		{"2025-02-01", "Medellín", "Pollo", "Tienda", 15.0, "tarjeta"},
		{"2026-01-01", "Bogotá", "CARNE", "Tienda", 20.0, "efectivo"},
	})
}

func TestRunPipeline_EndToEndExample(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-12-31")
	raw := exampleRaw()

	out, err := tr.RunPipeline(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"month", "city", "product", "channel", "units"}, out.Columns())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{month(2025, 1), "BOGOTA", "CARNE", "TIENDA", 0.0}, out.Row(0), "all-null group sums to zero")
	assert.Equal(t, []any{month(2025, 1), "BOGOTÁ", "CARNE", "TIENDA", 10.0}, out.Row(1))
	assert.Equal(t, []any{month(2025, 2), "MEDELLÍN", "POLLO", "TIENDA", 15.0}, out.Row(2))

	total, err := out.Sum(models.ColumnUnits)
	require.NoError(t, err)
	assert.Equal(t, "25", total.String())

	assert.Equal(t, 4, raw.Len(), "raw input is not modified")
	assert.Equal(t, "unidades_vendidas", raw.Columns()[4])
	assert.True(t, logger.HasEntry("INFO", "Starting transformation pipeline"))
	assert.True(t, logger.HasEntry("INFO", "Transformation pipeline finished"))
}

func TestRunPipeline_FillGapsOption(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-03-31")

	out, err := tr.RunPipeline(exampleRaw(), Options{FillGaps: true})
	require.NoError(t, err)

	// Three series, January through March.
	assert.Equal(t, 9, out.Len())
	nulls, err := out.CountNull(models.ColumnUnits)
	require.NoError(t, err)
	assert.Zero(t, nulls)
	assert.True(t, logger.HasEntry("INFO", "Filled monthly gaps"))
}

func TestRunPipeline_StageErrorAborts(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-12-31")
	raw := table.MustNew([]string{"region", "unidades_vendidas"}, [][]any{{"X", 1.0}})

	_, err := tr.RunPipeline(raw, Options{})
	require.Error(t, err)

	var shapeErr *pipelineerror.DataShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, StageCutoff, shapeErr.Stage)
	assert.Equal(t, ColumnDate, shapeErr.Column)
	assert.True(t, logger.HasEntry("ERROR", "Pipeline stage failed"))
}

func TestRenameColumns(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-12-31")

	out, err := tr.RenameColumns(table.MustNew(
		[]string{"fecha", "region", "tipo", "punto_venta", "unidades_vendidas", "precio_venta"},
		[][]any{{"2025-01-01", "A", "B", "C", 1.0, 2.5}},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"fecha", "city", "product", "channel", "units", "precio_venta"}, out.Columns())

	_, err = tr.RenameColumns(table.MustNew([]string{"region", "city"}, nil))
	assert.Error(t, err, "renaming onto an existing column fails")
}

func TestFilterByCutoff(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-06-30")
	in := table.MustNew([]string{"fecha", "units"}, [][]any{
		{"2025-06-29", 1.0},
		{"2025-06-30", 2.0},
		{"2025-06-30T18:45:00", 3.0},
		{"2025-07-01", 4.0},
		{nil, 5.0},
		{"  ", 6.0},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 7.0},
	})

	out, err := tr.FilterByCutoff(in)
	require.NoError(t, err)

	units, err := out.Column("units")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0, 7.0}, units, "boundary day kept, later and undated rows dropped")
	assert.IsType(t, time.Time{}, out.Value(0, "fecha"))

	removed, ok := logger.FieldValue("Filtered rows by cutoff", "removed")
	require.True(t, ok)
	assert.Equal(t, 3, removed)
}

func TestFilterByCutoff_UnparseableDate(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-06-30")
	_, err := tr.FilterByCutoff(table.MustNew([]string{"fecha"}, [][]any{{"yesterday"}}))
	require.Error(t, err)

	var shapeErr *pipelineerror.DataShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "yesterday", shapeErr.Value)
}

func TestCleanSentinels(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-12-31")
	in := table.MustNew([]string{"id", "units"}, [][]any{
		{"a", 10.0},
		{"b", -1.0},
		{"c", 999.0},
		{"d", 9999.0},
		{"e", "42"},
		{"f", ""},
		{"g", nil},
		{"h", 0.0},
		{"i", 998.0},
	})

	out, err := tr.CleanSentinels(in)
	require.NoError(t, err)

	units, err := out.Column("units")
	require.NoError(t, err)
	assert.Equal(t, []any{10.0, nil, nil, nil, 42.0, nil, nil, 0.0, 998.0}, units)

	ids, err := out.Column("id")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, ids, "other columns untouched")

	count, ok := logger.FieldValue("Replaced sentinel values", logging.FieldCount)
	require.True(t, ok)
	assert.Equal(t, 3, count)
}

func TestCleanSentinels_Errors(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-12-31")

	_, err := tr.CleanSentinels(table.MustNew([]string{"id"}, nil))
	var shapeErr *pipelineerror.DataShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "column not found", shapeErr.Reason)

	_, err = tr.CleanSentinels(table.MustNew([]string{"units"}, [][]any{{"ten"}}))
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "ten", shapeErr.Value)
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{nil, "OTROS"},
		{"", "OTROS"},
		{"  ", "OTROS"},
		{"null", "OTROS"},
		{"N/A", "OTROS"},
		{"undefined", "OTROS"},
		{"NaN", "OTROS"},
		{" None ", "OTROS"},
		{" bogota ", "BOGOTA"},
		{"Bogotá", "BOGOTÁ"},
		{"otros", "OTROS"},
		{"Tienda Física", "TIENDA FÍSICA"},
		{12.0, "12"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeCategory(tt.in), "input %#v", tt.in)
	}
}

func TestNormalizeCategories_OnlyPresentColumns(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-12-31")
	in := table.MustNew([]string{"city", "product", "note"}, [][]any{
		{" cali", nil, "keep me"},
	})

	out, err := tr.NormalizeCategories(in)
	require.NoError(t, err)
	assert.Equal(t, []any{"CALI", "OTROS", "keep me"}, out.Row(0))
}

func TestAggregateMonthly(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-12-31")
	in := table.MustNew([]string{"fecha", "city", "product", "channel", "units", "metodo_pago"}, [][]any{
		{time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), "A", "X", "C1", 1.5, "EFECTIVO"},
		{time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "A", "X", "C1", 2.0, "TARJETA"},
		{time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "A", "X", "C1", nil, "TARJETA"},
		{time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "B", "X", "C1", 4.0, "EFECTIVO"},
		{time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "A", "X", "C2", 7.0, "EFECTIVO"},
	})

	out, err := tr.AggregateMonthly(in)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{month(2025, 1), "B", "X", "C1", 4.0}, out.Row(0))
	assert.Equal(t, []any{month(2025, 3), "A", "X", "C1", 3.5}, out.Row(1), "payment methods collapse into one key")
	assert.Equal(t, []any{month(2025, 4), "A", "X", "C2", 7.0}, out.Row(2))

	rows, ok := logger.FieldValue("Aggregated monthly series", logging.FieldRowsAfter)
	require.True(t, ok)
	assert.Equal(t, 3, rows)
}

func TestAggregateMonthly_MissingDimension(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-12-31")
	_, err := tr.AggregateMonthly(table.MustNew([]string{"fecha", "city", "product", "units"}, nil))

	var shapeErr *pipelineerror.DataShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "channel", shapeErr.Column)
}

func TestFillGaps(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-04-15")
	agg := table.MustNew([]string{"month", "city", "product", "channel", "units"}, [][]any{
		{month(2025, 1), "A", "X", "C", 10.0},
		{month(2025, 2), "B", "X", "C", 5.0},
		{month(2025, 3), "A", "X", "C", 30.0},
	})

	out, err := tr.FillGaps(agg)
	require.NoError(t, err)

	require.Equal(t, 8, out.Len(), "two series over four months")
	expected := [][]any{
		{month(2025, 1), "A", "X", "C", 10.0},
		{month(2025, 1), "B", "X", "C", 5.0},
		{month(2025, 2), "A", "X", "C", 20.0},
		{month(2025, 2), "B", "X", "C", 5.0},
		{month(2025, 3), "A", "X", "C", 30.0},
		{month(2025, 3), "B", "X", "C", 5.0},
		{month(2025, 4), "A", "X", "C", 30.0},
		{month(2025, 4), "B", "X", "C", 5.0},
	}
	for i, row := range expected {
		assert.Equal(t, row, out.Row(i), "row %d", i)
	}

	imputed, ok := logger.FieldValue("Filled monthly gaps", "imputed")
	require.True(t, ok)
	assert.Equal(t, 5, imputed)
	assert.Equal(t, 3, agg.Len(), "input is not modified")
}

func TestFillGaps_OnlyObservedSeries(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-02-28")
	agg := table.MustNew([]string{"month", "city", "product", "channel", "units"}, [][]any{
		{month(2025, 1), "A", "X", "C", 1.0},
		{month(2025, 1), "B", "Y", "C", 2.0},
	})

	out, err := tr.FillGaps(agg)
	require.NoError(t, err)

	series, err := out.Distinct(Dimensions...)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len(), "A/Y and B/X are never created")
	assert.Equal(t, 4, out.Len())
}

func TestFillGaps_Empty(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-02-28")
	agg := table.MustNew([]string{"month", "city", "product", "channel", "units"}, nil)

	out, err := tr.FillGaps(agg)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestCleanInput_IntegrityBaseline(t *testing.T) {
	tr, _ := newTestTransformer(t, "2025-12-31")

	clean, err := tr.CleanInput(exampleRaw())
	require.NoError(t, err)

	total, err := clean.Sum(models.ColumnUnits)
	require.NoError(t, err)
	assert.Equal(t, "25", total.String())
	assert.Equal(t, 3, clean.Len())
}

func TestMonthlyCSVRoundTrip(t *testing.T) {
	tr, logger := newTestTransformer(t, "2025-12-31")
	out, err := tr.RunPipeline(exampleRaw(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "processed", "ventas_mensuales.csv")
	require.NoError(t, WriteMonthlyCSV(path, out, ';', logger))

	back, err := ReadMonthlyCSV(path, ';', logger)
	require.NoError(t, err)
	assert.Equal(t, out.Columns(), back.Columns())
	require.Equal(t, out.Len(), back.Len())
	for i := 0; i < out.Len(); i++ {
		assert.Equal(t, out.Row(i), back.Row(i))
	}
}

func TestToRecords(t *testing.T) {
	records, err := ToRecords(table.MustNew([]string{"month", "city", "product", "channel", "units"}, [][]any{
		{month(2025, 5), "A", "X", "C", nil},
	}))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-05-01", records[0].Month.String())
	assert.Equal(t, 0.0, records[0].Units)

	_, err = ToRecords(table.MustNew([]string{"month"}, nil))
	assert.Error(t, err)
}
