package transformer

import (
	"fmt"
	"time"

	"fjacquet/sales-etl/internal/common"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/table"
)

// ToRecords converts a monthly aggregate into typed records. A null units
// cell, possible only for a series with no known value, becomes zero.
func ToRecords(t *table.Table) ([]models.MonthlyRecord, error) {
	for _, col := range append(monthlyKeys(), models.ColumnUnits) {
		if !t.Has(col) {
			return nil, fmt.Errorf("monthly table: column %q not found", col)
		}
	}

	records := make([]models.MonthlyRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		month, ok := t.Value(i, models.ColumnMonth).(time.Time)
		if !ok {
			return nil, fmt.Errorf("monthly table: row %d month is %T", i, t.Value(i, models.ColumnMonth))
		}
		units, _ := table.AsFloat(t.Value(i, models.ColumnUnits))
		records = append(records, models.MonthlyRecord{
			Month:   models.NewMonth(month),
			City:    table.Format(t.Value(i, models.ColumnCity)),
			Product: table.Format(t.Value(i, models.ColumnProduct)),
			Channel: table.Format(t.Value(i, models.ColumnChannel)),
			Units:   units,
		})
	}
	return records, nil
}

// FromRecords builds the monthly table back from typed records.
func FromRecords(records []models.MonthlyRecord) (*table.Table, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Month.Time, r.City, r.Product, r.Channel, r.Units}
	}
	return table.New(append(monthlyKeys(), models.ColumnUnits), rows)
}

// WriteMonthlyCSV writes the monthly aggregate to path.
func WriteMonthlyCSV(path string, t *table.Table, delimiter rune, logger logging.Logger) error {
	records, err := ToRecords(t)
	if err != nil {
		return err
	}
	return common.WriteCSVFile(records, path, delimiter, logger)
}

// ReadMonthlyCSV reads a file written by WriteMonthlyCSV.
func ReadMonthlyCSV(path string, delimiter rune, logger logging.Logger) (*table.Table, error) {
	records, err := common.ReadCSVFile[models.MonthlyRecord](path, delimiter, logger)
	if err != nil {
		return nil, err
	}
	return FromRecords(records)
}
