// Package models holds the typed records the pipeline writes out.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the monthly aggregate.
const (
	ColumnMonth   = "month"
	ColumnCity    = "city"
	ColumnProduct = "product"
	ColumnChannel = "channel"
	ColumnUnits   = "units"
)

// File permissions
const (
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)

// Month is the first day of a calendar month. It is written as YYYY-MM-DD.
type Month struct {
	time.Time
}

// NewMonth returns the month containing t.
func NewMonth(t time.Time) Month {
	return Month{time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// String implements fmt.Stringer.
func (m Month) String() string {
	return m.Format("2006-01-02")
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (m Month) MarshalCSV() (string, error) {
	return m.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (m *Month) UnmarshalCSV(s string) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", s, err)
	}
	*m = NewMonth(t)
	return nil
}

// MonthlyRecord is one row of the monthly aggregate: the units sold by one
// (city, product, channel) series in one month.
type MonthlyRecord struct {
	Month   Month   `csv:"month"`
	City    string  `csv:"city"`
	Product string  `csv:"product"`
	Channel string  `csv:"channel"`
	Units   float64 `csv:"units"`
}

// SeriesKey identifies the series the record belongs to.
func (r MonthlyRecord) SeriesKey() string {
	return r.City + "|" + r.Product + "|" + r.Channel
}
