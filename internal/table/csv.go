package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes a header row followed by one row per record. There is no
// index column; nulls are written as empty fields.
func WriteCSV(w io.Writer, t *Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	safe := gocsv.NewSafeCSVWriter(cw)

	if err := safe.Write(t.Columns()); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}

	record := make([]string, len(t.columns))
	for _, r := range t.rows {
		for j, v := range r {
			record[j] = Format(v)
		}
		if err := safe.Write(record); err != nil {
			return fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	safe.Flush()
	if err := safe.Error(); err != nil {
		return fmt.Errorf("error flushing CSV data: %w", err)
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV. Every non-empty field is a
// string; empty fields are null. Stages coerce the columns they need.
func ReadCSV(r io.Reader, delimiter rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	header = append([]string(nil), header...)
	cr.FieldsPerRecord = len(header)

	var rows [][]any
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}
		row := make([]any, len(rec))
		for j, field := range rec {
			if field != "" {
				row[j] = field
			}
		}
		rows = append(rows, row)
	}
	return New(header, rows)
}
