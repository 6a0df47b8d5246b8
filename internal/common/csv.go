// Package common provides the typed CSV read and write helpers shared by the
// pipeline outputs.
package common

import (
	"encoding/csv"
	"fmt"

	"fjacquet/sales-etl/internal/fileutils"
	"fjacquet/sales-etl/internal/logging"

	"github.com/gocarina/gocsv"
)

// ReadCSVFile reads CSV data into a slice of structs using gocsv.
// TCSVRow is the struct type that maps to the CSV columns.
func ReadCSVFile[TCSVRow any](filePath string, delimiter rune, logger logging.Logger) ([]TCSVRow, error) {
	logger.Info("Reading CSV file", logging.F(logging.FieldFile, filePath))

	file, err := fileutils.OpenFile(filePath)
	if err != nil {
		logger.WithError(err).Error("Failed to open CSV file")
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	reader := csv.NewReader(file)
	reader.Comma = delimiter

	var rows []TCSVRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		logger.WithError(err).Error("Failed to parse CSV file")
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}

	logger.Info("Successfully read CSV data", logging.F(logging.FieldCount, len(rows)))
	return rows, nil
}

// WriteCSVFile writes rows to filePath with a header derived from the csv
// struct tags, creating the directory if needed.
func WriteCSVFile[TCSVRow any](rows []TCSVRow, filePath string, delimiter rune, logger logging.Logger) error {
	if rows == nil {
		return fmt.Errorf("cannot write nil rows to CSV")
	}

	logger.Info("Writing CSV file",
		logging.F(logging.FieldFile, filePath),
		logging.F(logging.FieldCount, len(rows)))

	file, err := fileutils.CreateFile(filePath)
	if err != nil {
		logger.WithError(err).Error("Failed to create CSV file")
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	csvWriter := csv.NewWriter(file)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		logger.WithError(err).Error("Failed to marshal rows to CSV")
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	logger.Info("Successfully wrote CSV file", logging.F(logging.FieldFile, filePath))
	return nil
}
