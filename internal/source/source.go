// Package source provides access to the remote table the loader pages
// through.
package source

import (
	"context"

	"fjacquet/sales-etl/internal/table"
)

// RowSource returns the rows of a remote table in an inclusive index range.
// A range past the end of the table returns an empty slice, not an error.
type RowSource interface {
	FetchRange(ctx context.Context, tableName string, from, to int) ([]table.Record, error)
}
