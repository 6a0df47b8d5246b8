// Package table implements the immutable in-memory table the pipeline stages
// pass between each other.
//
// A cell holds nil (null), string, float64, time.Time or bool. Every operation
// returns a new Table and leaves its receiver untouched, so any stage's input
// snapshot stays valid after the stage runs.
package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Table is a row-oriented table with named, ordered columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// KV is one key/value pair of a Record.
type KV struct {
	Key   string
	Value any
}

// Record is an ordered set of fields, as decoded from one source object.
type Record []KV

// New builds a table from column names and rows. Every row must have exactly
// one cell per column and column names must be unique.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}

	copied := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(columns))
		}
		row := make([]any, len(r))
		for j, v := range r {
			cell, err := normalizeCell(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, columns[j], err)
			}
			row[j] = cell
		}
		copied[i] = row
	}

	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// MustNew is New that panics on error. Intended for literals in tests.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// FromRecords builds a table from ordered records. Columns appear in the order
// their keys are first seen; a record missing a column gets a null cell.
func FromRecords(records []Record) (*Table, error) {
	var columns []string
	seen := make(map[string]int)
	for _, rec := range records {
		for _, kv := range rec {
			if _, ok := seen[kv.Key]; !ok {
				seen[kv.Key] = len(columns)
				columns = append(columns, kv.Key)
			}
		}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for _, kv := range rec {
			row[seen[kv.Key]] = kv.Value
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has column col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Index returns the position of col.
func (t *Table) Index(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Value returns the cell at row i, column col. It returns nil for unknown
// columns; use Has to tell a null apart from a missing column.
func (t *Table) Value(i int, col string) any {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Column returns a copy of every cell in col.
func (t *Table) Column(col string) ([]any, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("column %q not found", col)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Rename returns a table with columns renamed according to mapping. Columns
// absent from mapping keep their names.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := mapping[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	return t.derive(cols, t.rows)
}

// RowView gives a predicate read access to one row.
type RowView struct {
	t *Table
	i int
}

// Get returns the cell in column col, or nil if the column does not exist.
func (r RowView) Get(col string) any {
	return r.t.Value(r.i, col)
}

// Index returns the row position in the table.
func (r RowView) Index() int {
	return r.i
}

// Filter keeps the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(RowView) bool) *Table {
	var rows [][]any
	for i := range t.rows {
		if keep(RowView{t: t, i: i}) {
			rows = append(rows, t.rows[i])
		}
	}
	out, _ := t.derive(t.columns, rows)
	return out
}

// MapColumn replaces every cell of col with fn(cell).
func (t *Table) MapColumn(col string, fn func(any) (any, error)) (*Table, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("column %q not found", col)
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		v, err := fn(r[j])
		if err != nil {
			return nil, err
		}
		row := append([]any(nil), r...)
		row[j] = v
		rows[i] = row
	}
	return t.derive(t.columns, rows)
}

// WithColumn computes col from each row. An existing column is replaced in
// place; a new one is appended.
func (t *Table) WithColumn(col string, fn func(RowView) (any, error)) (*Table, error) {
	j, exists := t.index[col]
	cols := t.columns
	if !exists {
		cols = append(append([]string(nil), t.columns...), col)
	}

	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		v, err := fn(RowView{t: t, i: i})
		if err != nil {
			return nil, err
		}
		var row []any
		if exists {
			row = append([]any(nil), r...)
			row[j] = v
		} else {
			row = make([]any, len(r)+1)
			copy(row, r)
			row[len(r)] = v
		}
		rows[i] = row
	}
	return t.derive(cols, rows)
}

// Select projects the table onto cols, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	idx, err := t.positions(cols)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return t.derive(cols, rows)
}

// Distinct returns the unique combinations of cols in first-seen order.
func (t *Table) Distinct(cols ...string) (*Table, error) {
	projected, err := t.Select(cols...)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, projected.Len())
	var rows [][]any
	for _, r := range projected.rows {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, r)
	}
	return projected.derive(cols, rows)
}

// SortBy stable-sorts rows by cols ascending, nulls first.
func (t *Table) SortBy(cols ...string) (*Table, error) {
	idx, err := t.positions(cols)
	if err != nil {
		return nil, err
	}
	rows := append([][]any(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for _, j := range idx {
			if c := Compare(rows[a][j], rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return t.derive(t.columns, rows)
}

// CrossJoin returns every combination of a row of t followed by a row of
// other. The tables must not share column names.
func (t *Table) CrossJoin(other *Table) (*Table, error) {
	cols := append([]string(nil), t.columns...)
	for _, c := range other.columns {
		if t.Has(c) {
			return nil, fmt.Errorf("cross join: column %q on both sides", c)
		}
		cols = append(cols, c)
	}

	rows := make([][]any, 0, len(t.rows)*len(other.rows))
	for _, l := range t.rows {
		for _, r := range other.rows {
			row := make([]any, 0, len(cols))
			row = append(row, l...)
			row = append(row, r...)
			rows = append(rows, row)
		}
	}
	return t.derive(cols, rows)
}

// LeftJoin keeps every row of t and appends the non-key columns of the
// matching rows of other. Unmatched rows get null cells; a key matching
// several rows of other yields one output row per match.
func (t *Table) LeftJoin(other *Table, keys []string) (*Table, error) {
	leftIdx, err := t.positions(keys)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}
	rightIdx, err := other.positions(keys)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	cols := append([]string(nil), t.columns...)
	var extra []int
	for j, c := range other.columns {
		if isKey[c] {
			continue
		}
		if t.Has(c) {
			return nil, fmt.Errorf("left join: column %q on both sides", c)
		}
		cols = append(cols, c)
		extra = append(extra, j)
	}

	lookup := make(map[string][]int, other.Len())
	for i, r := range other.rows {
		k := keyAt(r, rightIdx)
		lookup[k] = append(lookup[k], i)
	}

	var rows [][]any
	for _, l := range t.rows {
		matches := lookup[keyAt(l, leftIdx)]
		if len(matches) == 0 {
			row := make([]any, len(cols))
			copy(row, l)
			rows = append(rows, row)
			continue
		}
		for _, m := range matches {
			row := make([]any, 0, len(cols))
			row = append(row, l...)
			for _, j := range extra {
				row = append(row, other.rows[m][j])
			}
			rows = append(rows, row)
		}
	}
	return t.derive(cols, rows)
}

// derive builds a table sharing cell values (never row slices that may be
// written to) with the receiver.
func (t *Table) derive(cols []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Table{
		columns: append([]string(nil), cols...),
		index:   index,
		rows:    rows,
	}, nil
}

func (t *Table) positions(cols []string) ([]int, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("column %q not found", c)
		}
		idx[k] = j
	}
	return idx, nil
}

func normalizeCell(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, float64, bool, time.Time:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return f, nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}
