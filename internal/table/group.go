package table

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// GroupBySum groups rows by keys and sums value within each group. Null cells
// are skipped; a group whose values are all null sums to zero. The result has
// the key columns followed by value, one row per group, sorted by key.
//
// Sums are accumulated as decimals so totals are independent of row order.
func (t *Table) GroupBySum(keys []string, value string) (*Table, error) {
	keyIdx, err := t.positions(keys)
	if err != nil {
		return nil, fmt.Errorf("group by: %w", err)
	}
	valIdx, ok := t.index[value]
	if !ok {
		return nil, fmt.Errorf("group by: column %q not found", value)
	}

	type group struct {
		key []any
		sum decimal.Decimal
	}
	groups := make(map[string]*group)
	var order []*group

	for i, r := range t.rows {
		k := keyAt(r, keyIdx)
		g, seen := groups[k]
		if !seen {
			key := make([]any, len(keyIdx))
			for n, j := range keyIdx {
				key[n] = r[j]
			}
			g = &group{key: key, sum: decimal.Zero}
			groups[k] = g
			order = append(order, g)
		}

		switch v := r[valIdx].(type) {
		case nil:
		case float64:
			g.sum = g.sum.Add(decimal.NewFromFloat(v))
		default:
			return nil, fmt.Errorf("group by: row %d column %q holds %T, want number", i, value, v)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		for n := range keys {
			if c := Compare(order[a].key[n], order[b].key[n]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	cols := append(append([]string(nil), keys...), value)
	rows := make([][]any, len(order))
	for i, g := range order {
		row := append(append([]any(nil), g.key...), g.sum.InexactFloat64())
		rows[i] = row
	}
	return t.derive(cols, rows)
}

// TransformGroups partitions rows by keys, orders each partition by orderBy
// and replaces the partition's col values with fn's result. Row order in the
// output matches the input.
func (t *Table) TransformGroups(keys []string, orderBy, col string, fn func([]NullFloat) []NullFloat) (*Table, error) {
	keyIdx, err := t.positions(keys)
	if err != nil {
		return nil, fmt.Errorf("transform groups: %w", err)
	}
	orderIdx, ok := t.index[orderBy]
	if !ok {
		return nil, fmt.Errorf("transform groups: column %q not found", orderBy)
	}
	colIdx, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("transform groups: column %q not found", col)
	}

	partitions := make(map[string][]int)
	var order []string
	for i, r := range t.rows {
		k := keyAt(r, keyIdx)
		if _, seen := partitions[k]; !seen {
			order = append(order, k)
		}
		partitions[k] = append(partitions[k], i)
	}

	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		rows[i] = append([]any(nil), r...)
	}

	for _, k := range order {
		members := partitions[k]
		sort.SliceStable(members, func(a, b int) bool {
			return Compare(t.rows[members[a]][orderIdx], t.rows[members[b]][orderIdx]) < 0
		})

		series := make([]NullFloat, len(members))
		for n, i := range members {
			v := t.rows[i][colIdx]
			switch x := v.(type) {
			case nil:
			case float64:
				series[n] = NullFloat{Float64: x, Valid: true}
			default:
				return nil, fmt.Errorf("transform groups: row %d column %q holds %T, want number", i, col, v)
			}
		}

		result := fn(series)
		if len(result) != len(series) {
			return nil, fmt.Errorf("transform groups: fn returned %d values for %d rows", len(result), len(series))
		}
		for n, i := range members {
			if result[n].Valid {
				rows[i][colIdx] = result[n].Float64
			} else {
				rows[i][colIdx] = nil
			}
		}
	}
	return t.derive(t.columns, rows)
}

// Sum adds every non-null numeric cell of col.
func (t *Table) Sum(col string) (decimal.Decimal, error) {
	j, ok := t.index[col]
	if !ok {
		return decimal.Zero, fmt.Errorf("column %q not found", col)
	}
	total := decimal.Zero
	for i, r := range t.rows {
		switch v := r[j].(type) {
		case nil:
		case float64:
			total = total.Add(decimal.NewFromFloat(v))
		default:
			return decimal.Zero, fmt.Errorf("row %d column %q holds %T, want number", i, col, v)
		}
	}
	return total, nil
}

// CountNull returns how many cells of col are null.
func (t *Table) CountNull(col string) (int, error) {
	j, ok := t.index[col]
	if !ok {
		return 0, fmt.Errorf("column %q not found", col)
	}
	n := 0
	for _, r := range t.rows {
		if r[j] == nil {
			n++
		}
	}
	return n, nil
}
