package table

import (
	"strconv"
	"strings"
	"time"
)

const keySep = "\x1f"

// keyOf builds a grouping key for a row. Each cell is tagged with its type so
// the string "1" and the number 1 never collide.
func keyOf(row []any) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteString(keySep)
		}
		writeKey(&b, v)
	}
	return b.String()
}

func keyAt(row []any, idx []int) string {
	var b strings.Builder
	for k, j := range idx {
		if k > 0 {
			b.WriteString(keySep)
		}
		writeKey(&b, row[j])
	}
	return b.String()
}

func writeKey(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("n:")
	case string:
		b.WriteString("s:")
		b.WriteString(x)
	case float64:
		b.WriteString("f:")
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(x))
	case time.Time:
		b.WriteString("t:")
		b.WriteString(x.UTC().Format(time.RFC3339Nano))
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case time.Time:
		return 3
	default:
		return 4
	}
}

// Compare orders two cells: nulls first, then by type, then by value.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

// Format renders a cell the way the CSV writers emit it. Nulls are empty,
// whole numbers have no decimal part and midnight timestamps are plain dates.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02T15:04:05")
	}
	return ""
}

// AsFloat returns a numeric cell's value. ok is false for nulls and for any
// non-numeric cell.
func AsFloat(v any) (f float64, ok bool) {
	f, ok = v.(float64)
	return f, ok
}
