package table

// NullFloat is a float that may be missing.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some returns a valid NullFloat.
func Some(f float64) NullFloat {
	return NullFloat{Float64: f, Valid: true}
}

// Interpolate fills nulls that sit between two valid values by linear
// interpolation over position. Leading and trailing nulls are left alone.
func Interpolate(values []NullFloat) []NullFloat {
	out := append([]NullFloat(nil), values...)
	prev := -1
	for i, v := range out {
		if !v.Valid {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			lo, hi := out[prev].Float64, v.Float64
			span := float64(i - prev)
			for k := prev + 1; k < i; k++ {
				out[k] = Some(lo + (hi-lo)*float64(k-prev)/span)
			}
		}
		prev = i
	}
	return out
}

// ForwardFill replaces each null with the closest preceding valid value.
func ForwardFill(values []NullFloat) []NullFloat {
	out := append([]NullFloat(nil), values...)
	var last NullFloat
	for i, v := range out {
		if v.Valid {
			last = v
		} else if last.Valid {
			out[i] = last
		}
	}
	return out
}

// BackwardFill replaces each null with the closest following valid value.
func BackwardFill(values []NullFloat) []NullFloat {
	out := append([]NullFloat(nil), values...)
	var next NullFloat
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Valid {
			next = out[i]
		} else if next.Valid {
			out[i] = next
		}
	}
	return out
}
