package aggregate

import "sipcounter/internal/counter"

// Axis selects how Sum and Max reduce a counter.Data.
type Axis int

const (
	// AxisNone reduces everything to a single value.
	AxisNone Axis = iota
	// AxisLink yields one value per link, in canonical order.
	AxisLink
	// AxisColumn yields one value per column, in Columns order.
	AxisColumn
)

// Sum adds cells along axis. AxisNone returns a single element.
func Sum(data counter.Data, axis Axis) []int {
	return reduce(data, axis, func(acc, v int) int { return acc + v })
}

// Max returns the largest cell along axis, negative cells left by an
// uncompacted subtraction included. AxisNone returns a single element.
// Empty data yields 0 for AxisNone and nil for AxisColumn.
func Max(data counter.Data, axis Axis) []int {
	return reduce(data, axis, func(acc, v int) int {
		if v > acc {
			return v
		}
		return acc
	})
}

// reduce folds cells with fn, seeding every accumulator with its first cell.
func reduce(data counter.Data, axis Axis, fn func(acc, v int) int) []int {
	rows := ToColumns(data)

	switch axis {
	case AxisLink:
		out := make([]int, len(rows))
		for i, r := range rows {
			out[i] = fold(r.Values, fn)
		}
		return out
	case AxisColumn:
		if len(rows) == 0 {
			return nil
		}
		out := append([]int(nil), rows[0].Values...)
		for _, r := range rows[1:] {
			for i, v := range r.Values {
				out[i] = fn(out[i], v)
			}
		}
		return out
	default:
		var all []int
		for _, r := range rows {
			all = append(all, r.Values...)
		}
		return []int{fold(all, fn)}
	}
}

func fold(values []int, fn func(acc, v int) int) int {
	if len(values) == 0 {
		return 0
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = fn(acc, v)
	}
	return acc
}
