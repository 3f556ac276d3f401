package aggregate

// This package builds the derived views of a counter.Data: grouping by key
// prefix, ranking by volume, axis sums and the column layout used by
// reports. Every function is read-only with respect to its input.

import (
	"errors"
	"fmt"
	"sort"

	"sipcounter/internal/counter"
	"sipcounter/internal/link"
)

// ErrInvalidDepth is returned when a grouping depth is outside [1, 5].
var ErrInvalidDepth = errors.New("invalid grouping depth")

// DefaultDepth groups links by everything but the client port.
const DefaultDepth = 4

// Group is one (possibly merged) link and its counts.
type Group struct {
	Key    link.Key
	Record counter.Record
}

// Grouped is an ordered list of groups.
type Grouped []Group

// Keys returns the group keys in order.
func (g Grouped) Keys() []link.Key {
	out := make([]link.Key, len(g))
	for i := range g {
		out[i] = g[i].Key
	}
	return out
}

// Total sums every group.
func (g Grouped) Total() int {
	total := 0
	for i := range g {
		total += g[i].Record.Total()
	}
	return total
}

// Data returns the groups as a counter.Data keyed by group key.
func (g Grouped) Data() counter.Data {
	out := make(counter.Data, len(g))
	for i := range g {
		out[g[i].Key] = g[i].Record
	}
	return out
}

// ValidDepth checks a grouping depth.
func ValidDepth(depth int) error {
	if depth < 1 || depth > link.MaxDepth {
		return fmt.Errorf("depth %d not in [1, %d]: %w", depth, link.MaxDepth, ErrInvalidDepth)
	}
	return nil
}

// GroupBy merges every link sharing the first depth fields into one
// record and returns the groups in canonical order. Depth 5 only sorts.
// The returned records never alias data.
func GroupBy(data counter.Data, depth int) (Grouped, error) {
	if err := ValidDepth(depth); err != nil {
		return nil, err
	}

	merged := make(map[link.Key]counter.Record, len(data))
	for key, rec := range data {
		p := key.Prefix(depth)
		g, ok := merged[p]
		if !ok {
			g = make(counter.Record, len(rec))
			merged[p] = g
		}
		g.Merge(rec)
	}

	keys := make([]link.Key, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	link.Sort(keys)

	out := make(Grouped, len(keys))
	for i, k := range keys {
		out[i] = Group{Key: k, Record: merged[k]}
	}
	return out, nil
}

// MostCommon returns the n busiest groups at depth, busiest first. Groups
// with equal totals keep their canonical order. n <= 0 returns all groups.
func MostCommon(data counter.Data, n, depth int) (Grouped, error) {
	g, err := GroupBy(data, depth)
	if err != nil {
		return nil, err
	}

	totals := make([]int, len(g))
	for i := range g {
		totals[i] = g[i].Record.Total()
	}
	idx := make([]int, len(g))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return totals[idx[a]] > totals[idx[b]] })

	if n > 0 && n < len(idx) {
		idx = idx[:n]
	}
	out := make(Grouped, len(idx))
	for i, j := range idx {
		out[i] = g[j]
	}
	return out, nil
}

// SummaryTitle is the default key of Summary.
const SummaryTitle = "SUMMARY"

// Summary returns a single group keyed by (title) holding the sum of every
// record per direction and message type.
func Summary(data counter.Data, title string) Grouped {
	if title == "" {
		title = SummaryTitle
	}
	rec := make(counter.Record)
	for _, r := range data {
		rec.Merge(r)
	}
	return Grouped{{Key: link.New(title), Record: rec}}
}
