package aggregate

import (
	"sort"
	"strconv"

	"sipcounter/internal/counter"
	"sipcounter/internal/filter"
	"sipcounter/internal/link"
)

// methodOrder is the report order of request methods. Unlisted names sort
// after these, alphabetically.
var methodOrder = map[string]int{
	"INVITE":    0,
	"ReINVITE":  1,
	"BYE":       2,
	"CANCEL":    3,
	"UPDATE":    4,
	"NOTIFY":    5,
	"SUBSCRIBE": 6,
	"PUBLISH":   7,
	"ACK":       8,
	"PRACK":     9,
	"REFER":     10,
	"OPTIONS":   11,
	"INFO":      12,
	"REGISTER":  13,
	"MESSAGE":   14,
	"PING":      15,
}

// MessageTypes returns every message type found in data: requests in
// method order first, then response codes in ascending numeric order.
func MessageTypes(data counter.Data) []string {
	seen := make(map[string]struct{})
	for _, rec := range data {
		for _, counts := range rec {
			for mt := range counts {
				seen[mt] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for mt := range seen {
		out = append(out, mt)
	}
	SortMessageTypes(out)
	return out
}

// SortMessageTypes sorts message types in report order.
func SortMessageTypes(types []string) {
	sort.Slice(types, func(i, j int) bool { return lessType(types[i], types[j]) })
}

func lessType(a, b string) bool {
	ra, rb := filter.IsResponse(a), filter.IsResponse(b)
	if ra != rb {
		return !ra
	}
	if ra {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		if errA == nil && errB == nil && na != nb {
			return na < nb
		}
		return a < b
	}
	oa, okA := methodOrder[a]
	ob, okB := methodOrder[b]
	switch {
	case okA && okB:
		return oa < ob
	case okA != okB:
		return okA
	}
	return a < b
}

// Directions returns the column direction layout of data: [OUT, IN] for
// direction aware data (or empty data), [BOTH] for direction agnostic data.
// Data mixing both vocabularies gets all three.
func Directions(data counter.Data) []link.Direction {
	used := data.Directions()
	_, in := used[link.In]
	_, out := used[link.Out]
	_, both := used[link.Both]
	if both && !in && !out {
		return []link.Direction{link.Both}
	}
	dirs := []link.Direction{link.Out, link.In}
	if both {
		dirs = append(dirs, link.Both)
	}
	return dirs
}

// Column is one (message type, direction) cell position.
type Column struct {
	MsgType   string
	Direction link.Direction
}

// Columns returns the column layout of data: message types in report
// order, each split by Directions.
func Columns(data counter.Data) []Column {
	dirs := Directions(data)
	types := MessageTypes(data)
	out := make([]Column, 0, len(types)*len(dirs))
	for _, mt := range types {
		for _, d := range dirs {
			out = append(out, Column{MsgType: mt, Direction: d})
		}
	}
	return out
}

// Row is a link with its values laid out by Columns.
type Row struct {
	Key    link.Key
	Values []int
}

// ToColumns returns one row per link of data in canonical order.
func ToColumns(data counter.Data) []Row {
	cols := Columns(data)
	keys := make([]link.Key, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	link.Sort(keys)

	out := make([]Row, len(keys))
	for i, k := range keys {
		out[i] = Row{Key: k, Values: rowValues(data[k], cols)}
	}
	return out
}

// ToColumnsGrouped lays out already grouped data against cols.
func ToColumnsGrouped(g Grouped, cols []Column) []Row {
	out := make([]Row, len(g))
	for i := range g {
		out[i] = Row{Key: g[i].Key, Values: rowValues(g[i].Record, cols)}
	}
	return out
}

func rowValues(rec counter.Record, cols []Column) []int {
	values := make([]int, len(cols))
	for i, c := range cols {
		values[i] = rec.Get(c.Direction, c.MsgType)
	}
	return values
}
