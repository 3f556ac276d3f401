package report

// This package renders counters for humans (Table) and for spreadsheets
// (CSV). It only reads from the counter it is given.

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/link"
	"sipcounter/internal/sipcounter"
)

// Options controls Table.
type Options struct {
	// Depth is the grouping depth used when Data is empty.
	Depth   int
	// Title is printed in the top left corner, e.g. a timestamp.
	Title   string
	// Links prints one row per grouped link.
	Links   bool
	// Summary prints the SUMMARY row.
	Summary bool
	// Data replaces the grouped counter data, e.g. with a MostCommon result.
	Data    aggregate.Grouped
}

// DefaultOptions prints links grouped at the default depth and a summary.
func DefaultOptions() Options {
	return Options{Depth: aggregate.DefaultDepth, Links: true, Summary: true}
}

const totalTitle = "TOTAL"

// Table writes a fixed width table of c: a header with one column per
// message type, a sub header naming the counter and splitting every column
// by direction arrow, then one row per link and the SUMMARY row. The last
// column is the row total. Nothing is written when there is no data.
func Table(w io.Writer, c *sipcounter.Counter, opts Options) error {
	data := opts.Data
	if len(data) == 0 {
		g, err := c.GroupBy(opts.Depth)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		data = g
	}
	if len(data) == 0 {
		return nil
	}

	merged := data.Data()
	summary := aggregate.Summary(merged, aggregate.SummaryTitle)
	dirs := aggregate.Directions(merged)
	types := aggregate.MessageTypes(merged)
	cols := make([]aggregate.Column, 0, len(types)*len(dirs))
	for _, mt := range types {
		for _, d := range dirs {
			cols = append(cols, aggregate.Column{MsgType: mt, Direction: d})
		}
	}

	// The summary row holds the widest numbers.
	cellWidth := 1
	for _, v := range aggregate.ToColumnsGrouped(summary, cols)[0].Values {
		cellWidth = max(cellWidth, len(strconv.Itoa(v)))
	}
	typeWidth := 0
	for _, mt := range types {
		typeWidth = max(typeWidth, len(mt))
	}
	nd := len(dirs)
	sub := max(cellWidth, typeWidth/nd, 3)
	colWidth := nd*sub + nd - 1
	totalWidth := max(len(totalTitle), len(strconv.Itoa(summary.Total())))

	linkWidth := max(len(c.Name()), len(opts.Title), len(aggregate.SummaryTitle))
	for _, g := range data {
		linkWidth = max(linkWidth, len(g.Key.Join("-")))
	}
	linkWidth++

	var b strings.Builder
	b.WriteString("\n")

	b.WriteString(pad(opts.Title, linkWidth, ' ', alignLeft))
	for _, mt := range types {
		b.WriteString(pad(mt, colWidth, ' ', alignCenter))
		b.WriteString(" ")
	}
	b.WriteString(pad(totalTitle, totalWidth, ' ', alignRight))
	b.WriteString("\n")

	b.WriteString(pad(c.Name(), linkWidth, ' ', alignLeft))
	for range types {
		for i, d := range dirs {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(arrow(d, sub))
		}
		b.WriteString(" ")
	}
	b.WriteString(strings.Repeat("-", totalWidth))
	b.WriteString("\n")

	var rows []aggregate.Row
	if opts.Links {
		rows = append(rows, aggregate.ToColumnsGrouped(data, cols)...)
	}
	if opts.Summary {
		rows = append(rows, aggregate.ToColumnsGrouped(summary, cols)...)
	}
	for _, r := range rows {
		b.WriteString(pad(r.Key.Join("-"), linkWidth, ' ', alignLeft))
		total := 0
		for i, v := range r.Values {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(pad(strconv.Itoa(v), sub, ' ', alignRight))
			total += v
		}
		if len(r.Values) > 0 {
			b.WriteString(" ")
		}
		b.WriteString(pad(strconv.Itoa(total), totalWidth, ' ', alignRight))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String is Table into a string. Errors render as an empty table.
func String(c *sipcounter.Counter, opts Options) string {
	var b strings.Builder
	if err := Table(&b, c, opts); err != nil {
		return ""
	}
	return b.String()
}

// arrow renders the direction sub header: "-->" "<--" or "<>-".
func arrow(d link.Direction, width int) string {
	switch d {
	case link.Out:
		return pad(d.Arrow(), width, '-', alignRight)
	case link.In:
		return pad(d.Arrow(), width, '-', alignLeft)
	default:
		return pad(d.Arrow(), width, '-', alignCenter)
	}
}

type align int

const (
	alignLeft align = iota
	alignRight
	alignCenter
)

func pad(s string, width int, fill byte, a align) string {
	n := width - len(s)
	if n <= 0 {
		return s
	}
	f := string(fill)
	switch a {
	case alignRight:
		return strings.Repeat(f, n) + s
	case alignCenter:
		left := n / 2
		return strings.Repeat(f, left) + s + strings.Repeat(f, n-left)
	default:
		return s + strings.Repeat(f, n)
	}
}
