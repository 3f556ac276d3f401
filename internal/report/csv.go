package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/sipcounter"
)

// KeyColumns names the link key fields in key order.
var KeyColumns = []string{"server", "client", "protocol", "server_port", "client_port"}

// CSV writes one record per link grouped at depth: the key fields, one
// "TYPE DIRECTION" column per message type and direction, and TOTAL.
func CSV(w io.Writer, c *sipcounter.Counter, depth int) error {
	g, err := c.GroupBy(depth)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	data := g.Data()
	cols := aggregate.Columns(data)

	header := append([]string(nil), KeyColumns[:depth]...)
	for _, col := range cols {
		header = append(header, col.MsgType+" "+string(col.Direction))
	}
	header = append(header, totalTitle)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range aggregate.ToColumnsGrouped(g, cols) {
		rec := make([]string, 0, len(header))
		for i := 0; i < depth; i++ {
			rec = append(rec, row.Key.Field(i))
		}
		total := 0
		for _, v := range row.Values {
			rec = append(rec, strconv.Itoa(v))
			total += v
		}
		rec = append(rec, strconv.Itoa(total))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
