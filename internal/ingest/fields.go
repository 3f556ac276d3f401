package ingest

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"sipcounter/internal/classify"
	"sipcounter/internal/sipmsg"
)

// Column layout of `tshark -T fields -E separator=|` lines:
//
//	-e ip.src -e udp.srcport -e ip.dst -e udp.dstport
//	-e sip.Request-Line -e sip.Status-Line -e sip.CSeq -e sip.To [-e sip.Via]
//
// The CSeq, To and Via columns are optional.
const (
	colSrcHost = iota
	colSrcPort
	colDstHost
	colDstPort
	colRequestLine
	colStatusLine
	colCSeq
	colTo
	colVia

	minColumns = colStatusLine + 1
)

// ParseFieldsLine turns one tshark fields line into an observation.
//
// Like the rest of the ingest code it is tolerant: tshark prints several
// comma separated values when a frame carries more than one SIP message or
// header instance; only the first one is used. Lines starting with '#' and
// lines with too few columns are rejected.
func ParseFieldsLine(line string) (classify.Observation, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
		return classify.Observation{}, false
	}

	cols := strings.Split(line, "|")
	if len(cols) < minColumns {
		return classify.Observation{}, false
	}
	col := func(i int) string {
		if i >= len(cols) {
			return ""
		}
		v, _, _ := strings.Cut(cols[i], ",")
		return strings.TrimSpace(v)
	}

	start := col(colRequestLine)
	if start == "" {
		start = col(colStatusLine)
	}

	var sb strings.Builder
	sb.WriteString(start)
	sb.WriteString("\r\n")
	writeHeader(&sb, "CSeq", col(colCSeq))
	// To values carry commas inside display names; keep the whole column.
	if colTo < len(cols) {
		writeHeader(&sb, "To", strings.TrimSpace(cols[colTo]))
	}
	writeHeader(&sb, "Via", col(colVia))

	msg, _ := sipmsg.Parse(sb.String())
	return classify.Observation{
		Message: msg,
		SrcHost: col(colSrcHost),
		SrcPort: col(colSrcPort),
		DstHost: col(colDstHost),
		DstPort: col(colDstPort),
	}, true
}

func writeHeader(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sb.WriteString(name)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\r\n")
}

// ReadFields feeds every line of r to sink until EOF or until ctx is
// cancelled. Malformed lines are skipped and counted.
func ReadFields(ctx context.Context, r io.Reader, sink *Sink, log logrus.FieldLogger) error {
	sc := bufio.NewScanner(r)
	// tshark lines are usually short, but a frame may carry several messages.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines, skipped int
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines++

		obs, ok := ParseFieldsLine(sc.Text())
		if !ok {
			skipped++
			sink.Skip()
			continue
		}
		sink.Observe(obs)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if log != nil {
		log.WithFields(logrus.Fields{"lines": lines, "skipped": skipped}).Debug("fields input finished")
	}
	return nil
}
