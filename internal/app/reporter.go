package app

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"sipcounter/internal/config"
	"sipcounter/internal/ingest"
	"sipcounter/internal/report"
	"sipcounter/internal/sipcounter"
)

// reporter prints the counter table every period. With reset it starts a
// new sampling period after each report.
type reporter struct {
	sink  *ingest.Sink
	out   io.Writer
	log   logrus.FieldLogger
	depth int
	top   int
	reset bool
}

func newReporter(sink *ingest.Sink, out io.Writer, log logrus.FieldLogger, cfg config.Config) *reporter {
	return &reporter{
		sink:  sink,
		out:   out,
		log:   log,
		depth: cfg.ReportDepth,
		top:   cfg.ReportTop,
		reset: cfg.ReportReset,
	}
}

func (r *reporter) run(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.report(now, r.reset)
		}
	}
}

// report writes one table. reset clears the live counter.
func (r *reporter) report(now time.Time, reset bool) {
	var snap *sipcounter.Counter
	if reset {
		snap = r.sink.Reset()
	} else {
		snap = r.sink.Snapshot()
	}

	opts := report.DefaultOptions()
	opts.Depth = r.depth
	opts.Title = now.Format(time.RFC3339)
	if r.top > 0 {
		top, err := snap.MostCommon(r.top, r.depth)
		if err != nil {
			r.log.WithError(err).Warn("report failed")
			return
		}
		if len(top) == 0 {
			return
		}
		opts.Data = top
	}

	if err := report.Table(r.out, snap, opts); err != nil {
		r.log.WithError(err).Warn("report failed")
		return
	}
	r.log.WithFields(logrus.Fields{
		"links":    snap.Len(),
		"messages": snap.Total(),
		"reset":    reset,
	}).Info("report written")
}
