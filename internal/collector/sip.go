package collector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"sipcounter/internal/ingest"
	"sipcounter/internal/link"
	"sipcounter/internal/sipcounter"
)

// SIPCollector periodically snapshots the ingest sink and maintains a
// cached set of Prometheus metrics.
//
// Design notes:
//   - Message counts are Gauges, not Counters: the sink may be reset at the
//     start of every sampling period, so values can go down.
//   - On each refresh we RESET the GaugeVec, effectively deleting links that
//     disappeared from the snapshot.
//   - Totals are single Gauges without labels, recomputed from the same
//     snapshot.
//
// Label set of sipcounter_messages:
//
//	server, client, protocol, server_port, client_port, direction, type
//
// Links without known endpoints use the local/remote placeholders and empty
// ports.
type SIPCollector struct {
	sink     *ingest.Sink
	interval time.Duration
	log      logrus.FieldLogger

	messages *prometheus.GaugeVec

	totalLinks    prometheus.Gauge
	totalMessages prometheus.Gauge

	accepted prometheus.Gauge
	ignored  prometheus.Gauge
	skipped  prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

var labelNames = []string{"server", "client", "protocol", "server_port", "client_port", "direction", "type"}

func NewSIPCollector(sink *ingest.Sink, interval time.Duration, log logrus.FieldLogger) *SIPCollector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &SIPCollector{
		sink:     sink,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	c.messages = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sipcounter_messages",
		Help: "Number of SIP messages counted on a link per direction and message type.",
	}, labelNames)

	c.totalLinks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipcounter_total_links",
		Help: "Number of links in the last snapshot.",
	})
	c.totalMessages = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipcounter_total_messages",
		Help: "Total number of SIP messages in the last snapshot.",
	})

	c.accepted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipcounter_ingest_accepted",
		Help: "Observations counted since start.",
	})
	c.ignored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipcounter_ingest_ignored",
		Help: "Observations rejected by the host or message type filters since start.",
	})
	c.skipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sipcounter_ingest_skipped",
		Help: "Input records that could not be parsed since start.",
	})

	return c
}

// MustRegister registers all metrics into the provided registry.
func (c *SIPCollector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.messages,
		c.totalLinks,
		c.totalMessages,
		c.accepted,
		c.ignored,
		c.skipped,
	)
}

// Start begins periodic collection in a background goroutine.
// It performs an initial update immediately.
func (c *SIPCollector) Start(ctx context.Context) {
	go func() {
		defer close(c.doneCh)

		_ = c.UpdateOnce(ctx)

		t := time.NewTicker(c.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-t.C:
				_ = c.UpdateOnce(ctx)
			}
		}
	}()
}

func (c *SIPCollector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// UpdateOnce takes a snapshot of the sink and updates metrics. Nothing is
// touched once ctx is done.
func (c *SIPCollector) UpdateOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := c.sink.Snapshot()
	c.applySnapshot(snap, c.sink.Stats())

	c.log.WithFields(logrus.Fields{
		"links":    snap.Len(),
		"messages": snap.Total(),
	}).Debug("metrics refreshed")
	return nil
}

func (c *SIPCollector) applySnapshot(snap *sipcounter.Counter, st ingest.Stats) {
	c.messages.Reset()

	for key, rec := range snap.Data() {
		for dir, counts := range rec {
			for msgType, n := range counts {
				c.messages.WithLabelValues(labelValues(key, dir, msgType)...).Set(float64(n))
			}
		}
	}

	c.totalLinks.Set(float64(snap.Len()))
	c.totalMessages.Set(float64(snap.Total()))

	c.accepted.Set(float64(st.Accepted))
	c.ignored.Set(float64(st.Ignored))
	c.skipped.Set(float64(st.Skipped))
}

func labelValues(k link.Key, dir link.Direction, msgType string) []string {
	return []string{
		k.Field(link.ServerHost),
		k.Field(link.ClientHost),
		k.Field(link.Protocol),
		k.Field(link.ServerPort),
		k.Field(link.ClientPort),
		string(dir),
		msgType,
	}
}
