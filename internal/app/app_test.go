package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"sipcounter/internal/classify"
	"sipcounter/internal/config"
	"sipcounter/internal/ingest"
	"sipcounter/internal/sipcounter"
)

func testSink(t *testing.T) *ingest.Sink {
	t.Helper()
	sink := ingest.NewSink(sipcounter.MustNew(sipcounter.Config{Name: "app"}))
	sink.Observe(classify.Observation{MsgType: "INVITE", SrcHost: "10.0.0.2", SrcPort: "12345", DstHost: "10.0.0.1", DstPort: "5060"})
	sink.Observe(classify.Observation{MsgType: "OPTIONS", SrcHost: "10.0.0.3", SrcPort: "23456", DstHost: "10.0.0.1", DstPort: "5060"})
	sink.Observe(classify.Observation{MsgType: "OPTIONS", SrcHost: "10.0.0.3", SrcPort: "23456", DstHost: "10.0.0.1", DstPort: "5060"})
	return sink
}

func TestReportKeepsCounts(t *testing.T) {
	sink := testSink(t)
	log, hook := test.NewNullLogger()
	var out bytes.Buffer
	rep := newReporter(sink, &out, log, config.Config{ReportDepth: 4})

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rep.report(now, false)

	if !strings.Contains(out.String(), "2024-05-01T12:00:00Z") || !strings.Contains(out.String(), "SUMMARY") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
	if sink.Snapshot().Total() != 3 {
		t.Fatalf("report without reset must keep counts")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "report written" || entry.Data["messages"] != 3 || entry.Level != logrus.InfoLevel {
		t.Fatalf("unexpected log entry %+v", entry)
	}
}

func TestReportResetAndTop(t *testing.T) {
	sink := testSink(t)
	log, _ := test.NewNullLogger()
	var out bytes.Buffer
	rep := newReporter(sink, &out, log, config.Config{ReportDepth: 4, ReportTop: 1, ReportReset: true})

	rep.report(time.Now(), true)
	if !strings.Contains(out.String(), "10.0.0.1-UDP-5060-10.0.0.3") || strings.Contains(out.String(), "10.0.0.2") {
		t.Fatalf("expected only the busiest link:\n%s", out.String())
	}
	if sink.Snapshot().Total() != 0 {
		t.Fatalf("reset must clear the counter")
	}

	out.Reset()
	rep.report(time.Now(), true)
	if out.Len() != 0 {
		t.Fatalf("empty period must print nothing, got:\n%s", out.String())
	}
}

func TestReporterRunStopsOnCancel(t *testing.T) {
	sink := testSink(t)
	log, _ := test.NewNullLogger()
	var out bytes.Buffer
	rep := newReporter(sink, &out, log, config.Config{ReportDepth: 4})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rep.run(ctx, time.Hour)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("reporter did not stop")
	}
}

func TestOpenInput(t *testing.T) {
	log, hook := test.NewNullLogger()

	if _, ok := openInput(config.Config{}, log); ok {
		t.Fatalf("no input must not open anything")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected a warning")
	}

	if _, ok := openInput(config.Config{InputPcap: "/nonexistent/trace.pcap"}, log); ok {
		t.Fatalf("missing file must not open")
	}

	in, ok := openInput(config.Config{InputFields: config.StdinPath}, log)
	if !ok || in.name != "stdin" {
		t.Fatalf("expected stdin input, got %+v", in)
	}
}
