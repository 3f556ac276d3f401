package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/sipcounter"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("sipcounter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return Parse(fs, args)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sipcounter.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CollectorInterval != 15*time.Second || cfg.ReportInterval != time.Minute {
		t.Fatalf("unexpected intervals %v %v", cfg.CollectorInterval, cfg.ReportInterval)
	}
	if cfg.ReportDepth != aggregate.DefaultDepth || cfg.ReportTop != 0 || cfg.ReportReset {
		t.Fatalf("unexpected report defaults %+v", cfg)
	}
	if !reflect.DeepEqual([]string(cfg.WebListenAddresses), []string{":9100"}) {
		t.Fatalf("unexpected listen addresses %v", cfg.WebListenAddresses)
	}
	if !cfg.Counter.IsGreedy() {
		t.Fatalf("greedy must default to true")
	}
}

func TestRepeatableFlags(t *testing.T) {
	cfg, err := parse(t,
		"-counter.sip-filter=INVITE", "-counter.sip-filter=4",
		"-counter.known-port=5080",
		"-web.listen-address=:1", "-web.listen-address=:2",
		"-counter.greedy=false",
	)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(cfg.Counter.SIPFilter, []string{"INVITE", "4"}) {
		t.Fatalf("unexpected sip filter %v", cfg.Counter.SIPFilter)
	}
	if !reflect.DeepEqual(cfg.Counter.KnownPorts, []string{"5080"}) {
		t.Fatalf("unexpected known ports %v", cfg.Counter.KnownPorts)
	}
	if len(cfg.WebListenAddresses) != 2 || cfg.Counter.IsGreedy() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		args []string
		want error
	}{
		{[]string{"-input.fields=-", "-input.pcap=x.pcap"}, ErrConflictingInputs},
		{[]string{"-collector.interval=0"}, ErrInvalidInterval},
		{[]string{"-report.depth=6"}, aggregate.ErrInvalidDepth},
		{[]string{"-counter.known-port=http"}, sipcounter.ErrInvalidPort},
	}
	for _, tc := range cases {
		if _, err := parse(t, tc.args...); !errors.Is(err, tc.want) {
			t.Fatalf("%v: got %v want %v", tc.args, err, tc.want)
		}
	}
}

func TestHelpSkipsValidation(t *testing.T) {
	cfg, err := parse(t, "-h", "-collector.interval=0")
	if err != nil || !cfg.ShowHelp {
		t.Fatalf("help must not validate: %v", err)
	}
}

const fileContent = `
counter:
  name: edge
  sip_filter: [INVITE, "4"]
  known_servers: [10.0.0.1]
  greedy: false
ingest:
  pcap: /tmp/trace.pcap
report:
  interval_seconds: 300
  depth: 3
  top: 10
  reset: true
log:
  level: debug
`

func TestLoad(t *testing.T) {
	f, err := Load(writeFile(t, fileContent))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Counter.Name != "edge" || f.Counter.IsGreedy() || f.Ingest.Pcap != "/tmp/trace.pcap" {
		t.Fatalf("unexpected file %+v", f)
	}
	if f.Report.Depth != 3 || f.Report.Top != 10 || !f.Report.Reset {
		t.Fatalf("unexpected report section %+v", f.Report)
	}

	f, err = Load(writeFile(t, "counter:\n  name: x\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Report.IntervalSeconds != 60 || f.Report.Depth != aggregate.DefaultDepth {
		t.Fatalf("defaults not filled %+v", f.Report)
	}

	if _, err := Load(writeFile(t, "report:\n  depth: 9\n")); !errors.Is(err, aggregate.ErrInvalidDepth) {
		t.Fatalf("expected ErrInvalidDepth, got %v", err)
	}
	if _, err := Load(writeFile(t, "counter: [")); err == nil {
		t.Fatalf("expected a parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, fileContent)

	cfg, err := parse(t, "-config.file="+path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Counter.Name != "edge" || cfg.InputPcap != "/tmp/trace.pcap" || cfg.ReportDepth != 3 {
		t.Fatalf("file values not applied %+v", cfg)
	}
	if cfg.ReportInterval != 5*time.Minute || !cfg.ReportReset || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied %+v", cfg)
	}
	if cfg.Counter.IsGreedy() {
		t.Fatalf("greedy must come from the file")
	}

	cfg, err = parse(t, "-config.file="+path,
		"-counter.name=core", "-report.depth=2", "-input.fields=-", "-counter.greedy=true")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Counter.Name != "core" || cfg.ReportDepth != 2 || !cfg.Counter.IsGreedy() {
		t.Fatalf("flags must win %+v", cfg)
	}
	if cfg.InputFields != "-" || cfg.InputPcap != "" {
		t.Fatalf("explicit input flag must replace the file input %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Counter.SIPFilter, []string{"INVITE", "4"}) {
		t.Fatalf("unset list flags keep file values, got %v", cfg.Counter.SIPFilter)
	}
}
