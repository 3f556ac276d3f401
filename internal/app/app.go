package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/sirupsen/logrus"

	"sipcounter/internal/collector"
	"sipcounter/internal/config"
	"sipcounter/internal/ingest"
	"sipcounter/internal/logging"
	"sipcounter/internal/sipcounter"
	"sipcounter/internal/web"
)

const program = "sipcounter"

// Run wires the application together and blocks until termination.
func Run(cfg config.Config, buildVersion string) int {
	if version.Version == "" {
		version.Version = buildVersion
	}

	log, err := logging.FromStrings(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.WithError(err).Warn("invalid logging flags, using defaults")
	}

	if cfg.ShowHelp {
		// We delegate help rendering to the flag package in main.
		return 0
	}
	if cfg.ShowVersion {
		_, _ = io.WriteString(os.Stdout, version.Print(program)+"\n")
		return 0
	}

	log.WithFields(logrus.Fields{"version": version.Info(), "build": version.BuildContext()}).Info("starting " + program)

	counter, err := sipcounter.New(cfg.Counter)
	if err != nil {
		log.WithError(err).Error("invalid counter configuration")
		return 1
	}
	sink := ingest.NewSink(counter)

	// Prometheus registry and exporter metrics control.
	reg := prometheus.NewRegistry()
	reg.MustRegister(versioncollector.NewCollector(program))
	if !cfg.WebDisableExporterMetrics {
		reg.MustRegister(
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
			prometheus.NewGoCollector(),
		)
	}

	sipCollector := collector.NewSIPCollector(sink, cfg.CollectorInterval, log)
	sipCollector.MustRegister(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var wg sync.WaitGroup

	if in, ok := openInput(cfg, log); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer in.Close()

			err := in.read(ctx, sink, log)
			switch {
			case errors.Is(err, context.Canceled):
			case err != nil:
				log.WithError(err).WithField("input", in.name).Error("input failed")
			default:
				log.WithFields(logrus.Fields{"input": in.name, "stats": sink.Stats()}).Info("input finished")
			}
		}()
	}

	sipCollector.Start(ctx)

	rep := newReporter(sink, os.Stdout, log, cfg)
	if cfg.ReportInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep.run(ctx, cfg.ReportInterval)
		}()
	}

	srv := &web.Server{
		Logger:            log,
		Registry:          reg,
		TelemetryPath:     cfg.WebTelemetryPath,
		ListenAddrs:       cfg.WebListenAddresses,
		MaxRequests:       cfg.WebMaxRequests,
		DisableExpMetrics: cfg.WebDisableExporterMetrics,
		Sink:              sink,
		Depth:             cfg.ReportDepth,
		StreamInterval:    cfg.WebStreamInterval,
	}

	// Run HTTP server (blocks). When it returns, stop the background work.
	err = srv.Start(ctx)
	cancel()
	sipCollector.Stop()
	wg.Wait()

	rep.report(time.Now(), false)

	if err != nil {
		log.WithError(err).Error("http server error")
		// Non-zero to indicate runtime error.
		return 1
	}
	return 0
}

// input is an opened ingest source.
type input struct {
	name string
	r    io.ReadCloser
	fn   func(context.Context, io.Reader, *ingest.Sink, logrus.FieldLogger) error
}

func (in input) read(ctx context.Context, sink *ingest.Sink, log logrus.FieldLogger) error {
	return in.fn(ctx, in.r, sink, log)
}

func (in input) Close() error { return in.r.Close() }

func openInput(cfg config.Config, log logrus.FieldLogger) (input, bool) {
	switch {
	case cfg.InputFields == config.StdinPath:
		return input{name: "stdin", r: io.NopCloser(os.Stdin), fn: ingest.ReadFields}, true
	case cfg.InputFields != "":
		f, err := os.Open(cfg.InputFields)
		if err != nil {
			log.WithError(err).Error("failed to open fields input")
			return input{}, false
		}
		return input{name: cfg.InputFields, r: f, fn: ingest.ReadFields}, true
	case cfg.InputPcap != "":
		f, err := os.Open(cfg.InputPcap)
		if err != nil {
			log.WithError(err).Error("failed to open pcap input")
			return input{}, false
		}
		return input{name: cfg.InputPcap, r: f, fn: ingest.ReadPcap}, true
	default:
		log.Warn("no input configured, serving an empty counter")
		return input{}, false
	}
}
