package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/ingest"
)

// Server exposes Prometheus metrics and the report API via HTTP.
type Server struct {
	Logger logrus.FieldLogger

	Registry          *prometheus.Registry
	TelemetryPath     string
	ListenAddrs       []string
	MaxRequests       int
	DisableExpMetrics bool

	// Sink backs the /api/v1 routes; they are not mounted when nil.
	Sink *ingest.Sink

	// Depth is the grouping depth used when a request does not set one.
	Depth int

	// StreamInterval is the push period of /api/v1/stream.
	StreamInterval time.Duration
}

// Handler builds the router. It applies defaults to s.
func (s *Server) Handler() http.Handler {
	if s.Registry == nil {
		s.Registry = prometheus.NewRegistry()
	}
	if s.TelemetryPath == "" {
		s.TelemetryPath = "/metrics"
	}
	if s.Depth == 0 {
		s.Depth = aggregate.DefaultDepth
	}
	if s.StreamInterval <= 0 {
		s.StreamInterval = 10 * time.Second
	}
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}

	handlerOpts := promhttp.HandlerOpts{}
	if s.MaxRequests > 0 {
		handlerOpts.MaxRequestsInFlight = s.MaxRequests
	}

	baseHandler := promhttp.HandlerFor(s.Registry, handlerOpts)
	var metricsHandler http.Handler = baseHandler

	// promhttp_ metrics are only registered if we wrap with InstrumentMetricHandler.
	if !s.DisableExpMetrics {
		metricsHandler = promhttp.InstrumentMetricHandler(s.Registry, baseHandler)
	}

	router := mux.NewRouter()
	router.Handle(s.TelemetryPath, metricsHandler).Methods("GET")

	if s.Sink != nil {
		api := router.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/links", s.getLinks).Methods("GET")
		api.HandleFunc("/top", s.getTop).Methods("GET")
		api.HandleFunc("/summary", s.getSummary).Methods("GET")
		api.HandleFunc("/report", s.getReport).Methods("GET")
		api.HandleFunc("/report.csv", s.getReportCSV).Methods("GET")
		api.HandleFunc("/stream", s.stream).Methods("GET")
	}

	return router
}

// Start launches HTTP servers for all configured listen addresses.
// It blocks until ctx is cancelled, then attempts a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler()

	errCh := make(chan error, len(s.ListenAddrs))
	servers := make([]*http.Server, 0, len(s.ListenAddrs))

	for _, addr := range s.ListenAddrs {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			shutdown(servers)
			return err
		}
		servers = append(servers, srv)

		s.Logger.WithFields(logrus.Fields{"addr": addr, "path": s.TelemetryPath}).Info("http server started")

		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if err == nil || err == http.ErrServerClosed {
				errCh <- nil
				return
			}
			errCh <- err
		}(srv, ln)
	}

	// Wait for shutdown or first error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			shutdown(servers)
			return err
		}
		// If one server exits cleanly unexpectedly, continue and wait for ctx.
		<-ctx.Done()
	}

	shutdown(servers)
	return nil
}

func shutdown(servers []*http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
}
