package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sipcounter/internal/aggregate"
	"sipcounter/internal/counter"
	"sipcounter/internal/ingest"
	"sipcounter/internal/link"
	"sipcounter/internal/report"
)

type linkResponse struct {
	Key    link.Key       `json:"key"`
	Link   string         `json:"link"`
	Total  int            `json:"total"`
	Counts counter.Record `json:"counts"`
}

type summaryResponse struct {
	Name         string           `json:"name"`
	Time         time.Time        `json:"time"`
	Links        int              `json:"links"`
	Total        int              `json:"total"`
	MessageTypes []string         `json:"message_types"`
	Directions   []link.Direction `json:"directions"`
	Counts       counter.Record   `json:"counts"`
	Stats        ingest.Stats     `json:"stats"`
}

func (s *Server) getLinks(w http.ResponseWriter, r *http.Request) {
	depth, ok := s.queryInt(w, r, "depth", s.Depth)
	if !ok {
		return
	}
	g, err := s.Sink.Snapshot().GroupBy(depth)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toLinks(g))
}

func (s *Server) getTop(w http.ResponseWriter, r *http.Request) {
	depth, ok := s.queryInt(w, r, "depth", s.Depth)
	if !ok {
		return
	}
	n, ok := s.queryInt(w, r, "n", 10)
	if !ok {
		return
	}
	g, err := s.Sink.Snapshot().MostCommon(n, depth)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toLinks(g))
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summary())
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	depth, ok := s.queryInt(w, r, "depth", s.Depth)
	if !ok {
		return
	}
	if err := aggregate.ValidDepth(depth); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := report.DefaultOptions()
	opts.Depth = depth
	opts.Title = r.URL.Query().Get("title")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.Table(w, s.Sink.Snapshot(), opts); err != nil {
		writeError(w, statusFor(err), err.Error())
	}
}

func (s *Server) getReportCSV(w http.ResponseWriter, r *http.Request) {
	depth, ok := s.queryInt(w, r, "depth", s.Depth)
	if !ok {
		return
	}
	if err := aggregate.ValidDepth(depth); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if err := report.CSV(w, s.Sink.Snapshot(), depth); err != nil {
		s.Logger.WithError(err).Warn("csv report failed")
	}
}

func (s *Server) summary() summaryResponse {
	snap := s.Sink.Snapshot()
	return summaryResponse{
		Name:         snap.Name(),
		Time:         time.Now().UTC(),
		Links:        snap.Len(),
		Total:        snap.Total(),
		MessageTypes: snap.MessageTypes(),
		Directions:   snap.Directions(),
		Counts:       snap.Summary(aggregate.SummaryTitle)[0].Record,
		Stats:        s.Sink.Stats(),
	}
}

func toLinks(g aggregate.Grouped) []linkResponse {
	out := make([]linkResponse, 0, len(g))
	for _, grp := range g {
		out = append(out, linkResponse{
			Key:    grp.Key,
			Link:   grp.Key.Join("-"),
			Total:  grp.Record.Total(),
			Counts: grp.Record,
		})
	}
	return out
}

func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+": "+raw)
		return 0, false
	}
	return v, true
}

func statusFor(err error) int {
	if errors.Is(err, aggregate.ErrInvalidDepth) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
