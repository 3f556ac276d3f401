package ingest

import (
	"sync"

	"sipcounter/internal/classify"
	"sipcounter/internal/sipcounter"
)

// Stats are the ingest tallies since the sink was created.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Ignored  uint64 `json:"ignored"`
	Skipped  uint64 `json:"skipped"`
}

// Sink serialises access to a single counter. Readers never touch the live
// counter: they work on snapshots.
type Sink struct {
	mu      sync.Mutex
	counter *sipcounter.Counter
	stats   Stats
}

func NewSink(c *sipcounter.Counter) *Sink {
	return &Sink{counter: c}
}

// Observe counts obs and returns 1 when it was accepted, 0 when a filter
// ignored it.
func (s *Sink) Observe(obs classify.Observation) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.counter.Add(obs)
	if n > 0 {
		s.stats.Accepted++
	} else {
		s.stats.Ignored++
	}
	return n
}

// Skip records an input record that could not be turned into an
// observation.
func (s *Sink) Skip() {
	s.mu.Lock()
	s.stats.Skipped++
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the counter.
func (s *Sink) Snapshot() *sipcounter.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.Clone()
}

// Reset returns a copy of the counter and clears the live one, starting a
// new sampling period. Stats are not reset.
func (s *Sink) Reset() *sipcounter.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.counter.Clone()
	s.counter.Clear()
	return snap
}

// Stats returns the current tallies.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
