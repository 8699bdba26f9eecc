// Package metrics records per-platform scraper call statistics. It is purely
// observational: nothing in the ranking path depends on its values and its
// methods never block beyond a mutex acquisition.
package metrics

import (
	"sync"
	"time"
)

// PlatformStats is a point-in-time view of one platform's counters.
type PlatformStats struct {
	Calls      int64
	Failures   int64
	AvgLatency time.Duration
}

// Service accumulates call counts, failure counts and a running average
// latency keyed by platform name.
type Service struct {
	mu    sync.Mutex
	stats map[string]*PlatformStats
}

// NewService creates an empty metrics service
func NewService() *Service {
	return &Service{
		stats: make(map[string]*PlatformStats),
	}
}

// RecordCall records one scraper call with its observed latency.
func (s *Service) RecordCall(platform string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.platform(platform)
	st.Calls++
	// Incremental mean: avg' = avg + (new - avg) / n
	st.AvgLatency += (latency - st.AvgLatency) / time.Duration(st.Calls)
}

// RecordFailure records one failed scraper call.
func (s *Service) RecordFailure(platform string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.platform(platform).Failures++
}

// Snapshot returns a copy of all per-platform stats.
func (s *Service) Snapshot() map[string]PlatformStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[string]PlatformStats, len(s.stats))
	for name, st := range s.stats {
		snap[name] = *st
	}
	return snap
}

func (s *Service) platform(name string) *PlatformStats {
	st, ok := s.stats[name]
	if !ok {
		st = &PlatformStats{}
		s.stats[name] = st
	}
	return st
}
