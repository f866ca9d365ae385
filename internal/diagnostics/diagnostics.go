// Package diagnostics aggregates the per-run counters spec §7 names, the
// way the teacher's App struct accumulated status for display while the
// pipeline ran.
package diagnostics

import "sync"

// Summary is the per-run diagnostic counters spec §7 requires: API call
// volume, cache hit/miss breakdown, translation failures, and region
// filtering yield.
type Summary struct {
	mu sync.Mutex

	counts Counts
}

// Counts is a point-in-time, lock-free copy of a Summary's counters.
type Counts struct {
	APICalls            int
	CacheHitsMemory     int
	CacheHitsPersistent int
	TranslationErrors   int
	RegionsFiltered     int
	RegionsKept         int
}

func New() *Summary { return &Summary{} }

func (s *Summary) IncAPICalls()             { s.mu.Lock(); s.counts.APICalls++; s.mu.Unlock() }
func (s *Summary) IncCacheHitMemory()       { s.mu.Lock(); s.counts.CacheHitsMemory++; s.mu.Unlock() }
func (s *Summary) IncCacheHitPersistent()   { s.mu.Lock(); s.counts.CacheHitsPersistent++; s.mu.Unlock() }
func (s *Summary) IncTranslationError()     { s.mu.Lock(); s.counts.TranslationErrors++; s.mu.Unlock() }
func (s *Summary) AddRegionsFiltered(n int) { s.mu.Lock(); s.counts.RegionsFiltered += n; s.mu.Unlock() }
func (s *Summary) AddRegionsKept(n int)     { s.mu.Lock(); s.counts.RegionsKept += n; s.mu.Unlock() }

// Snapshot returns a copy of the counters safe to read without further
// synchronization.
func (s *Summary) Snapshot() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}
