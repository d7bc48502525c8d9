package validation

import (
	"slices"
	"sync"
	"time"
)

// Outcome classifies a finished validation call.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeInvalid
	OutcomeFailed
)

type call struct {
	at      time.Time
	ms      int64
	outcome Outcome
}

// StatsSnapshot aggregates the calls currently in the window.
type StatsSnapshot struct {
	Count   int     `json:"count"`
	Valid   int     `json:"valid"`
	Invalid int     `json:"invalid"`
	Failed  int     `json:"failed"`
	MinMs   int64   `json:"min_ms"`
	MaxMs   int64   `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
}

// Stats keeps validation calls for a rolling window.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		calls:  make([]call, 0, 256),
		window: window,
		now:    time.Now,
	}
}

// Record adds one call. Negative durations count as zero.
func (s *Stats) Record(ms int64, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.calls = append(s.calls, call{at: now, ms: max(ms, 0), outcome: outcome})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	if len(s.calls) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{Count: len(s.calls)}
	durations := make([]int64, len(s.calls))
	var total int64
	for i, c := range s.calls {
		durations[i] = c.ms
		total += c.ms
		switch c.outcome {
		case OutcomeValid:
			snap.Valid++
		case OutcomeInvalid:
			snap.Invalid++
		default:
			snap.Failed++
		}
	}
	slices.Sort(durations)

	snap.MinMs = durations[0]
	snap.MaxMs = durations[len(durations)-1]
	snap.AvgMs = float64(total) / float64(len(durations))
	snap.P50Ms = quantile(durations, 0.50)
	snap.P95Ms = quantile(durations, 0.95)
	snap.P99Ms = quantile(durations, 0.99)
	return snap
}

// expireLocked drops calls older than the window. Calls are appended in
// time order, so the expired ones form a prefix.
func (s *Stats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// quantile interpolates linearly between the closest ranks of a sorted
// slice.
func quantile(sorted []int64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return float64(sorted[0])
	case q >= 1:
		return float64(sorted[len(sorted)-1])
	}
	pos := float64(len(sorted)-1) * q
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
