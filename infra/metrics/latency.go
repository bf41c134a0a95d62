package metrics

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// LatencyStats counts durations in whole-microsecond buckets and reports
// exact percentiles over them.
type LatencyStats struct {
	mu      sync.Mutex
	buckets map[int64]uint64
	total   uint64
}

func NewLatencyStats() *LatencyStats {
	return &LatencyStats{buckets: make(map[int64]uint64)}
}

// Record rounds d up to the next microsecond.
func (s *LatencyStats) Record(d time.Duration) {
	us := (d.Nanoseconds() + 999) / 1000
	s.mu.Lock()
	s.buckets[us]++
	s.total++
	s.mu.Unlock()
}

func (s *LatencyStats) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Percentiles returns, for each p in ps, the smallest bucket at which the
// cumulative count reaches p percent of the total.
func (s *LatencyStats) Percentiles(ps ...float64) map[float64]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[float64]time.Duration, len(ps))
	if s.total == 0 {
		return out
	}

	keys := make([]int64, 0, len(s.buckets))
	for us := range s.buckets {
		keys = append(keys, us)
	}
	slices.Sort(keys)

	var cumulative uint64
	for _, us := range keys {
		cumulative += s.buckets[us]
		for _, p := range ps {
			if _, done := out[p]; done {
				continue
			}
			if float64(cumulative) >= float64(s.total)*p/100 {
				out[p] = time.Duration(us) * time.Microsecond
			}
		}
		if len(out) == len(ps) {
			break
		}
	}
	return out
}

// Summary renders p50, p90 and p99 as "p50=3us, p90=5us, p99=12us".
func (s *LatencyStats) Summary() string {
	ps := []float64{50, 90, 99}
	got := s.Percentiles(ps...)
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if d, ok := got[p]; ok {
			parts = append(parts, fmt.Sprintf("p%g=%dus", p, d.Microseconds()))
		}
	}
	return strings.Join(parts, ", ")
}
