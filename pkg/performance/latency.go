package performance

import (
	"slices"
	"sync"
	"time"
)

// DefaultLatencyWindow is the number of samples a LatencyTracker keeps when
// NewLatencyTracker is given a non-positive size.
const DefaultLatencyWindow = 10000

// LatencyTracker keeps the most recent samples in a ring and reports
// percentiles over them. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
	count   int64
	min     time.Duration
	max     time.Duration
	sum     time.Duration
}

// NewLatencyTracker creates a tracker holding up to window samples.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &LatencyTracker{samples: make([]time.Duration, window)}
}

// Record records a latency sample
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples[lt.next] = d
	lt.next++
	if lt.next == len(lt.samples) {
		lt.next = 0
		lt.full = true
	}

	if lt.count == 0 || d < lt.min {
		lt.min = d
	}
	if d > lt.max {
		lt.max = d
	}
	lt.sum += d
	lt.count++
}

func (lt *LatencyTracker) window() []time.Duration {
	if lt.full {
		return lt.samples
	}
	return lt.samples[:lt.next]
}

// Percentile returns the p-th percentile (0-100) of the current window.
func (lt *LatencyTracker) Percentile(p float64) time.Duration {
	lt.mu.Lock()
	sorted := slices.Clone(lt.window())
	lt.mu.Unlock()

	slices.Sort(sorted)
	return percentile(sorted, p)
}

// GetPercentiles returns the 50th, 95th and 99th percentiles.
func (lt *LatencyTracker) GetPercentiles() (p50, p95, p99 time.Duration) {
	lt.mu.Lock()
	sorted := slices.Clone(lt.window())
	lt.mu.Unlock()

	slices.Sort(sorted)
	return percentile(sorted, 50), percentile(sorted, 95), percentile(sorted, 99)
}

// Summary returns the count, min, max and mean over every recorded sample,
// not only the current window.
func (lt *LatencyTracker) Summary() LatencySummary {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	s := LatencySummary{Count: lt.count, Min: lt.min, Max: lt.max}
	if lt.count > 0 {
		s.Mean = lt.sum / time.Duration(lt.count)
	}
	return s
}

// LatencySummary aggregates every sample a tracker has seen.
type LatencySummary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
