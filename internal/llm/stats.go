package llm

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	step       string
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates latency samples inside the window.
type StatsSnapshot struct {
	Count  int                      `json:"count"`
	Errors int                      `json:"errors"`
	MinMs  int64                    `json:"min_ms"`
	MaxMs  int64                    `json:"max_ms"`
	AvgMs  float64                  `json:"avg_ms"`
	P50Ms  float64                  `json:"p50_ms"`
	P95Ms  float64                  `json:"p95_ms"`
	P99Ms  float64                  `json:"p99_ms"`
	Steps  map[string]StepBreakdown `json:"steps,omitempty"`
}

// StepBreakdown is the per-step slice of a snapshot.
type StepBreakdown struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
}

// Stats tracks recent model call latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *Stats) Record(step string, d time.Duration, failed bool) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, step: step, durationMs: ms, failed: failed})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	steps := map[string]StepBreakdown{}
	var sum int64
	errs := 0
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			errs++
		}
		b := steps[sm.step]
		b.AvgMs = (b.AvgMs*float64(b.Count) + float64(sm.durationMs)) / float64(b.Count+1)
		b.Count++
		steps[sm.step] = b
	}
	slices.Sort(values)

	return StatsSnapshot{
		Count:  len(values),
		Errors: errs,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
		Steps:  steps,
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}
