package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		stats.Record("validate", time.Duration(ms)*time.Millisecond, false)
	}

	snap := stats.Snapshot()
	require.Equal(t, 5, snap.Count)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.InDelta(t, 300, snap.AvgMs, 0.001)
	assert.InDelta(t, 300, snap.P50Ms, 0.001)
	assert.InDelta(t, 480, snap.P95Ms, 0.001)
	assert.InDelta(t, 496, snap.P99Ms, 0.001)
	assert.InDelta(t, 300, snap.Steps["validate"].AvgMs, 0.001)
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Now()
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }
	stats.Record("toc", 100*time.Millisecond, false)

	now = now.Add(2 * time.Minute)
	stats.Record("toc", 300*time.Millisecond, false)

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(300), snap.MinMs)
}

func TestStatsEmpty(t *testing.T) {
	assert.Equal(t, StatsSnapshot{}, NewStats(0).Snapshot())
}
