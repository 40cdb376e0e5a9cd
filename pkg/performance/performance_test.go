package performance

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reclaim/pkg/testutil"
)

func TestLatencyTracker_Percentiles(t *testing.T) {
	lt := NewLatencyTracker(100)
	for i := 100; i >= 1; i-- {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	p50, p95, p99 := lt.GetPercentiles()
	assert.Equal(t, 51*time.Millisecond, p50)
	assert.Equal(t, 96*time.Millisecond, p95)
	assert.Equal(t, 100*time.Millisecond, p99)
	assert.Equal(t, 100*time.Millisecond, lt.Percentile(100))
	assert.Equal(t, time.Millisecond, lt.Percentile(0))

	s := lt.Summary()
	assert.EqualValues(t, 100, s.Count)
	assert.Equal(t, time.Millisecond, s.Min)
	assert.Equal(t, 100*time.Millisecond, s.Max)
	assert.Equal(t, 50500*time.Microsecond, s.Mean)
}

func TestLatencyTracker_WindowKeepsNewest(t *testing.T) {
	lt := NewLatencyTracker(3)
	for _, ms := range []int{500, 400, 1, 2, 3} {
		lt.Record(time.Duration(ms) * time.Millisecond)
	}
	assert.Equal(t, 3*time.Millisecond, lt.Percentile(100), "old samples rolled out of the window")
	assert.Equal(t, 500*time.Millisecond, lt.Summary().Max, "summary covers every sample")
}

func TestLatencyTracker_Empty(t *testing.T) {
	lt := NewLatencyTracker(0)
	p50, p95, p99 := lt.GetPercentiles()
	assert.Zero(t, p50+p95+p99)
	assert.Equal(t, LatencySummary{}, lt.Summary())
}

func TestLatencyTracker_Concurrent(t *testing.T) {
	lt := NewLatencyTracker(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				lt.Record(time.Microsecond)
				_ = lt.Percentile(50)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8000, lt.Summary().Count)
}

func TestResourceMonitor(t *testing.T) {
	rm, err := NewResourceMonitor()
	require.NoError(t, err)

	usage, err := rm.GetResourceUsage()
	require.NoError(t, err)
	assert.Positive(t, usage.MemoryRSS)
	assert.Positive(t, usage.GoroutineCount)
}

var allocSink [][]byte

func TestProfiler_AllocationDelta(t *testing.T) {
	p := NewProfiler(&ProfilerConfig{Name: "alloc", SampleInterval: 5 * time.Millisecond}, testutil.TestLogger(t))
	require.NoError(t, p.Start(context.Background()))

	for i := 0; i < 1000; i++ {
		allocSink = append(allocSink, make([]byte, 1024))
	}
	allocSink = nil
	testutil.AssertEventually(t, func() bool {
		usage, err := p.monitor.GetResourceUsage()
		return err == nil && usage.MemoryRSS > 0
	}, time.Second, "resource monitor never produced a sample")
	time.Sleep(30 * time.Millisecond)

	m, err := p.Stop()
	require.NoError(t, err)
	assert.Equal(t, "alloc", m.Name)
	assert.GreaterOrEqual(t, m.Mallocs, uint64(1000))
	assert.GreaterOrEqual(t, m.TotalAllocBytes, uint64(1000*1024))
	assert.Positive(t, m.Duration)
	assert.Positive(t, m.Samples)
	assert.Positive(t, m.PeakRSS)
	assert.Empty(t, m.CPUProfilePath)
}

func TestProfiler_WritesProfiles(t *testing.T) {
	dir := t.TempDir()
	p := NewProfiler(&ProfilerConfig{Name: "files", OutputDir: dir, CPUProfile: true, MemProfile: true}, nil)
	require.NoError(t, p.Start(context.Background()))

	m, err := p.Stop()
	require.NoError(t, err)
	require.NotEmpty(t, m.CPUProfilePath)
	require.NotEmpty(t, m.MemProfilePath)

	for _, path := range []string{m.CPUProfilePath, m.MemProfilePath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
