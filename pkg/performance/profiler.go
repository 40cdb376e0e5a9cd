// Package performance measures the cost of a workload: allocation and GC
// deltas from the Go runtime, process resources sampled with gopsutil, and
// latency percentiles. It can also write pprof CPU and heap profiles.
package performance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

// ProfilerConfig configures the profiler
type ProfilerConfig struct {
	Name string
	// OutputDir receives pprof files; empty disables both profiles.
	OutputDir  string
	CPUProfile bool
	MemProfile bool
	// SampleInterval sets how often process resources are sampled; zero
	// disables sampling.
	SampleInterval time.Duration
}

// DefaultProfilerConfig returns default configuration
func DefaultProfilerConfig(name string) *ProfilerConfig {
	return &ProfilerConfig{
		Name:           name,
		SampleInterval: 250 * time.Millisecond,
	}
}

// Metrics is what a profiled run cost.
type Metrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`

	// Runtime deltas between Start and Stop
	Mallocs         uint64        `json:"mallocs"`
	TotalAllocBytes uint64        `json:"total_alloc_bytes"`
	HeapAllocBytes  uint64        `json:"heap_alloc_bytes"`
	GCCount         uint32        `json:"gc_count"`
	GCPauseTotal    time.Duration `json:"gc_pause_total"`

	// Sampled resources
	Samples        int     `json:"samples"`
	PeakRSS        uint64  `json:"peak_rss"`
	PeakCPUPercent float64 `json:"peak_cpu_percent"`
	PeakGoroutines int     `json:"peak_goroutines"`

	// Files written
	CPUProfilePath string `json:"cpu_profile,omitempty"`
	MemProfilePath string `json:"mem_profile,omitempty"`
}

// Profiler measures one run between Start and Stop.
type Profiler struct {
	config  ProfilerConfig
	logger  *zap.Logger
	monitor *ResourceMonitor

	mu        sync.Mutex
	startTime time.Time
	startMem  runtime.MemStats
	metrics   Metrics
	cpuFile   *os.File
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewProfiler creates a new profiler
func NewProfiler(config *ProfilerConfig, logger *zap.Logger) *Profiler {
	if config == nil {
		config = DefaultProfilerConfig("default")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{
		config: *config,
		logger: logger.With(zap.String("profile", config.Name)),
	}
}

// Start records the runtime baseline, starts the CPU profile when enabled
// and begins sampling until ctx is done or Stop is called.
func (p *Profiler) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics = Metrics{Name: p.config.Name}

	if p.config.CPUProfile && p.config.OutputDir != "" {
		if err := p.startCPUProfile(); err != nil {
			return err
		}
	}

	if p.config.SampleInterval > 0 {
		monitor, err := NewResourceMonitor()
		if err != nil {
			p.logger.Warn("resource sampling disabled", zap.Error(err))
		} else {
			p.monitor = monitor
			sampleCtx, cancel := context.WithCancel(ctx)
			p.cancel = cancel
			p.wg.Add(1)
			go p.sample(sampleCtx)
		}
	}

	runtime.ReadMemStats(&p.startMem)
	p.startTime = time.Now()
	return nil
}

// Stop ends the run and returns its metrics.
func (p *Profiler) Stop() (*Metrics, error) {
	elapsed := time.Since(p.startTime)
	var end runtime.MemStats
	runtime.ReadMemStats(&end)

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	m := &p.metrics
	m.Duration = elapsed
	m.Mallocs = end.Mallocs - p.startMem.Mallocs
	m.TotalAllocBytes = end.TotalAlloc - p.startMem.TotalAlloc
	m.HeapAllocBytes = end.HeapAlloc
	m.GCCount = end.NumGC - p.startMem.NumGC
	m.GCPauseTotal = time.Duration(end.PauseTotalNs - p.startMem.PauseTotalNs)

	var firstErr error
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			firstErr = reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to close CPU profile")
		}
		p.cpuFile = nil
	}
	if p.config.MemProfile && p.config.OutputDir != "" {
		if err := p.writeHeapProfile(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	p.logger.Debug("profile stopped",
		zap.Duration("duration", m.Duration),
		zap.Uint64("mallocs", m.Mallocs),
		zap.Uint32("gc_count", m.GCCount),
		zap.Int("samples", m.Samples))

	out := *m
	return &out, firstErr
}

func (p *Profiler) sample(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			usage, err := p.monitor.GetResourceUsage()
			if err != nil {
				p.logger.Debug("resource sample failed", zap.Error(err))
				continue
			}
			p.mu.Lock()
			p.metrics.Samples++
			p.metrics.PeakRSS = max(p.metrics.PeakRSS, usage.MemoryRSS)
			p.metrics.PeakCPUPercent = max(p.metrics.PeakCPUPercent, usage.CPUPercent)
			p.metrics.PeakGoroutines = max(p.metrics.PeakGoroutines, usage.GoroutineCount)
			p.mu.Unlock()
		}
	}
}

func (p *Profiler) profilePath(kind string) (string, error) {
	if err := os.MkdirAll(p.config.OutputDir, 0o750); err != nil {
		return "", reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to create profile directory").
			WithDetail("dir", p.config.OutputDir)
	}
	return filepath.Join(p.config.OutputDir, fmt.Sprintf("%s_%s_%s.prof", kind, p.config.Name, time.Now().Format("20060102-150405"))), nil
}

func (p *Profiler) startCPUProfile() error {
	path, err := p.profilePath("cpu")
	if err != nil {
		return err
	}
	file, err := os.Create(path) //nolint:gosec // G304: path is built from configuration
	if err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to create CPU profile file").
			WithDetail("path", path)
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		_ = file.Close()
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to start CPU profiling")
	}
	p.cpuFile = file
	p.metrics.CPUProfilePath = path
	p.logger.Info("CPU profiling started", zap.String("file", path))
	return nil
}

func (p *Profiler) writeHeapProfile() error {
	path, err := p.profilePath("heap")
	if err != nil {
		return err
	}
	file, err := os.Create(path) //nolint:gosec // G304: path is built from configuration
	if err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to create memory profile file").
			WithDetail("path", path)
	}
	defer file.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(file); err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to write memory profile")
	}
	p.metrics.MemProfilePath = path
	p.logger.Info("memory profile saved", zap.String("file", path))
	return nil
}
