// Package metrics exports pool statistics to Prometheus and OpenTelemetry.
//
// # Overview
//
// Pools never touch metrics on Rent or Return. Instead a Registry holds
// named pool.StatsSource values and every exporter reads Stats() at
// collection time:
//   - PoolCollector implements prometheus.Collector
//   - RegisterOTel registers observable instruments on an otel Meter
//   - Timer and ThroughputTracker measure the code driving the pools
//
// # Basic Usage
//
//	reg := metrics.NewRegistry()
//	reg.Add("particles", particles)
//	prometheus.MustRegister(metrics.NewPoolCollector(reg))
//
//	// or, with OpenTelemetry
//	if err := metrics.RegisterOTel(otel.Meter("reclaim"), reg); err != nil {
//	    return err
//	}
//
// # Metric Types
//
// Gauge: reclaim_pool_held, reclaim_pool_capacity
// Counter: reclaim_pool_created_total, reclaim_pool_reused_total,
// reclaim_pool_rejected_total, reclaim_pool_dropped_total
//
// The counters only move when the pools are built with -tags pooldebug.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/reclaim/pkg/pool"
)

const namespace = "reclaim"

// Registry is a concurrency-safe set of named stats sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]pool.StatsSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]pool.StatsSource)}
}

// Add registers src under name, replacing any previous source with that name.
func (r *Registry) Add(name string, src pool.StatsSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = src
}

// Remove unregisters name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Sample is one source's stats under its registered name.
type Sample struct {
	Name  string
	Stats pool.Stats
}

// Snapshot reads every source, sorted by name.
func (r *Registry) Snapshot() []Sample {
	r.mu.RLock()
	out := make([]Sample, 0, len(r.sources))
	for name, src := range r.sources {
		out = append(out, Sample{Name: name, Stats: src.Stats()})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PoolCollector is a prometheus.Collector over a Registry.
type PoolCollector struct {
	registry *Registry

	held     *prometheus.Desc
	capacity *prometheus.Desc
	created  *prometheus.Desc
	reused   *prometheus.Desc
	rejected *prometheus.Desc
	dropped  *prometheus.Desc
}

// NewPoolCollector creates a collector reporting every source in registry.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewPoolCollector(pools))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func NewPoolCollector(registry *Registry) *PoolCollector {
	labels := []string{"pool", "kind"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &PoolCollector{
		registry: registry,
		held:     desc("held", "Objects currently stored by the pool"),
		capacity: desc("capacity", "Maximum number of objects the pool stores"),
		created:  desc("created_total", "Objects created because the pool was empty"),
		reused:   desc("reused_total", "Rents served from pool storage"),
		rejected: desc("rejected_total", "Returned objects refused by the policy"),
		dropped:  desc("dropped_total", "Returned objects dropped because storage was full"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.held
	ch <- c.capacity
	ch <- c.created
	ch <- c.reused
	ch <- c.rejected
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.registry.Snapshot() {
		kind := s.Stats.Kind
		ch <- prometheus.MustNewConstMetric(c.held, prometheus.GaugeValue, float64(s.Stats.Held), s.Name, kind)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Stats.Capacity), s.Name, kind)
		ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(s.Stats.Created), s.Name, kind)
		ch <- prometheus.MustNewConstMetric(c.reused, prometheus.CounterValue, float64(s.Stats.Reused), s.Name, kind)
		ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Stats.RejectedPolicy), s.Name, kind)
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Stats.RejectedFull), s.Name, kind)
	}
}

// FrameThroughput is the most recent frames-per-second reading of each
// workload, set by ThroughputTracker.GetAndReset.
var FrameThroughput = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "frames_per_second",
		Help:      "Current throughput in frames per second",
	},
	[]string{"workload"},
)

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
//
// Example:
//
//	timer := metrics.NewTimer("prewarm")
//	p.Prewarm(1024)
//	logger.Info("prewarmed", zap.Duration("duration", timer.Stop()))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name given to NewTimer.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks frames per second over time windows. Safe for
// concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	workload  string
}

// NewThroughputTracker creates a tracker labelled with workload.
func NewThroughputTracker(workload string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		workload:  workload,
	}
}

// Increment adds n to the frame count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset returns frames per second since the last reset, publishes it
// to FrameThroughput and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	FrameThroughput.WithLabelValues(t.workload).Set(throughput)

	return throughput
}
