// Package simulation drives a pool with a frame loop: every worker rents a
// batch of particles per frame, steps them, optionally compresses their
// payloads and returns them. It is what `reclaim bench` runs.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/reclaim/pkg/compression"
	"github.com/ajitpratap0/reclaim/pkg/config"
	"github.com/ajitpratap0/reclaim/pkg/containers"
	"github.com/ajitpratap0/reclaim/pkg/logger"
	"github.com/ajitpratap0/reclaim/pkg/metrics"
	"github.com/ajitpratap0/reclaim/pkg/performance"
	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/pool"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

const tracerName = "github.com/ajitpratap0/reclaim/internal/simulation"

// Config describes one run.
type Config struct {
	Pool        config.PoolConfig
	Workload    config.WorkloadConfig
	Compression config.CompressionConfig

	// Registry receives every pool of the run under its name; nil skips
	// registration.
	Registry *metrics.Registry
	// Verify checks that no particle is handed out twice within a frame.
	Verify bool

	// SampleInterval, ProfileDir, CPUProfile and MemProfile configure the
	// profiler wrapped around the run.
	SampleInterval time.Duration
	ProfileDir     string
	CPUProfile     bool
	MemProfile     bool
}

// FromBench builds a run Config from a loaded BenchConfig.
func FromBench(bc *config.BenchConfig) Config {
	pc := bc.Pool
	if pc.Name == "" {
		pc.Name = bc.Name
	}
	return Config{
		Pool:           pc,
		Workload:       bc.Workload,
		Compression:    bc.Compression,
		SampleInterval: bc.Observability.SampleInterval,
	}
}

// ErrDuplicateRent is returned by Run when Verify is set and a pool hands out
// the same particle twice in one frame.
var ErrDuplicateRent = reclaimerrors.New(reclaimerrors.ErrorTypeInternal, "particle rented twice in one frame")

type particlePool interface {
	pool.Renter[*Particle]
	pool.StatsSource
}

// lane is one worker's view of the pool under test.
type lane struct {
	renter  particlePool
	publish func()
	finish  func()
}

type run struct {
	cfg     Config
	base    *zap.Logger // caller's logger, fields are added from ctx
	poolLog *zap.Logger
	logger  *zap.Logger
	policy  particlePolicy
	shared  *pool.Tiered[*Particle, policy.Args1[int], particlePolicy]
	owned   []pool.StatsSource
	codec   compression.Compressor
	latency *performance.LatencyTracker
	tput    *metrics.ThroughputTracker

	frames   atomic.Int64
	rents    atomic.Int64
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
}

// Run executes the workload described by cfg. A run stopped by ctx or by
// Workload.Timeout is not an error: the report is marked Interrupted.
//
// Log fields come from ctx through logger.Fields, so a run ID set by the
// caller with logger.RunIDKey appears on every run and worker entry.
func Run(ctx context.Context, cfg Config, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Pool.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Workload.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workload.GetWorkers()
	base := log
	// pools add their own name and kind
	poolLog := base.With(logger.Fields(ctx)...)
	ctx = context.WithValue(ctx, logger.PoolKey, cfg.Pool.Name)
	log = base.With(logger.Fields(ctx)...).With(zap.String("kind", cfg.Pool.Kind))

	r := &run{
		cfg:     cfg,
		base:    base,
		poolLog: poolLog,
		logger:  log,
		policy: particlePolicy{
			rejectEvery: int64(cfg.Workload.RejectEvery),
			counters:    &policyCounters{},
		},
		latency: performance.NewLatencyTracker(performance.DefaultLatencyWindow),
		tput:    metrics.NewThroughputTracker(cfg.Pool.Name),
	}

	if cfg.Compression.Enabled {
		codec, err := newCodec(cfg.Compression, log)
		if err != nil {
			return nil, err
		}
		r.codec = codec
		if reporter, ok := codec.(compression.PoolReporter); ok {
			for name, src := range reporter.Pools() {
				r.register(cfg.Pool.Name+"-"+name, src)
			}
		}
	}

	lanes, err := r.buildLanes(workers)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if cfg.Workload.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Workload.Timeout)
		defer cancel()
	}

	runCtx, span := otel.Tracer(tracerName).Start(runCtx, "simulation.run",
		trace.WithAttributes(
			attribute.String("pool.name", cfg.Pool.Name),
			attribute.String("pool.kind", cfg.Pool.Kind),
			attribute.Int("workers", workers),
		))
	defer span.End()

	profiler := performance.NewProfiler(&performance.ProfilerConfig{
		Name:           cfg.Pool.Name,
		OutputDir:      cfg.ProfileDir,
		CPUProfile:     cfg.CPUProfile,
		MemProfile:     cfg.MemProfile,
		SampleInterval: cfg.SampleInterval,
	}, log)
	if err := profiler.Start(runCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profiler failed")
		return nil, err
	}

	if cfg.SampleInterval > 0 {
		stop := r.reportThroughput(runCtx, cfg.SampleInterval)
		defer stop()
	}

	log.Info("run started",
		zap.Int("workers", workers),
		zap.Int("frames", cfg.Workload.Frames),
		zap.Int("objects_per_frame", cfg.Workload.ObjectsPerFrame))

	g, gctx := errgroup.WithContext(runCtx)
	for i, l := range lanes {
		g.Go(func() error {
			defer l.finish()
			return r.work(gctx, i, l)
		})
	}
	runErr := g.Wait()

	perf, profErr := profiler.Stop()
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "worker failed")
		return nil, runErr
	}
	if profErr != nil {
		log.Warn("profile incomplete", zap.Error(profErr))
	}

	report := r.report(workers, perf)
	report.Interrupted = runCtx.Err() != nil
	span.SetAttributes(
		attribute.Int64("frames", report.Frames),
		attribute.Int64("creates", report.Creates),
		attribute.Bool("interrupted", report.Interrupted),
	)
	log.Info("run finished",
		zap.Int64("frames", report.Frames),
		zap.Duration("elapsed", report.Elapsed),
		zap.Float64("frames_per_second", report.FramesPerSecond),
		zap.Bool("interrupted", report.Interrupted))
	return report, nil
}

// reportThroughput publishes frames per second every interval until the
// returned stop function is called.
func (r *run) reportThroughput(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.logger.Debug("throughput",
					zap.Float64("frames_per_second", r.tput.GetAndReset()),
					zap.Int64("frames", r.frames.Load()))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func newCodec(cc config.CompressionConfig, log *zap.Logger) (compression.Compressor, error) {
	alg, err := compression.ParseAlgorithm(cc.Algorithm)
	if err != nil {
		return nil, err
	}
	level, err := compression.ParseLevel(cc.Level)
	if err != nil {
		return nil, err
	}
	cfg := compression.DefaultConfig()
	cfg.Algorithm = alg
	cfg.Level = level
	cfg.Logger = log
	return compression.NewCompressor(cfg)
}

func (r *run) register(name string, src pool.StatsSource) {
	if r.cfg.Registry != nil {
		r.cfg.Registry.Add(name, src)
	}
}

func (r *run) options(name string) []pool.Option {
	opts := []pool.Option{pool.WithName(name), pool.WithLogger(r.poolLog)}
	if r.cfg.Pool.SharedRing {
		opts = append(opts, pool.WithSharedRing())
	}
	return opts
}

// buildLanes creates the pools of the run. A tiered run shares one pool and
// gives each worker a Local; stack and fixed runs give each worker its own
// pool, since neither is safe for concurrent use.
func (r *run) buildLanes(workers int) ([]lane, error) {
	pc := r.cfg.Pool
	ctx := policy.With1(r.cfg.Workload.PayloadBytes)
	lanes := make([]lane, 0, workers)

	if pc.Kind == config.KindTiered {
		shared, err := pool.NewTiered[*Particle](r.policy, ctx, pc.LocalCapacity, pc.SharedCapacity, r.options(pc.Name)...)
		if err != nil {
			return nil, err
		}
		if _, err := shared.Prewarm(pc.Prewarm); err != nil {
			return nil, err
		}
		r.shared = shared
		r.register(pc.Name, shared)
		for i := 0; i < workers; i++ {
			local := shared.Local()
			lanes = append(lanes, lane{
				renter: localLane{Local: local, shared: shared},
				finish: func() { local.Flush() },
			})
		}
		return lanes, nil
	}

	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("%s-w%d", pc.Name, i)
		var (
			p   particlePool
			err error
		)
		switch pc.Kind {
		case config.KindStack:
			var s *pool.Stack[*Particle, policy.Args1[int], particlePolicy]
			if s, err = pool.NewStack[*Particle](r.policy, ctx, pc.InitialCapacity, pc.MaxCapacity, r.options(name)...); err == nil {
				_, err = s.Prewarm(pc.Prewarm)
				p = s
			}
		case config.KindFixed:
			var f *pool.Fixed[*Particle, policy.Args1[int], particlePolicy]
			if f, err = pool.NewFixed[*Particle](r.policy, ctx, pc.Capacity, r.options(name)...); err == nil {
				_, err = f.Prewarm(pc.Prewarm)
				p = f
			}
		}
		if err != nil {
			return nil, err
		}

		// A single-goroutine pool cannot be read by a scraper while its
		// worker runs, so the registry sees a copy published per frame.
		published := &publishedStats{}
		published.publish(p.Stats())
		r.register(name, published)
		r.owned = append(r.owned, published)
		publish := func() { published.publish(p.Stats()) }
		lanes = append(lanes, lane{renter: p, publish: publish, finish: publish})
	}
	return lanes, nil
}

func (r *run) work(ctx context.Context, id int, l lane) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "simulation.worker",
		trace.WithAttributes(attribute.Int("worker", id)))
	ctx = context.WithValue(ctx, logger.WorkerKey, id)
	log := r.base.With(logger.Fields(ctx)...)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "worker failed")
			log.Warn("worker stopped", zap.Error(err))
		}
		span.End()
	}()

	n := r.cfg.Workload.ObjectsPerFrame
	held := make([]*Particle, 0, n)

	var scratch *pool.Stack[*[]byte, policy.Args1[int], containers.SlicePolicy[byte]]
	if r.codec != nil {
		frameBytes := n * r.cfg.Workload.PayloadBytes
		if scratch, err = containers.NewSlicePool[byte](frameBytes, 2*frameBytes); err != nil {
			return err
		}
	}
	var seen *pool.Stack[map[*Particle]struct{}, policy.Args1[int], containers.SetPolicy[*Particle]]
	if r.cfg.Verify {
		if seen, err = containers.NewSetPool[*Particle](n); err != nil {
			return err
		}
	}

	for frame := 0; frame < r.cfg.Workload.Frames; frame++ {
		if ctx.Err() != nil {
			return nil
		}
		start := time.Now()

		for i := 0; i < n; i++ {
			pt, err := l.renter.Rent()
			if err != nil {
				r.releaseAll(l, held)
				return err
			}
			pt.step(id*n + i)
			held = append(held, pt)
		}
		r.rents.Add(int64(n))

		if seen != nil {
			if err := pool.Using[map[*Particle]struct{}](seen, func(set map[*Particle]struct{}) error {
				for _, pt := range held {
					if _, dup := set[pt]; dup {
						return ErrDuplicateRent
					}
					set[pt] = struct{}{}
				}
				return nil
			}); err != nil {
				r.releaseAll(l, held)
				return err
			}
		}

		if scratch != nil {
			if err := r.compressFrame(scratch, held); err != nil {
				r.releaseAll(l, held)
				return err
			}
		}

		held = r.releaseAll(l, held)
		if l.publish != nil {
			l.publish()
		}
		r.latency.Record(time.Since(start))
		r.frames.Add(1)
		r.tput.Increment(1)
	}
	log.Debug("worker finished", zap.Int("frames", r.cfg.Workload.Frames))
	return nil
}

func (r *run) compressFrame(scratch pool.Renter[*[]byte], held []*Particle) error {
	return pool.Using(scratch, func(buf *[]byte) error {
		for _, pt := range held {
			*buf = append(*buf, pt.Payload...)
		}
		out, err := r.codec.Compress(*buf)
		if err != nil {
			return err
		}
		r.bytesIn.Add(int64(len(*buf)))
		r.bytesOut.Add(int64(len(out)))
		return nil
	})
}

func (r *run) releaseAll(l lane, held []*Particle) []*Particle {
	for i, pt := range held {
		l.renter.Return(pt)
		held[i] = nil
	}
	return held[:0]
}

// localLane rents through a worker's Local and reports the shared pool.
type localLane struct {
	*pool.Local[*Particle, policy.Args1[int], particlePolicy]
	shared *pool.Tiered[*Particle, policy.Args1[int], particlePolicy]
}

func (l localLane) Stats() pool.Stats {
	return l.shared.Stats()
}

type publishedStats struct {
	mu sync.Mutex
	s  pool.Stats
}

func (p *publishedStats) publish(s pool.Stats) {
	p.mu.Lock()
	p.s = s
	p.mu.Unlock()
}

func (p *publishedStats) Stats() pool.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}
