package simulation

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/reclaim/pkg/config"
	"github.com/ajitpratap0/reclaim/pkg/logger"
	"github.com/ajitpratap0/reclaim/pkg/metrics"
	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
	"github.com/ajitpratap0/reclaim/pkg/testutil"
)

func testConfig(kind string, workers, frames, objects int) Config {
	pc := config.DefaultPoolConfig("p")
	pc.Kind = kind
	return Config{
		Pool: pc,
		Workload: config.WorkloadConfig{
			Workers:         workers,
			Frames:          frames,
			ObjectsPerFrame: objects,
			PayloadBytes:    16,
		},
		Verify: true,
	}
}

func TestRun_Stack(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	rep, err := Run(ctx, testConfig(config.KindStack, 1, 10, 8), testutil.TestLogger(t))
	require.NoError(t, err)

	assert.False(t, rep.Interrupted)
	assert.EqualValues(t, 10, rep.Frames)
	assert.EqualValues(t, 80, rep.Rents)
	assert.EqualValues(t, 8, rep.Creates)
	assert.InDelta(t, 0.9, rep.ReuseRate, 1e-9)
	require.Len(t, rep.Pools, 1)
	assert.Equal(t, "p-w0", rep.Pools[0].Name)
	assert.Equal(t, 8, rep.Pools[0].Held)
	assert.EqualValues(t, 10, rep.Latency.Count)
	assert.NotNil(t, rep.Profile)
}

func TestRun_FixedDropsOverflow(t *testing.T) {
	cfg := testConfig(config.KindFixed, 1, 10, 8)
	cfg.Pool.Capacity = 4

	rep, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	// 8 on the first frame, then the 4 that did not fit on every later one.
	assert.EqualValues(t, 8+4*9, rep.Creates)
	assert.Equal(t, 4, rep.Pools[0].Held)
	assert.Equal(t, 4, rep.Pools[0].Capacity)
}

func TestRun_TieredSharesOnePool(t *testing.T) {
	cfg := testConfig(config.KindTiered, 4, 20, 8)
	registry := metrics.NewRegistry()
	cfg.Registry = registry

	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	rep, err := Run(ctx, cfg, testutil.TestLogger(t))
	require.NoError(t, err)

	assert.EqualValues(t, 4*20, rep.Frames)
	assert.EqualValues(t, 4*8, rep.Creates, "each worker creates once, then reuses its local cache")
	require.Len(t, rep.Pools, 1)
	assert.Equal(t, 4, rep.Pools[0].Locals)
	assert.Equal(t, 32, rep.Pools[0].Held, "locals flushed to the shared tier")
	assert.Equal(t, 1, registry.Len())
}

func TestRun_Prewarm(t *testing.T) {
	cfg := testConfig(config.KindStack, 1, 3, 8)
	cfg.Pool.Prewarm = 8

	rep, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 8, rep.Creates, "prewarmed particles count as creates")
	assert.InDelta(t, 1-8.0/24, rep.ReuseRate, 1e-9)
	assert.Equal(t, 8, rep.Pools[0].Held)
}

func TestRun_RejectEvery(t *testing.T) {
	cfg := testConfig(config.KindStack, 1, 5, 4)
	cfg.Workload.RejectEvery = 2

	rep, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 10, rep.Rejected)
	assert.EqualValues(t, 4+2*4, rep.Creates)
}

func TestRun_Compression(t *testing.T) {
	cfg := testConfig(config.KindTiered, 2, 5, 8)
	cfg.Compression = config.CompressionConfig{Enabled: true, Algorithm: "zstd", Level: "fastest"}
	registry := metrics.NewRegistry()
	cfg.Registry = registry

	rep, err := Run(context.Background(), cfg, testutil.TestLogger(t))
	require.NoError(t, err)
	require.NotNil(t, rep.Compression)
	assert.Equal(t, "zstd", rep.Compression.Algorithm)
	assert.EqualValues(t, 2*5*8*16, rep.Compression.BytesIn)
	assert.Positive(t, rep.Compression.BytesOut)
	assert.Greater(t, rep.Compression.Ratio, 1.0)

	names := make([]string, 0, registry.Len())
	for _, s := range registry.Snapshot() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"p", "p-zstd-encoder", "p-zstd-decoder"}, names)
}

func TestRun_CompressionUnknownAlgorithm(t *testing.T) {
	cfg := testConfig(config.KindStack, 1, 1, 1)
	cfg.Compression = config.CompressionConfig{Enabled: true, Algorithm: "brotli"}

	_, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeConfig))
}

func TestRun_TimeoutInterrupts(t *testing.T) {
	cfg := testConfig(config.KindTiered, 2, 1<<30, 4)
	cfg.Workload.Timeout = 20 * time.Millisecond

	rep, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, rep.Interrupted)
	assert.Less(t, rep.Frames, int64(2*(1<<30)))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, testConfig(config.KindStack, 2, 10, 4), nil)
	require.NoError(t, err)
	assert.True(t, rep.Interrupted)
	assert.Zero(t, rep.Frames)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig("bogus", 1, 1, 1)
	_, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeConfig))

	cfg = testConfig(config.KindFixed, 1, 0, 1)
	_, err = Run(context.Background(), cfg, nil)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeConfig))
}

func TestRun_RegistersWorkerPools(t *testing.T) {
	cfg := testConfig(config.KindFixed, 3, 2, 2)
	registry := metrics.NewRegistry()
	cfg.Registry = registry

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	snap := registry.Snapshot()
	require.Len(t, snap, 3)
	for i, s := range snap {
		assert.Equal(t, fmt.Sprintf("p-w%d", i), s.Name)
		assert.Equal(t, 2, s.Stats.Held)
	}
}

func TestFromBench(t *testing.T) {
	bc := config.NewBenchConfig("bench")
	bc.Pool.Name = ""
	bc.Compression.Enabled = true

	cfg := FromBench(bc)
	assert.Equal(t, "bench", cfg.Pool.Name)
	assert.Equal(t, bc.Workload, cfg.Workload)
	assert.True(t, cfg.Compression.Enabled)
	assert.Equal(t, bc.Observability.SampleInterval, cfg.SampleInterval)
}

func TestReport_WriteText(t *testing.T) {
	cfg := testConfig(config.KindStack, 1, 2, 2)
	cfg.Compression = config.CompressionConfig{Enabled: true, Algorithm: "s2"}
	rep, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "p (stack, 1 workers)")
	assert.Contains(t, out, "reuse rate")
	assert.Contains(t, out, "compression")
	assert.Contains(t, out, "pool p-w0")
	assert.NotContains(t, out, "interrupted")
}

func TestParticlePolicy(t *testing.T) {
	p := particlePolicy{rejectEvery: 3, counters: &policyCounters{}}
	pt, err := p.Create(policy.With1(4))
	require.NoError(t, err)
	assert.Len(t, pt.Payload, 4)

	pt.step(7)
	assert.Equal(t, 1, pt.Age)
	assert.NotZero(t, pt.VX)

	assert.True(t, p.OnReturn(pt))
	assert.Zero(t, pt.Age)
	assert.True(t, p.OnReturn(pt))
	assert.False(t, p.OnReturn(pt), "third return refused")
	assert.EqualValues(t, 1, p.counters.rejected.Load())

	pt.Payload = pt.Payload[:1]
	p.OnRent(pt, policy.With1(4))
	assert.Len(t, pt.Payload, 4)
}

func TestRun_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, err := Run(context.Background(), testConfig(config.KindTiered, 2, 3, 2), nil)
	require.NoError(t, err)

	ended := recorder.Ended()
	names := make([]string, 0, len(ended))
	for _, span := range ended {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"simulation.worker", "simulation.worker", "simulation.run"}, names)
}

func TestRun_LogFieldsFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.WithValue(context.Background(), logger.RunIDKey, "run-7")

	_, err := Run(ctx, testConfig(config.KindTiered, 2, 3, 4), zap.New(core))
	require.NoError(t, err)

	finished := logs.FilterMessage("worker finished").All()
	require.Len(t, finished, 2)
	workers := map[int64]bool{}
	for _, e := range finished {
		fields := e.ContextMap()
		assert.Equal(t, "run-7", fields["run_id"])
		assert.Equal(t, "p", fields["pool"])
		workers[fields["worker"].(int64)] = true

		keys := map[string]int{}
		for _, f := range e.Context {
			keys[f.Key]++
		}
		for k, n := range keys {
			assert.Equal(t, 1, n, "field %q repeated", k)
		}
	}
	assert.Equal(t, map[int64]bool{0: true, 1: true}, workers)

	started := logs.FilterMessage("run started").All()
	require.Len(t, started, 1)
	assert.Equal(t, "run-7", started[0].ContextMap()["run_id"])
	assert.Equal(t, config.KindTiered, started[0].ContextMap()["kind"])
}
