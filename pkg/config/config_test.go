package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
	"github.com/ajitpratap0/reclaim/pkg/testutil"
)

type LoaderSuite struct {
	testutil.FileSuite
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) TestLoadOverridesDefaults() {
	s.T().Setenv("RECLAIM_SHARED", "4096")
	path := s.CreateTempFile("bench.yaml", []byte(`
name: frames
pool:
  kind: tiered
  local_capacity: 8
  shared_capacity: ${RECLAIM_SHARED}
  shared_ring: true
workload:
  frames: 10
  timeout: 5s
`))

	cfg := NewBenchConfig("default")
	s.Require().NoError(Load(path, cfg))

	s.Equal("frames", cfg.Name)
	s.Equal(8, cfg.Pool.LocalCapacity)
	s.Equal(4096, cfg.Pool.SharedCapacity)
	s.True(cfg.Pool.SharedRing)
	s.Equal(10, cfg.Workload.Frames)
	s.Equal(5*time.Second, cfg.Workload.Timeout)
	s.Equal(256, cfg.Workload.ObjectsPerFrame, "unset fields keep defaults")
	s.NoError(cfg.Validate())
}

func (s *LoaderSuite) TestSaveThenLoad() {
	path := filepath.Join(s.TempDir(), "roundtrip.yaml")
	cfg := NewBenchConfig("roundtrip")
	cfg.Pool.Kind = KindStack
	cfg.Compression.Enabled = true

	s.Require().NoError(Save(path, cfg))

	loaded := &BenchConfig{}
	s.Require().NoError(Load(path, loaded))
	s.Equal(cfg, loaded)
}

func (s *LoaderSuite) TestLoadMissingFile() {
	err := Load(filepath.Join(s.TempDir(), "absent.yaml"), &BenchConfig{})
	s.Require().Error(err)
	s.True(reclaimerrors.IsType(err, reclaimerrors.ErrorTypeFile))
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *LoaderSuite) TestLoadInvalidYAML() {
	path := s.CreateTempFile("broken.yaml", []byte("pool: [unterminated"))
	err := Load(path, &BenchConfig{})
	s.Require().Error(err)
	s.True(reclaimerrors.IsType(err, reclaimerrors.ErrorTypeConfig))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("RECLAIM_A", "1")
	t.Setenv("RECLAIM_LOOP", "${RECLAIM_LOOP}")

	assert.Equal(t, "a=1 b=", substituteEnvVars("a=${RECLAIM_A} b=${RECLAIM_UNSET}"))
	assert.Equal(t, "x=${RECLAIM_LOOP}", substituteEnvVars("x=${RECLAIM_LOOP}"), "values are not re-expanded")
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PoolConfig)
		wantErr string
	}{
		{name: "tiered default", mutate: func(*PoolConfig) {}},
		{name: "stack", mutate: func(p *PoolConfig) { p.Kind = KindStack }},
		{name: "fixed", mutate: func(p *PoolConfig) { p.Kind = KindFixed }},
		{name: "unknown kind", mutate: func(p *PoolConfig) { p.Kind = "heap" }, wantErr: "kind"},
		{name: "stack zero initial", mutate: func(p *PoolConfig) { p.Kind = KindStack; p.InitialCapacity = 0 }, wantErr: "initial_capacity"},
		{name: "stack negative max", mutate: func(p *PoolConfig) { p.Kind = KindStack; p.MaxCapacity = -1 }, wantErr: "max_capacity"},
		{name: "fixed zero", mutate: func(p *PoolConfig) { p.Kind = KindFixed; p.Capacity = 0 }, wantErr: "capacity"},
		{name: "tiered zero local", mutate: func(p *PoolConfig) { p.LocalCapacity = 0 }, wantErr: "local_capacity"},
		{name: "tiered zero shared", mutate: func(p *PoolConfig) { p.SharedCapacity = 0 }, wantErr: "shared_capacity"},
		{name: "fixed ignores tiered fields", mutate: func(p *PoolConfig) { p.Kind = KindFixed; p.LocalCapacity = 0 }},
		{name: "negative prewarm", mutate: func(p *PoolConfig) { p.Prewarm = -1 }, wantErr: "prewarm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPoolConfig("test")
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeConfig))
		})
	}
}

func TestBenchConfig_Validate(t *testing.T) {
	cfg := NewBenchConfig("run")
	require.NoError(t, cfg.Validate())

	cfg.Name = ""
	assert.Error(t, cfg.Validate())

	cfg = NewBenchConfig("run")
	cfg.Workload.Frames = 0
	assert.Error(t, cfg.Validate())

	cfg = NewBenchConfig("run")
	cfg.Workload.RejectEvery = -2
	assert.Error(t, cfg.Validate())

	cfg = NewBenchConfig("run")
	cfg.Observability.ReportFormat = "xml"
	assert.Error(t, cfg.Validate())
}

func TestWorkloadConfig_GetWorkers(t *testing.T) {
	w := WorkloadConfig{}
	assert.Positive(t, w.GetWorkers())
	w.Workers = 3
	assert.Equal(t, 3, w.GetWorkers())
}

func TestPoolConfig_Held(t *testing.T) {
	p := DefaultPoolConfig("x")
	assert.Equal(t, p.LocalCapacity, p.Held())
	p.Kind = KindStack
	assert.Equal(t, p.MaxCapacity, p.Held())
	p.Kind = KindFixed
	assert.Equal(t, p.Capacity, p.Held())
	p.Kind = "other"
	assert.Zero(t, p.Held())
}
