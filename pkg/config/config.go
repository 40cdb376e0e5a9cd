package config

import (
	"runtime"
	"time"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

// Pool kinds accepted by PoolConfig.Kind.
const (
	KindStack  = "stack"
	KindFixed  = "fixed"
	KindTiered = "tiered"
)

// BenchConfig is the complete configuration of one reclaim bench run.
type BenchConfig struct {
	// Name identifies the run in logs and reports
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version" mapstructure:"version"`

	// Pool describes the pool under test
	Pool PoolConfig `yaml:"pool" json:"pool" mapstructure:"pool"`

	// Workload describes the frame loop driving the pool
	Workload WorkloadConfig `yaml:"workload" json:"workload" mapstructure:"workload"`

	// Compression optionally compresses each frame's payload through pooled codecs
	Compression CompressionConfig `yaml:"compression" json:"compression" mapstructure:"compression"`

	// Observability settings for logging, metrics and reporting
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// PoolConfig selects a pool kind and its capacities. Only the capacities of
// the selected kind are validated.
type PoolConfig struct {
	// Kind is stack, fixed or tiered
	Kind string `yaml:"kind" json:"kind" mapstructure:"kind"`
	// Name labels the pool in logs and metrics
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// InitialCapacity is the preallocated size of a stack pool
	InitialCapacity int `yaml:"initial_capacity" json:"initial_capacity" mapstructure:"initial_capacity"`
	// MaxCapacity bounds a stack pool
	MaxCapacity int `yaml:"max_capacity" json:"max_capacity" mapstructure:"max_capacity"`
	// Capacity is the slot count of a fixed pool
	Capacity int `yaml:"capacity" json:"capacity" mapstructure:"capacity"`
	// LocalCapacity bounds each worker's cache in a tiered pool
	LocalCapacity int `yaml:"local_capacity" json:"local_capacity" mapstructure:"local_capacity"`
	// SharedCapacity softly bounds the shared tier of a tiered pool
	SharedCapacity int `yaml:"shared_capacity" json:"shared_capacity" mapstructure:"shared_capacity"`
	// SharedRing selects the FIFO ring shared tier
	SharedRing bool `yaml:"shared_ring" json:"shared_ring" mapstructure:"shared_ring"`
	// Prewarm is the number of objects created before the run starts
	Prewarm int `yaml:"prewarm" json:"prewarm" mapstructure:"prewarm"`
}

// WorkloadConfig describes the simulated frame loop.
type WorkloadConfig struct {
	// Workers is the number of goroutines; 0 means one per CPU
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// Frames is the number of frames each worker runs
	Frames int `yaml:"frames" json:"frames" mapstructure:"frames"`
	// ObjectsPerFrame is how many objects a worker holds during one frame
	ObjectsPerFrame int `yaml:"objects_per_frame" json:"objects_per_frame" mapstructure:"objects_per_frame"`
	// PayloadBytes sizes the scratch buffer carried by each object
	PayloadBytes int `yaml:"payload_bytes" json:"payload_bytes" mapstructure:"payload_bytes"`
	// RejectEvery makes the policy refuse every Nth returned object (0 = never)
	RejectEvery int `yaml:"reject_every" json:"reject_every" mapstructure:"reject_every"`
	// Timeout stops the run early (0 = none)
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// CompressionConfig enables the compression stage of the workload.
type CompressionConfig struct {
	// Enabled turns the stage on
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// Algorithm is one of none, gzip, deflate, snappy, lz4, zstd, s2
	Algorithm string `yaml:"algorithm" json:"algorithm" mapstructure:"algorithm"`
	// Level is one of fastest, default, better, best
	Level string `yaml:"level" json:"level" mapstructure:"level"`
}

// ObservabilityConfig contains logging, metrics and report settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	// LogEncoding is json or console
	LogEncoding string `yaml:"log_encoding" json:"log_encoding" mapstructure:"log_encoding"`
	// MetricsAddr serves Prometheus metrics when set (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr" mapstructure:"metrics_addr"`
	// ReportFormat is text or json
	ReportFormat string `yaml:"report_format" json:"report_format" mapstructure:"report_format"`
	// SampleInterval sets how often process resources are sampled
	SampleInterval time.Duration `yaml:"sample_interval" json:"sample_interval" mapstructure:"sample_interval"`
}

// NewBenchConfig creates a BenchConfig with defaults suited to a short local run.
//
// Example:
//
//	cfg := config.NewBenchConfig("particles")
//	cfg.Pool.Kind = config.KindFixed
//	cfg.Pool.Capacity = 256
func NewBenchConfig(name string) *BenchConfig {
	return &BenchConfig{
		Name:    name,
		Version: "1.0.0",
		Pool:    DefaultPoolConfig(name),
		Workload: WorkloadConfig{
			Workers:         runtime.NumCPU(),
			Frames:          600,
			ObjectsPerFrame: 256,
			PayloadBytes:    64,
		},
		Compression: CompressionConfig{
			Algorithm: "zstd",
			Level:     "default",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogEncoding:    "console",
			ReportFormat:   "text",
			SampleInterval: 250 * time.Millisecond,
		},
	}
}

// DefaultPoolConfig returns a tiered pool shape with capacities for every kind.
func DefaultPoolConfig(name string) PoolConfig {
	return PoolConfig{
		Kind:            KindTiered,
		Name:            name,
		InitialCapacity: 16,
		MaxCapacity:     64,
		Capacity:        64,
		LocalCapacity:   64,
		SharedCapacity:  1024,
	}
}

// Validate validates the configuration for correctness.
func (c *BenchConfig) Validate() error {
	if c.Name == "" {
		return configError("name is required", "name", c.Name)
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Workload.Validate(); err != nil {
		return err
	}
	switch c.Observability.ReportFormat {
	case "", "text", "json":
	default:
		return configError("report_format must be text or json", "report_format", c.Observability.ReportFormat)
	}
	return nil
}

// Validate checks the capacities used by the selected kind.
func (p *PoolConfig) Validate() error {
	switch p.Kind {
	case KindStack:
		if p.InitialCapacity <= 0 {
			return configError("initial_capacity must be positive", "initial_capacity", p.InitialCapacity)
		}
		if p.MaxCapacity <= 0 {
			return configError("max_capacity must be positive", "max_capacity", p.MaxCapacity)
		}
	case KindFixed:
		if p.Capacity <= 0 {
			return configError("capacity must be positive", "capacity", p.Capacity)
		}
	case KindTiered:
		if p.LocalCapacity <= 0 {
			return configError("local_capacity must be positive", "local_capacity", p.LocalCapacity)
		}
		if p.SharedCapacity <= 0 {
			return configError("shared_capacity must be positive", "shared_capacity", p.SharedCapacity)
		}
	default:
		return configError("kind must be stack, fixed or tiered", "kind", p.Kind)
	}
	if p.Prewarm < 0 {
		return configError("prewarm cannot be negative", "prewarm", p.Prewarm)
	}
	return nil
}

// Validate checks the workload bounds.
func (w *WorkloadConfig) Validate() error {
	if w.Workers < 0 {
		return configError("workers cannot be negative", "workers", w.Workers)
	}
	if w.Frames <= 0 {
		return configError("frames must be positive", "frames", w.Frames)
	}
	if w.ObjectsPerFrame <= 0 {
		return configError("objects_per_frame must be positive", "objects_per_frame", w.ObjectsPerFrame)
	}
	if w.PayloadBytes < 0 {
		return configError("payload_bytes cannot be negative", "payload_bytes", w.PayloadBytes)
	}
	if w.RejectEvery < 0 {
		return configError("reject_every cannot be negative", "reject_every", w.RejectEvery)
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (w *WorkloadConfig) GetWorkers() int {
	if w.Workers <= 0 {
		return runtime.NumCPU()
	}
	return w.Workers
}

// Held returns how many objects one worker can hold in its pool at most.
func (p *PoolConfig) Held() int {
	switch p.Kind {
	case KindStack:
		return p.MaxCapacity
	case KindFixed:
		return p.Capacity
	case KindTiered:
		return p.LocalCapacity
	default:
		return 0
	}
}

func configError(msg, field string, value interface{}) error {
	return reclaimerrors.New(reclaimerrors.ErrorTypeConfig, msg).
		WithDetail("field", field).
		WithDetail("value", value)
}
