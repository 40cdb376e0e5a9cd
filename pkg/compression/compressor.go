// Package compression provides compressors whose stateful codecs are kept in
// reclaim pools, so encoders, decoders and scratch buffers are reused across
// calls instead of being rebuilt for every payload.
//
// # Overview
//
// The compression package provides:
//   - Multiple compression algorithms (Gzip, Deflate, Snappy, LZ4, Zstd, S2)
//   - Configurable compression levels (Fastest, Default, Better, Best)
//   - Pooled codec instances backed by pool.Tiered
//   - Both in-memory and streaming operations
//   - Chunked parallel compression for large payloads
//
// # Algorithm Selection
//
//   - Snappy/S2: Best for speed, moderate compression, pooled stream codecs only
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip/Deflate: Wide compatibility, good compression
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
//
// A Compressor is safe for concurrent use. Codec pools report through
// PoolReporter so they can be registered with pkg/metrics.
package compression

import (
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/pkg/pool"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// String returns the configuration name of l.
func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return "default"
	}
}

// ParseAlgorithm converts a configuration value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case None, Gzip, Snappy, LZ4, Zstd, S2, Deflate:
		return a, nil
	case "":
		return None, nil
	default:
		return "", reclaimerrors.New(reclaimerrors.ErrorTypeConfig, "unsupported compression algorithm").
			WithDetail("algorithm", s)
	}
}

// ParseLevel converts fastest, default, better or best to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest":
		return Fastest, nil
	case "", "default":
		return Default, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	default:
		return 0, reclaimerrors.New(reclaimerrors.ErrorTypeConfig, "unsupported compression level").
			WithDetail("level", s)
	}
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	// The input data is not modified.
	Decompress(data []byte) ([]byte, error)

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// PoolReporter is implemented by compressors that keep codecs in pools.
type PoolReporter interface {
	// Pools returns each codec pool by name.
	Pools() map[string]pool.StatsSource
}

// Config represents compressor configuration.
//
// Example:
//
//	config := &compression.Config{
//	    Algorithm:  compression.Zstd,
//	    Level:      compression.Better,
//	    BufferSize: 128 * 1024,
//	    PoolSize:   runtime.GOMAXPROCS(0),
//	}
type Config struct {
	Algorithm  Algorithm   // Compression algorithm to use
	Level      Level       // Compression level
	BufferSize int         // Initial size of pooled output buffers
	PoolSize   int         // Codec instances retained per pool; 0 = GOMAXPROCS
	Logger     *zap.Logger // Receives pool lifecycle logs; nil = no-op
}

// DefaultConfig returns default compression configuration: Snappy with 64KB
// buffers.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:  Snappy,
		Level:      Default,
		BufferSize: 64 * 1024,
		PoolSize:   runtime.GOMAXPROCS(0),
	}
}

func (c *Config) poolSize() int {
	if c.PoolSize <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.PoolSize
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
//
// Example:
//
//	fastComp, _ := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.LZ4,
//	    Level:     compression.Fastest,
//	})
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{algorithm: config.Algorithm, level: config.Level}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor: base}, nil
	case Snappy:
		return newSnappyCompressor(base, config)
	case S2:
		return newS2Compressor(base, config)
	case Gzip:
		return newGzipCompressor(base, config)
	case Deflate:
		return newDeflateCompressor(base, config)
	case LZ4:
		return newLZ4Compressor(base, config)
	case Zstd:
		return newZstdCompressor(base, config)
	default:
		return nil, reclaimerrors.New(reclaimerrors.ErrorTypeConfig, "unsupported compression algorithm").
			WithDetail("algorithm", string(config.Algorithm))
	}
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func dataError(err error, alg Algorithm) error {
	return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeData, "failed to decompress").
		WithDetail("algorithm", string(alg))
}
