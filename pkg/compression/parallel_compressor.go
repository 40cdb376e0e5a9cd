package compression

import (
	"bytes"
	"context"
	"encoding/binary"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

// Frame layout of parallel output:
//
//	magic "PCMP" | version (1) | algorithm (1) | chunks (2) | original size (4)
//	then per chunk: compressed length (4) | compressed bytes
const (
	parallelMagic   = "PCMP"
	parallelVersion = 0x01
	headerSize      = 12
)

var algorithmCodes = map[Algorithm]byte{
	Gzip: 1, Snappy: 2, LZ4: 3, Zstd: 4, S2: 5, Deflate: 6,
}

// ParallelConfig configures parallel compression
type ParallelConfig struct {
	Algorithm  Algorithm
	Level      Level
	NumWorkers int // 0 = auto (NumCPU)
	ChunkSize  int // Size of each chunk in bytes; 0 = 1MB
}

// ParallelCompressor splits large payloads into chunks and compresses them
// concurrently with a pooled Compressor. Payloads no larger than one chunk
// are compressed directly, without a header.
type ParallelCompressor struct {
	logger     *zap.Logger
	comp       Compressor
	numWorkers int
	chunkSize  int

	bytesProcessed  atomic.Int64
	chunksProcessed atomic.Int64
}

// NewParallelCompressor creates a new parallel compressor. Its codec pools
// retain one codec per worker.
func NewParallelCompressor(config ParallelConfig, logger *zap.Logger) (*ParallelCompressor, error) {
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.NumCPU()
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, ok := algorithmCodes[config.Algorithm]; !ok {
		return nil, reclaimerrors.New(reclaimerrors.ErrorTypeConfig, "unsupported compression algorithm for parallel compression").
			WithDetail("algorithm", string(config.Algorithm))
	}

	comp, err := NewCompressor(&Config{
		Algorithm:  config.Algorithm,
		Level:      config.Level,
		BufferSize: config.ChunkSize,
		PoolSize:   config.NumWorkers,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &ParallelCompressor{
		logger:     logger,
		comp:       comp,
		numWorkers: config.NumWorkers,
		chunkSize:  config.ChunkSize,
	}, nil
}

// Compressor returns the pooled compressor used for each chunk.
func (pc *ParallelCompressor) Compressor() Compressor {
	return pc.comp
}

// CompressData compresses data in parallel.
func (pc *ParallelCompressor) CompressData(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) <= pc.chunkSize {
		return pc.comp.Compress(data)
	}

	chunks := pc.splitIntoChunks(data)
	if len(chunks) > 0xFFFF {
		return nil, reclaimerrors.New(reclaimerrors.ErrorTypeValidation, "too many chunks for parallel compression").
			WithDetail("chunks", len(chunks))
	}
	compressed := make([][]byte, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.numWorkers)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := pc.comp.Compress(chunk)
			if err != nil {
				return err
			}
			compressed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := headerSize
	for _, c := range compressed {
		size += 4 + len(c)
	}
	output := bytes.NewBuffer(make([]byte, 0, size))
	output.Write(pc.createHeader(len(chunks), len(data)))

	var length [4]byte
	for i, c := range compressed {
		binary.BigEndian.PutUint32(length[:], uint32(len(c)))
		output.Write(length[:])
		output.Write(c)

		pc.bytesProcessed.Add(int64(len(chunks[i])))
		pc.chunksProcessed.Add(1)
	}

	pc.logger.Debug("compressed in parallel",
		zap.Int("chunks", len(chunks)),
		zap.Int("original_size", len(data)),
		zap.Int("compressed_size", output.Len()))
	return output.Bytes(), nil
}

// DecompressData decompresses output of CompressData.
func (pc *ParallelCompressor) DecompressData(ctx context.Context, data []byte) ([]byte, error) {
	numChunks, originalSize, code, ok := readHeader(data)
	if !ok {
		return pc.comp.Decompress(data)
	}
	if want := algorithmCodes[pc.comp.Algorithm()]; code != want {
		return nil, reclaimerrors.New(reclaimerrors.ErrorTypeData, "compressed with a different algorithm").
			WithDetail("expected", want).
			WithDetail("actual", code)
	}

	chunks := make([][]byte, 0, numChunks)
	offset := headerSize
	for i := 0; i < numChunks; i++ {
		if offset+4 > len(data) {
			return nil, corrupted(i)
		}
		n := int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
		if offset+n > len(data) {
			return nil, corrupted(i)
		}
		chunks = append(chunks, data[offset:offset+n])
		offset += n
	}

	decompressed := make([][]byte, numChunks)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.numWorkers)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := pc.comp.Decompress(chunk)
			if err != nil {
				return err
			}
			decompressed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The header's size is only checked, never trusted for allocation.
	total := 0
	for _, d := range decompressed {
		total += len(d)
	}
	if total != originalSize {
		return nil, reclaimerrors.New(reclaimerrors.ErrorTypeData, "decompressed size mismatch").
			WithDetail("expected", originalSize).
			WithDetail("actual", total)
	}
	output := make([]byte, 0, total)
	for _, d := range decompressed {
		output = append(output, d...)
	}
	return output, nil
}

func (pc *ParallelCompressor) splitIntoChunks(data []byte) [][]byte {
	chunks := make([][]byte, 0, (len(data)+pc.chunkSize-1)/pc.chunkSize)
	for i := 0; i < len(data); i += pc.chunkSize {
		end := min(i+pc.chunkSize, len(data))
		chunks = append(chunks, data[i:end])
	}
	return chunks
}

func (pc *ParallelCompressor) createHeader(numChunks, originalSize int) []byte {
	header := make([]byte, headerSize)
	copy(header[0:4], parallelMagic)
	header[4] = parallelVersion
	header[5] = algorithmCodes[pc.comp.Algorithm()]
	binary.BigEndian.PutUint16(header[6:8], uint16(numChunks))
	binary.BigEndian.PutUint32(header[8:12], uint32(originalSize))
	return header
}

// readHeader reports false for data that was compressed directly.
func readHeader(data []byte) (numChunks, originalSize int, algorithm byte, ok bool) {
	if len(data) < headerSize || string(data[0:4]) != parallelMagic || data[4] != parallelVersion {
		return 0, 0, 0, false
	}
	numChunks = int(binary.BigEndian.Uint16(data[6:8]))
	originalSize = int(binary.BigEndian.Uint32(data[8:12]))
	return numChunks, originalSize, data[5], true
}

func corrupted(chunk int) error {
	return reclaimerrors.New(reclaimerrors.ErrorTypeData, "corrupted compressed data").
		WithDetail("chunk", chunk)
}

// GetMetrics returns compression metrics
func (pc *ParallelCompressor) GetMetrics() (bytesProcessed, chunksProcessed int64) {
	return pc.bytesProcessed.Load(), pc.chunksProcessed.Load()
}
