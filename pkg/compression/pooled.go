package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/reclaim/pkg/containers"
	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/pool"
)

// codec is a pooled encoder or decoder. A codec whose last use failed or
// panicked is not taken back by its pool.
type codec[S any] struct {
	state  S
	failed bool
}

// codecPolicy builds codecs at the level carried in the pool context. reset
// runs on return and detaches the codec from its last stream; an error drops
// the codec.
type codecPolicy[S, L any] struct {
	create func(level L) (S, error)
	reset  func(state S) error
}

func (p codecPolicy[S, L]) Create(ctx policy.Args1[L]) (*codec[S], error) {
	s, err := p.create(ctx.A)
	if err != nil {
		return nil, err
	}
	return &codec[S]{state: s}, nil
}

func (codecPolicy[S, L]) OnRent(*codec[S], policy.Args1[L]) {}

func (p codecPolicy[S, L]) OnReturn(c *codec[S]) bool {
	if c.failed {
		return false
	}
	if p.reset != nil {
		return p.reset(c.state) == nil
	}
	return true
}

type codecPool[S, L any] struct {
	*pool.Tiered[*codec[S], policy.Args1[L], codecPolicy[S, L]]
}

func newCodecPool[S, L any](name string, cfg *Config, level L, p codecPolicy[S, L]) (codecPool[S, L], error) {
	t, err := pool.NewTiered[*codec[S]](p, policy.With1(level), 1, cfg.poolSize(),
		pool.WithName(name), pool.WithLogger(cfg.logger()))
	if err != nil {
		return codecPool[S, L]{}, err
	}
	return codecPool[S, L]{Tiered: t}, nil
}

// with runs fn with a pooled codec.
func (cp codecPool[S, L]) with(fn func(state S) error) error {
	c, err := cp.Rent()
	if err != nil {
		return err
	}
	c.failed = true
	defer cp.Return(c)

	if err := fn(c.state); err != nil {
		return err
	}
	c.failed = false
	return nil
}

type bufferPool struct {
	*containers.BufferPool
}

func newBufferPool(name string, cfg *Config) (bufferPool, error) {
	size := cfg.BufferSize
	if size <= 0 {
		size = 64 * 1024
	}
	t, err := containers.NewBufferPool(size, size*16, cfg.poolSize(),
		pool.WithName(name), pool.WithLogger(cfg.logger()))
	if err != nil {
		return bufferPool{}, err
	}
	return bufferPool{BufferPool: t}, nil
}

// collect runs fill with a pooled buffer and returns a copy of what it wrote.
func (bp bufferPool) collect(fill func(buf *bytes.Buffer) error) ([]byte, error) {
	buf, err := bp.Rent()
	if err != nil {
		return nil, err
	}
	defer bp.Return(buf)

	if err := fill(buf); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writers codecPool[*gzip.Writer, int]
	readers codecPool[*gzip.Reader, int]
	buffers bufferPool
}

func newGzipCompressor(base baseCompressor, cfg *Config) (*gzipCompressor, error) {
	gc := &gzipCompressor{baseCompressor: base}
	var err error
	gc.writers, err = newCodecPool("gzip-writer", cfg, mapGzipLevel(cfg.Level), codecPolicy[*gzip.Writer, int]{
		create: func(level int) (*gzip.Writer, error) { return gzip.NewWriterLevel(io.Discard, level) },
		reset:  func(w *gzip.Writer) error { w.Reset(io.Discard); return nil },
	})
	if err != nil {
		return nil, err
	}
	gc.readers, err = newCodecPool("gzip-reader", cfg, 0, codecPolicy[*gzip.Reader, int]{
		create: func(int) (*gzip.Reader, error) { return new(gzip.Reader), nil },
	})
	if err != nil {
		return nil, err
	}
	if gc.buffers, err = newBufferPool("gzip-buffer", cfg); err != nil {
		return nil, err
	}
	return gc, nil
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	return gc.buffers.collect(func(buf *bytes.Buffer) error {
		return gc.writers.with(func(w *gzip.Writer) error {
			w.Reset(buf)
			if _, err := w.Write(data); err != nil {
				return err
			}
			return w.Close()
		})
	})
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := gc.buffers.collect(func(buf *bytes.Buffer) error {
		return gc.readers.with(func(r *gzip.Reader) error {
			if err := r.Reset(bytes.NewReader(data)); err != nil {
				return err
			}
			_, err := io.Copy(buf, r) //nolint:gosec // G110: callers bound their inputs
			return err
		})
	})
	if err != nil {
		return nil, dataError(err, Gzip)
	}
	return out, nil
}

func (gc *gzipCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	return gc.writers.with(func(w *gzip.Writer) error {
		w.Reset(dst)
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		return w.Close()
	})
}

func (gc *gzipCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	return gc.readers.with(func(r *gzip.Reader) error {
		if err := r.Reset(src); err != nil {
			return err
		}
		_, err := io.Copy(dst, r) //nolint:gosec // G110: callers bound their inputs
		return err
	})
}

func (gc *gzipCompressor) Pools() map[string]pool.StatsSource {
	return map[string]pool.StatsSource{
		"gzip-writer": gc.writers,
		"gzip-reader": gc.readers,
		"gzip-buffer": gc.buffers,
	}
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	writers codecPool[*flate.Writer, int]
	readers codecPool[io.ReadCloser, int]
	buffers bufferPool
}

func newDeflateCompressor(base baseCompressor, cfg *Config) (*deflateCompressor, error) {
	dc := &deflateCompressor{baseCompressor: base}
	var err error
	dc.writers, err = newCodecPool("deflate-writer", cfg, mapDeflateLevel(cfg.Level), codecPolicy[*flate.Writer, int]{
		create: func(level int) (*flate.Writer, error) { return flate.NewWriter(io.Discard, level) },
		reset:  func(w *flate.Writer) error { w.Reset(io.Discard); return nil },
	})
	if err != nil {
		return nil, err
	}
	dc.readers, err = newCodecPool("deflate-reader", cfg, 0, codecPolicy[io.ReadCloser, int]{
		create: func(int) (io.ReadCloser, error) { return flate.NewReader(bytes.NewReader(nil)), nil },
	})
	if err != nil {
		return nil, err
	}
	if dc.buffers, err = newBufferPool("deflate-buffer", cfg); err != nil {
		return nil, err
	}
	return dc, nil
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	return dc.buffers.collect(func(buf *bytes.Buffer) error {
		return dc.writers.with(func(w *flate.Writer) error {
			w.Reset(buf)
			if _, err := w.Write(data); err != nil {
				return err
			}
			return w.Close()
		})
	})
}

func (dc *deflateCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := dc.buffers.collect(func(buf *bytes.Buffer) error {
		return dc.readers.with(func(r io.ReadCloser) error {
			if err := r.(flate.Resetter).Reset(bytes.NewReader(data), nil); err != nil {
				return err
			}
			_, err := io.Copy(buf, r) //nolint:gosec // G110: callers bound their inputs
			return err
		})
	})
	if err != nil {
		return nil, dataError(err, Deflate)
	}
	return out, nil
}

func (dc *deflateCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	return dc.writers.with(func(w *flate.Writer) error {
		w.Reset(dst)
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		return w.Close()
	})
}

func (dc *deflateCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	return dc.readers.with(func(r io.ReadCloser) error {
		if err := r.(flate.Resetter).Reset(src, nil); err != nil {
			return err
		}
		_, err := io.Copy(dst, r) //nolint:gosec // G110: callers bound their inputs
		return err
	})
}

func (dc *deflateCompressor) Pools() map[string]pool.StatsSource {
	return map[string]pool.StatsSource{
		"deflate-writer": dc.writers,
		"deflate-reader": dc.readers,
		"deflate-buffer": dc.buffers,
	}
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	writers codecPool[*lz4.Writer, lz4.CompressionLevel]
	readers codecPool[*lz4.Reader, lz4.CompressionLevel]
	buffers bufferPool
}

func newLZ4Compressor(base baseCompressor, cfg *Config) (*lz4Compressor, error) {
	lc := &lz4Compressor{baseCompressor: base}
	level := mapLZ4Level(cfg.Level)
	var err error
	lc.writers, err = newCodecPool("lz4-writer", cfg, level, codecPolicy[*lz4.Writer, lz4.CompressionLevel]{
		create: func(level lz4.CompressionLevel) (*lz4.Writer, error) {
			w := lz4.NewWriter(io.Discard)
			if err := w.Apply(lz4.CompressionLevelOption(level)); err != nil {
				return nil, err
			}
			return w, nil
		},
		reset: func(w *lz4.Writer) error { w.Reset(io.Discard); return nil },
	})
	if err != nil {
		return nil, err
	}
	lc.readers, err = newCodecPool("lz4-reader", cfg, level, codecPolicy[*lz4.Reader, lz4.CompressionLevel]{
		create: func(lz4.CompressionLevel) (*lz4.Reader, error) { return lz4.NewReader(nil), nil },
		reset:  func(r *lz4.Reader) error { r.Reset(nil); return nil },
	})
	if err != nil {
		return nil, err
	}
	if lc.buffers, err = newBufferPool("lz4-buffer", cfg); err != nil {
		return nil, err
	}
	return lc, nil
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	return lc.buffers.collect(func(buf *bytes.Buffer) error {
		return lc.writers.with(func(w *lz4.Writer) error {
			w.Reset(buf)
			if _, err := w.Write(data); err != nil {
				return err
			}
			return w.Close()
		})
	})
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := lc.buffers.collect(func(buf *bytes.Buffer) error {
		return lc.readers.with(func(r *lz4.Reader) error {
			r.Reset(bytes.NewReader(data))
			_, err := io.Copy(buf, r) //nolint:gosec // G110: callers bound their inputs
			return err
		})
	})
	if err != nil {
		return nil, dataError(err, LZ4)
	}
	return out, nil
}

func (lc *lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	return lc.writers.with(func(w *lz4.Writer) error {
		w.Reset(dst)
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		return w.Close()
	})
}

func (lc *lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	return lc.readers.with(func(r *lz4.Reader) error {
		r.Reset(src)
		_, err := io.Copy(dst, r) //nolint:gosec // G110: callers bound their inputs
		return err
	})
}

func (lc *lz4Compressor) Pools() map[string]pool.StatsSource {
	return map[string]pool.StatsSource{
		"lz4-writer": lc.writers,
		"lz4-reader": lc.readers,
		"lz4-buffer": lc.buffers,
	}
}

// Zstd compressor. Encoders and decoders run with concurrency 1 so a codec
// dropped by its pool owns no goroutines.
type zstdCompressor struct {
	baseCompressor
	encoders codecPool[*zstd.Encoder, zstd.EncoderLevel]
	decoders codecPool[*zstd.Decoder, zstd.EncoderLevel]
}

func newZstdCompressor(base baseCompressor, cfg *Config) (*zstdCompressor, error) {
	zc := &zstdCompressor{baseCompressor: base}
	level := mapZstdLevel(cfg.Level)
	var err error
	zc.encoders, err = newCodecPool("zstd-encoder", cfg, level, codecPolicy[*zstd.Encoder, zstd.EncoderLevel]{
		create: func(level zstd.EncoderLevel) (*zstd.Encoder, error) {
			return zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
		},
		reset: func(enc *zstd.Encoder) error { enc.Reset(nil); return nil },
	})
	if err != nil {
		return nil, err
	}
	zc.decoders, err = newCodecPool("zstd-decoder", cfg, level, codecPolicy[*zstd.Decoder, zstd.EncoderLevel]{
		create: func(zstd.EncoderLevel) (*zstd.Decoder, error) {
			return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		},
		reset: func(dec *zstd.Decoder) error { return dec.Reset(nil) },
	})
	if err != nil {
		return nil, err
	}
	return zc, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	var out []byte
	err := zc.encoders.with(func(enc *zstd.Encoder) error {
		out = enc.EncodeAll(data, make([]byte, 0, len(data)/2+64))
		return nil
	})
	return out, err
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	var out []byte
	err := zc.decoders.with(func(dec *zstd.Decoder) error {
		var err error
		out, err = dec.DecodeAll(data, nil)
		return err
	})
	if err != nil {
		return nil, dataError(err, Zstd)
	}
	return out, nil
}

func (zc *zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	return zc.encoders.with(func(enc *zstd.Encoder) error {
		enc.Reset(dst)
		if _, err := io.Copy(enc, src); err != nil {
			return err
		}
		return enc.Close()
	})
}

func (zc *zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	return zc.decoders.with(func(dec *zstd.Decoder) error {
		if err := dec.Reset(src); err != nil {
			return err
		}
		_, err := io.Copy(dst, dec) //nolint:gosec // G110: callers bound their inputs
		return err
	})
}

func (zc *zstdCompressor) Pools() map[string]pool.StatsSource {
	return map[string]pool.StatsSource{
		"zstd-encoder": zc.encoders,
		"zstd-decoder": zc.decoders,
	}
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Better:
		return 7
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Better:
		return 7
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Better:
		return lz4.Level7
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// frameStreams pools the S2 stream writers and readers behind the snappy and
// s2 stream methods. Block compression needs no state. Writers run with
// concurrency 1 so a writer dropped by its pool owns no goroutines.
type frameStreams struct {
	writers codecPool[*s2.Writer, []s2.WriterOption]
	readers codecPool[*s2.Reader, []s2.WriterOption]
	prefix  string
}

func newFrameStreams(prefix string, cfg *Config, opts []s2.WriterOption) (frameStreams, error) {
	fs := frameStreams{prefix: prefix}
	var err error
	fs.writers, err = newCodecPool(prefix+"-writer", cfg, opts, codecPolicy[*s2.Writer, []s2.WriterOption]{
		create: func(opts []s2.WriterOption) (*s2.Writer, error) {
			return s2.NewWriter(nil, append(opts[:len(opts):len(opts)], s2.WriterConcurrency(1))...), nil
		},
		reset: func(w *s2.Writer) error { w.Reset(nil); return nil },
	})
	if err != nil {
		return frameStreams{}, err
	}
	fs.readers, err = newCodecPool(prefix+"-reader", cfg, opts, codecPolicy[*s2.Reader, []s2.WriterOption]{
		create: func([]s2.WriterOption) (*s2.Reader, error) { return s2.NewReader(nil), nil },
		reset:  func(r *s2.Reader) error { r.Reset(nil); return nil },
	})
	if err != nil {
		return frameStreams{}, err
	}
	return fs, nil
}

func (fs frameStreams) CompressStream(dst io.Writer, src io.Reader) error {
	return fs.writers.with(func(w *s2.Writer) error {
		w.Reset(dst)
		if _, err := io.Copy(w, src); err != nil {
			return err
		}
		return w.Close()
	})
}

func (fs frameStreams) DecompressStream(dst io.Writer, src io.Reader) error {
	return fs.readers.with(func(r *s2.Reader) error {
		r.Reset(src)
		_, err := io.Copy(dst, r) //nolint:gosec // G110: callers bound their inputs
		return err
	})
}

func (fs frameStreams) Pools() map[string]pool.StatsSource {
	return map[string]pool.StatsSource{
		fs.prefix + "-writer": fs.writers,
		fs.prefix + "-reader": fs.readers,
	}
}

// Snappy compressor. Streams use the snappy framing format.
type snappyCompressor struct {
	baseCompressor
	frameStreams
}

func newSnappyCompressor(base baseCompressor, cfg *Config) (*snappyCompressor, error) {
	streams, err := newFrameStreams("snappy", cfg, []s2.WriterOption{s2.WriterSnappyCompat(), s2.WriterBetterCompression()})
	if err != nil {
		return nil, err
	}
	return &snappyCompressor{baseCompressor: base, frameStreams: streams}, nil
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, dataError(err, Snappy)
	}
	return out, nil
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
	frameStreams
}

func newS2Compressor(base baseCompressor, cfg *Config) (*s2Compressor, error) {
	var opts []s2.WriterOption
	switch cfg.Level {
	case Better:
		opts = append(opts, s2.WriterBetterCompression())
	case Best:
		opts = append(opts, s2.WriterBestCompression())
	}
	streams, err := newFrameStreams("s2", cfg, opts)
	if err != nil {
		return nil, err
	}
	return &s2Compressor{baseCompressor: base, frameStreams: streams}, nil
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	switch sc.level {
	case Better:
		return s2.EncodeBetter(nil, data), nil
	case Best:
		return s2.EncodeBest(nil, data), nil
	default:
		return s2.Encode(nil, data), nil
	}
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, dataError(err, S2)
	}
	return out, nil
}
