// Package jsonpool encodes JSON with goccy/go-json into pooled buffers, so a
// document is built in reused memory and written with a single Write.
package jsonpool

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/reclaim/pkg/containers"
	"github.com/ajitpratap0/reclaim/pkg/pool"
	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

const (
	// DefaultBufferSize is the initial capacity of pooled buffers.
	DefaultBufferSize = 4096
	// maxRetainedBuffer bounds the buffers kept for reuse.
	maxRetainedBuffer = 1024 * 1024
	sharedBuffers     = 64
)

// Encoder marshals values through a pool of buffers. Safe for concurrent use.
type Encoder struct {
	buffers *containers.BufferPool
}

// New creates an Encoder whose buffers start at bufferSize bytes.
func New(bufferSize int, opts ...pool.Option) (*Encoder, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buffers, err := containers.NewBufferPool(bufferSize, maxRetainedBuffer, sharedBuffers,
		append([]pool.Option{pool.WithName("json-buffer")}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Encoder{buffers: buffers}, nil
}

var (
	defaultEncoder *Encoder
	defaultOnce    sync.Once
)

// Default returns the process-wide Encoder.
func Default() *Encoder {
	defaultOnce.Do(func() {
		defaultEncoder, _ = New(DefaultBufferSize)
	})
	return defaultEncoder
}

// Stats reports the buffer pool.
func (e *Encoder) Stats() pool.Stats {
	return e.buffers.Stats()
}

func (e *Encoder) with(fn func(buf *bytes.Buffer) error) error {
	buf, err := e.buffers.Rent()
	if err != nil {
		return err
	}
	defer e.buffers.Return(buf)
	return fn(buf)
}

func encode(buf *bytes.Buffer, v any, prefix, indent string) error {
	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if indent != "" || prefix != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeData, "failed to encode JSON")
	}
	return nil
}

// Marshal returns the JSON encoding of v without a trailing newline.
func (e *Encoder) Marshal(v any) ([]byte, error) {
	return e.MarshalIndent(v, "", "")
}

// MarshalIndent is Marshal with each element on its own indented line.
func (e *Encoder) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	var out []byte
	err := e.with(func(buf *bytes.Buffer) error {
		if err := encode(buf, v, prefix, indent); err != nil {
			return err
		}
		out = bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
		return nil
	})
	return out, err
}

// Encode writes v followed by a newline to w in one Write. An empty indent
// writes compact JSON.
func (e *Encoder) Encode(w io.Writer, v any, indent string) error {
	return e.with(func(buf *bytes.Buffer) error {
		if err := encode(buf, v, "", indent); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to write JSON")
		}
		return nil
	})
}

// MarshalLines encodes values as newline-delimited JSON.
func (e *Encoder) MarshalLines(values ...any) ([]byte, error) {
	var out []byte
	err := e.with(func(buf *bytes.Buffer) error {
		for _, v := range values {
			if err := encode(buf, v, "", ""); err != nil {
				return err
			}
		}
		out = bytes.Clone(buf.Bytes())
		return nil
	})
	return out, err
}

// Decode decodes data into v, keeping numbers in interface values as
// json.Number.
func Decode(data []byte, v any) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeData, "failed to decode JSON")
	}
	return nil
}

// StreamWriter writes a sequence of values to w, either as one JSON array or
// as newline-delimited JSON. Not safe for concurrent use.
type StreamWriter struct {
	w       io.Writer
	enc     *Encoder
	array   bool
	written int
	closed  bool
}

// NewStreamWriter creates a StreamWriter. When array is true the output is a
// single JSON array that Close terminates.
func (e *Encoder) NewStreamWriter(w io.Writer, array bool) *StreamWriter {
	return &StreamWriter{w: w, enc: e, array: array}
}

// Write encodes one value.
func (s *StreamWriter) Write(v any) error {
	if s.closed {
		return reclaimerrors.New(reclaimerrors.ErrorTypeState, "stream writer is closed")
	}
	return s.enc.with(func(buf *bytes.Buffer) error {
		if s.array {
			if s.written == 0 {
				buf.WriteByte('[')
			} else {
				buf.WriteByte(',')
			}
		}
		if err := encode(buf, v, "", ""); err != nil {
			return err
		}
		data := buf.Bytes()
		if s.array {
			data = bytes.TrimSuffix(data, []byte{'\n'})
		}
		if _, err := s.w.Write(data); err != nil {
			return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to write JSON")
		}
		s.written++
		return nil
	})
}

// Count returns the number of values written.
func (s *StreamWriter) Count() int {
	return s.written
}

// Close terminates an array stream. Closing twice is a no-op.
func (s *StreamWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.array {
		return nil
	}
	end := "]\n"
	if s.written == 0 {
		end = "[]\n"
	}
	if _, err := io.WriteString(s.w, end); err != nil {
		return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeFile, "failed to write JSON")
	}
	return nil
}
