package jsonpool

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

type sample struct {
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Tags  []string `json:"tags,omitempty"`
}

func TestMarshal(t *testing.T) {
	enc, err := New(0)
	require.NoError(t, err)

	data, err := enc.Marshal(sample{Name: "<a>", Value: 1.5})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"<a>","value":1.5}`, string(data), "no HTML escaping and no trailing newline")
	assert.Equal(t, 1, enc.Stats().Held, "buffer returned")

	pretty, err := enc.MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(pretty))
}

func TestMarshal_ResultOutlivesBuffer(t *testing.T) {
	enc, err := New(16)
	require.NoError(t, err)

	first, err := enc.Marshal(sample{Name: "first"})
	require.NoError(t, err)
	_, err = enc.Marshal(sample{Name: "second"})
	require.NoError(t, err)
	assert.Contains(t, string(first), "first")
}

func TestMarshal_Error(t *testing.T) {
	enc, err := New(0)
	require.NoError(t, err)

	_, err = enc.Marshal(math.Inf(1))
	require.Error(t, err)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeData))
	assert.Equal(t, 1, enc.Stats().Held, "buffer returned after a failed encode")
}

func TestEncode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Default().Encode(&out, sample{Name: "x", Value: 2}, ""))
	assert.Equal(t, "{\"name\":\"x\",\"value\":2}\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncode_WriteError(t *testing.T) {
	err := Default().Encode(failingWriter{}, 1, "")
	require.Error(t, err)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeFile))
}

func TestMarshalLines(t *testing.T) {
	enc, err := New(0)
	require.NoError(t, err)

	data, err := enc.MarshalLines(1, "two", sample{Name: "three"})
	require.NoError(t, err)
	assert.Equal(t, "1\n\"two\"\n{\"name\":\"three\",\"value\":0}\n", string(data))
}

func TestDecode_UsesNumber(t *testing.T) {
	var v map[string]any
	require.NoError(t, Decode([]byte(`{"n": 12345678901234567890}`), &v))
	n, ok := v["n"].(gojson.Number)
	require.True(t, ok)
	assert.Equal(t, "12345678901234567890", n.String())

	err := Decode([]byte(`{`), &v)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeData))
}

func TestStreamWriter_Array(t *testing.T) {
	var out bytes.Buffer
	sw := Default().NewStreamWriter(&out, true)
	for i := 0; i < 3; i++ {
		require.NoError(t, sw.Write(i))
	}
	require.NoError(t, sw.Close())
	require.NoError(t, sw.Close())

	assert.Equal(t, "[0,1,2]\n", out.String())
	assert.Equal(t, 3, sw.Count())

	var decoded []int
	require.NoError(t, gojson.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []int{0, 1, 2}, decoded)

	err := sw.Write(4)
	assert.True(t, reclaimerrors.IsType(err, reclaimerrors.ErrorTypeState))
}

func TestStreamWriter_EmptyArrayAndLines(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Default().NewStreamWriter(&out, true).Close())
	assert.Equal(t, "[]\n", out.String())

	out.Reset()
	sw := Default().NewStreamWriter(&out, false)
	require.NoError(t, sw.Write("a"))
	require.NoError(t, sw.Write("b"))
	require.NoError(t, sw.Close())
	assert.Equal(t, "\"a\"\n\"b\"\n", out.String())
}

func TestEncoder_Concurrent(t *testing.T) {
	enc, err := New(0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				data, err := enc.Marshal(sample{Value: float64(g*1000 + i)})
				assert.NoError(t, err)
				var s sample
				assert.NoError(t, gojson.Unmarshal(data, &s))
				assert.Equal(t, float64(g*1000+i), s.Value)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, enc.Stats().Held, 8)
}

func BenchmarkMarshal(b *testing.B) {
	enc, _ := New(0)
	v := sample{Name: "bench", Value: 3.14, Tags: []string{"a", "b"}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Marshal(v); err != nil {
			b.Fatal(err)
		}
	}
}
