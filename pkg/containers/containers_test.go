package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/pool"
)

func TestSlicePool_ReuseClears(t *testing.T) {
	p, err := NewSlicePool[*int](8, 64)
	require.NoError(t, err)

	s, err := p.Rent()
	require.NoError(t, err)
	assert.Empty(t, *s)
	assert.Equal(t, 8, cap(*s))

	v := 42
	*s = append(*s, &v, &v)
	backing := (*s)[:2]
	p.Return(s)

	assert.Nil(t, backing[0], "elements are zeroed on return")
	assert.Nil(t, backing[1])

	again, err := p.Rent()
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Empty(t, *again)
}

func TestSlicePool_DropsOversized(t *testing.T) {
	p, err := NewSlicePool[byte](4, 16)
	require.NoError(t, err)

	s, _ := p.Rent()
	*s = append(*s, make([]byte, 100)...)
	p.Return(s)
	assert.Zero(t, p.Len())

	small, _ := p.Rent()
	*small = append(*small, 1, 2)
	p.Return(small)
	assert.Equal(t, 1, p.Len())
}

func TestSlicePolicy_MaxRetained(t *testing.T) {
	sp := SlicePolicy[byte]{MaxRetained: 32}
	s, err := sp.Create(policy.With1(8))
	require.NoError(t, err)
	assert.Equal(t, 8, cap(*s))
	assert.True(t, sp.OnReturn(s))

	exact := make([]byte, 5, 32)
	assert.True(t, sp.OnReturn(&exact), "a slice at the limit is kept")
	assert.Empty(t, exact)

	grown := make([]byte, 0, 33)
	assert.False(t, sp.OnReturn(&grown))
}

func TestSlicePolicy_Unbounded(t *testing.T) {
	var sp SlicePolicy[int]
	s, err := sp.Create(policy.With1(-1))
	require.NoError(t, err)
	assert.Zero(t, cap(*s))

	*s = append(*s, make([]int, 1<<16)...)
	assert.True(t, sp.OnReturn(s))
	assert.Empty(t, *s)
}

func TestMapPool(t *testing.T) {
	p, err := NewMapPool[string, int](4, pool.WithName("counts"))
	require.NoError(t, err)
	assert.Equal(t, "counts", p.Stats().Name)

	m, err := p.Rent()
	require.NoError(t, err)
	m["a"] = 1
	m["b"] = 2
	p.Return(m)

	again, err := p.Rent()
	require.NoError(t, err)
	assert.Empty(t, again)
	again["c"] = 3
	assert.Len(t, m, 1, "same map instance")
}

func TestMapPool_NilMapIgnored(t *testing.T) {
	p, err := NewMapPool[string, int](0)
	require.NoError(t, err)
	p.Return(nil)
	assert.Zero(t, p.Len())
}

func TestSetPool(t *testing.T) {
	p, err := NewSetPool[int](16)
	require.NoError(t, err)
	assert.Equal(t, "sets", p.Stats().Name)

	err = pool.Using[map[int]struct{}](p, func(s map[int]struct{}) error {
		s[1] = struct{}{}
		s[2] = struct{}{}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())

	s, _ := p.Rent()
	assert.Empty(t, s)
}

func TestContainerPools_Bounded(t *testing.T) {
	p, err := NewSetPool[string](0)
	require.NoError(t, err)

	sets := make([]map[string]struct{}, pool.DefaultMaxCapacity+10)
	for i := range sets {
		sets[i], err = p.Rent()
		require.NoError(t, err)
	}
	for _, s := range sets {
		p.Return(s)
	}
	assert.Equal(t, pool.DefaultMaxCapacity, p.Len())
}

func TestBufferPool_ResetsAndDropsGrown(t *testing.T) {
	p, err := NewBufferPool(16, 64, 4)
	require.NoError(t, err)
	assert.Equal(t, "buffers", p.Stats().Name)

	buf, err := p.Rent()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, buf.Cap(), 16)
	buf.WriteString("hello")
	p.Return(buf)

	again, err := p.Rent()
	require.NoError(t, err)
	assert.Same(t, buf, again)
	assert.Zero(t, again.Len())

	again.Write(make([]byte, 256))
	p.Return(again)
	assert.Zero(t, p.Len(), "grown buffer dropped")
}

func BenchmarkSlicePool(b *testing.B) {
	p, _ := NewSlicePool[int](64, 1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, _ := p.Rent()
		for j := 0; j < 64; j++ {
			*s = append(*s, j)
		}
		p.Return(s)
	}
}
