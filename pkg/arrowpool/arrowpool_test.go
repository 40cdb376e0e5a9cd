package arrowpool

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reclaim/pkg/pool"
)

var particleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "x", Type: arrow.PrimitiveTypes.Float64},
}, nil)

func fillParticles(n int) func(b *array.RecordBuilder) error {
	return func(b *array.RecordBuilder) error {
		ids := b.Field(0).(*array.Int64Builder)
		xs := b.Field(1).(*array.Float64Builder)
		for i := 0; i < n; i++ {
			ids.Append(int64(i))
			xs.Append(float64(i) * 0.5)
		}
		return nil
	}
}

func TestBuild_ReusesBuilder(t *testing.T) {
	p, err := New(memory.NewGoAllocator(), particleSchema, 2)
	require.NoError(t, err)

	rec, err := Build(p, fillParticles(3))
	require.NoError(t, err)
	defer rec.Release()
	assert.EqualValues(t, 3, rec.NumRows())
	assert.Equal(t, 1, p.Len())

	first, err := p.Rent()
	require.NoError(t, err)
	p.Return(first)

	rec2, err := Build(p, fillParticles(5))
	require.NoError(t, err)
	defer rec2.Release()
	assert.EqualValues(t, 5, rec2.NumRows())

	again, err := p.Rent()
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestOnRent_ResetsAbandonedRows(t *testing.T) {
	p, err := New(nil, particleSchema, 1)
	require.NoError(t, err)

	b, err := p.Rent()
	require.NoError(t, err)
	require.NoError(t, fillParticles(4)(b))
	p.Return(b)

	b, err = p.Rent()
	require.NoError(t, err)
	for _, fb := range b.Fields() {
		assert.Zero(t, fb.Len())
	}
}

func TestBuild_FillError(t *testing.T) {
	p, err := New(nil, particleSchema, 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	rec, err := Build(p, func(*array.RecordBuilder) error { return boom })
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.Len(), "builder still returned")
}

func TestBuilderPolicy_RejectsForeignSchema(t *testing.T) {
	p, err := New(nil, particleSchema, 2)
	require.NoError(t, err)

	other := arrow.NewSchema([]arrow.Field{{Name: "name", Type: arrow.BinaryTypes.String}}, nil)
	foreign := array.NewRecordBuilder(memory.DefaultAllocator, other)
	p.Return(foreign)
	assert.Zero(t, p.Len())
}

func TestNew_InvalidCapacity(t *testing.T) {
	p, err := New(nil, particleSchema, 0)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, pool.ErrInvalidCapacity)
}
