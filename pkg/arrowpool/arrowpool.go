// Package arrowpool pools Arrow record builders for a single schema.
//
// Building a RecordBuilder allocates one field builder per column, so batch
// writers that emit many small records keep a few builders around instead:
//
//	builders, err := arrowpool.New(memory.DefaultAllocator, schema, 4)
//	rec, err := arrowpool.Build(builders, func(b *array.RecordBuilder) error {
//	    b.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
//	    return nil
//	})
//	defer rec.Release()
package arrowpool

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/pool"
)

// Context is the construction context of BuilderPolicy: the allocator (A)
// and the schema (B) of every builder.
type Context = policy.Args2[memory.Allocator, *arrow.Schema]

// Pool is a fixed-capacity pool of record builders.
type Pool = pool.Fixed[*array.RecordBuilder, Context, BuilderPolicy]

// BuilderPolicy creates record builders and admits back only builders whose
// schema matches Schema. Rejected builders are released.
type BuilderPolicy struct {
	Schema *arrow.Schema
}

func (BuilderPolicy) Create(ctx Context) (*array.RecordBuilder, error) {
	return array.NewRecordBuilder(ctx.A, ctx.B), nil
}

// OnRent empties every field builder left non-empty by its last user.
func (BuilderPolicy) OnRent(b *array.RecordBuilder, _ Context) {
	for _, fb := range b.Fields() {
		if fb.Len() > 0 {
			fb.Resize(0)
		}
	}
}

func (p BuilderPolicy) OnReturn(b *array.RecordBuilder) bool {
	if p.Schema == nil || !b.Schema().Equal(p.Schema) {
		b.Release()
		return false
	}
	return true
}

// New creates a pool holding up to capacity builders for schema. A nil
// allocator means memory.DefaultAllocator.
func New(alloc memory.Allocator, schema *arrow.Schema, capacity int, opts ...pool.Option) (*Pool, error) {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	return pool.NewFixed[*array.RecordBuilder](
		BuilderPolicy{Schema: schema},
		policy.With2(alloc, schema),
		capacity,
		append([]pool.Option{pool.WithName("arrow-builder")}, opts...)...,
	)
}

// Build rents a builder, lets fill append one batch of rows and returns the
// finished record. The builder goes back to p in every case; the caller owns
// the record and must Release it.
func Build(p *Pool, fill func(b *array.RecordBuilder) error) (arrow.Record, error) {
	b, err := p.Rent()
	if err != nil {
		return nil, err
	}
	defer p.Return(b)

	if err := fill(b); err != nil {
		return nil, err
	}
	return b.NewRecord(), nil
}
