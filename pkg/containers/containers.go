// Package containers provides policies and pool constructors for slices, maps
// and sets, the scratch containers most often pooled in hot loops.
//
// Containers are cleared on return so a pooled container never keeps its
// previous contents reachable:
//
//	ids, _ := containers.NewSlicePool[int](32, 4096)
//	buf, _ := ids.Rent()
//	*buf = append(*buf, 1, 2, 3)
//	ids.Return(buf)
package containers

import (
	"bytes"

	"github.com/ajitpratap0/reclaim/pkg/policy"
	"github.com/ajitpratap0/reclaim/pkg/pool"
)

// SlicePolicy pools *[]E. The context carries the initial capacity; slices
// grown past MaxRetained are dropped on return (zero keeps every slice).
type SlicePolicy[E any] struct {
	MaxRetained int
}

func (SlicePolicy[E]) Create(ctx policy.Args1[int]) (*[]E, error) {
	s := make([]E, 0, max(ctx.A, 0))
	return &s, nil
}

func (SlicePolicy[E]) OnRent(s *[]E, _ policy.Args1[int]) {
	*s = (*s)[:0]
}

func (p SlicePolicy[E]) OnReturn(s *[]E) bool {
	if p.MaxRetained > 0 && cap(*s) > p.MaxRetained {
		return false
	}
	clear((*s)[:cap(*s)])
	*s = (*s)[:0]
	return true
}

// MapPolicy pools maps created with the size hint in the context.
type MapPolicy[K comparable, V any] struct{}

func (MapPolicy[K, V]) Create(ctx policy.Args1[int]) (map[K]V, error) {
	return make(map[K]V, max(ctx.A, 0)), nil
}

func (MapPolicy[K, V]) OnRent(map[K]V, policy.Args1[int]) {}

func (MapPolicy[K, V]) OnReturn(m map[K]V) bool {
	clear(m)
	return true
}

// SetPolicy pools map[K]struct{} sets.
type SetPolicy[K comparable] struct{}

func (SetPolicy[K]) Create(ctx policy.Args1[int]) (map[K]struct{}, error) {
	return make(map[K]struct{}, max(ctx.A, 0)), nil
}

func (SetPolicy[K]) OnRent(map[K]struct{}, policy.Args1[int]) {}

func (SetPolicy[K]) OnReturn(s map[K]struct{}) bool {
	clear(s)
	return true
}

// BufferPolicy pools *bytes.Buffer. The context carries the initial
// capacity; buffers grown past MaxRetained are dropped on return (zero keeps
// every buffer).
type BufferPolicy struct {
	MaxRetained int
}

func (BufferPolicy) Create(ctx policy.Args1[int]) (*bytes.Buffer, error) {
	return bytes.NewBuffer(make([]byte, 0, max(ctx.A, 0))), nil
}

func (BufferPolicy) OnRent(b *bytes.Buffer, _ policy.Args1[int]) {
	b.Reset()
}

func (p BufferPolicy) OnReturn(b *bytes.Buffer) bool {
	return p.MaxRetained <= 0 || b.Cap() <= p.MaxRetained
}

// BufferPool is a concurrent pool of byte buffers.
type BufferPool = pool.Tiered[*bytes.Buffer, policy.Args1[int], BufferPolicy]

// NewBufferPool creates a tiered pool of buffers starting at initialSize
// bytes. shared bounds the buffers kept across goroutines.
func NewBufferPool(initialSize, maxRetained, shared int, opts ...pool.Option) (*BufferPool, error) {
	return pool.NewTiered[*bytes.Buffer](
		BufferPolicy{MaxRetained: maxRetained},
		policy.With1(initialSize),
		1, shared,
		append([]pool.Option{pool.WithName("buffers")}, opts...)...,
	)
}

// NewSlicePool creates a stack pool of slices with the given initial
// capacity. Slices grown past maxRetained are dropped on return.
func NewSlicePool[E any](initialCap, maxRetained int, opts ...pool.Option) (*pool.Stack[*[]E, policy.Args1[int], SlicePolicy[E]], error) {
	return pool.NewStack[*[]E](
		SlicePolicy[E]{MaxRetained: maxRetained},
		policy.With1(initialCap),
		pool.DefaultInitialCapacity, pool.DefaultMaxCapacity,
		append([]pool.Option{pool.WithName("slices")}, opts...)...,
	)
}

// NewMapPool creates a stack pool of maps sized with sizeHint.
func NewMapPool[K comparable, V any](sizeHint int, opts ...pool.Option) (*pool.Stack[map[K]V, policy.Args1[int], MapPolicy[K, V]], error) {
	return pool.NewStack[map[K]V](
		MapPolicy[K, V]{},
		policy.With1(sizeHint),
		pool.DefaultInitialCapacity, pool.DefaultMaxCapacity,
		append([]pool.Option{pool.WithName("maps")}, opts...)...,
	)
}

// NewSetPool creates a stack pool of sets sized with sizeHint.
func NewSetPool[K comparable](sizeHint int, opts ...pool.Option) (*pool.Stack[map[K]struct{}, policy.Args1[int], SetPolicy[K]], error) {
	return pool.NewStack[map[K]struct{}](
		SetPolicy[K]{},
		policy.With1(sizeHint),
		pool.DefaultInitialCapacity, pool.DefaultMaxCapacity,
		append([]pool.Option{pool.WithName("sets")}, opts...)...,
	)
}
