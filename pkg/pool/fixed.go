package pool

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/internal/freelist"
	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// Fixed is a single-goroutine pool over one preallocated array of exactly
// capacity slots. It does not allocate after construction apart from what the
// policy's Create allocates. It is not safe for concurrent use.
type Fixed[T, C any, P policy.Policy[T, C]] struct {
	c core[T, C, P, *freelist.Array[T]]
}

// NewFixed creates a Fixed pool. capacity must be positive.
func NewFixed[T, C any, P policy.Policy[T, C]](p P, ctx C, capacity int, opts ...Option) (*Fixed[T, C, P], error) {
	o := buildOptions("fixed", opts)
	if capacity <= 0 {
		return nil, invalidCapacity(o.name, "capacity", capacity)
	}

	f := &Fixed[T, C, P]{
		c: core[T, C, P, *freelist.Array[T]]{
			policy: p,
			ctx:    ctx,
			store:  freelist.NewArray[T](capacity),
			kind:   "fixed",
			name:   o.name,
			logger: o.logger,
		},
	}
	o.logger.Debug("pool created", zap.Int("capacity", capacity))
	return f, nil
}

// Rent hands out the most recently returned object, or a new one from the
// policy when the pool is empty. The vacated slot is zeroed.
func (f *Fixed[T, C, P]) Rent() (T, error) {
	return f.c.rent()
}

// Return offers obj back to the pool with the same rules as Stack.Return.
func (f *Fixed[T, C, P]) Return(obj T) {
	f.c.giveBack(obj)
}

// RentScoped rents an object wrapped in a Lease that returns it to f on Release.
func (f *Fixed[T, C, P]) RentScoped() (Lease[T], error) {
	obj, err := f.c.rent()
	if err != nil {
		return Lease[T]{}, err
	}
	return newLease[T](f, obj), nil
}

// Prewarm creates up to n objects and stores them directly, stopping when the
// array is full. OnReturn is not consulted.
func (f *Fixed[T, C, P]) Prewarm(n int) (int, error) {
	return f.c.prewarm(n)
}

// Clear zeroes every occupied slot.
func (f *Fixed[T, C, P]) Clear() {
	f.c.clear()
}

// Close clears the pool. It always returns nil.
func (f *Fixed[T, C, P]) Close() error {
	f.c.clear()
	return nil
}

// Len returns the number of stored objects.
func (f *Fixed[T, C, P]) Len() int {
	return f.c.store.Len()
}

// Cap returns the number of slots.
func (f *Fixed[T, C, P]) Cap() int {
	return f.c.store.Cap()
}

// Stats returns a snapshot of the pool.
func (f *Fixed[T, C, P]) Stats() Stats {
	return f.c.stats()
}
