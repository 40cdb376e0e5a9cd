package pool

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/internal/freelist"
	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// Default capacities used by callers that have no better estimate.
const (
	DefaultInitialCapacity = 16
	DefaultMaxCapacity     = 64
)

// Stack is a single-goroutine pool over a LIFO store that starts with
// initialCapacity preallocated slots and grows up to maxCapacity objects.
// It is not safe for concurrent use.
type Stack[T, C any, P policy.Policy[T, C]] struct {
	c core[T, C, P, *freelist.Growable[T]]
}

// NewStack creates a Stack. Both capacities must be positive; an
// initialCapacity above maxCapacity is lowered to it. T must be given
// explicitly; C and P are inferred:
//
//	p, err := pool.NewStack[*Particle](particlePolicy{}, policy.None{}, 16, 64)
func NewStack[T, C any, P policy.Policy[T, C]](p P, ctx C, initialCapacity, maxCapacity int, opts ...Option) (*Stack[T, C, P], error) {
	o := buildOptions("stack", opts)
	if initialCapacity <= 0 {
		return nil, invalidCapacity(o.name, "initial_capacity", initialCapacity)
	}
	if maxCapacity <= 0 {
		return nil, invalidCapacity(o.name, "max_capacity", maxCapacity)
	}

	s := &Stack[T, C, P]{
		c: core[T, C, P, *freelist.Growable[T]]{
			policy: p,
			ctx:    ctx,
			store:  freelist.NewGrowable[T](initialCapacity, maxCapacity),
			kind:   "stack",
			name:   o.name,
			logger: o.logger,
		},
	}
	o.logger.Debug("pool created",
		zap.Int("initial_capacity", initialCapacity),
		zap.Int("max_capacity", maxCapacity))
	return s, nil
}

// Rent hands out the most recently returned object, or a new one from the
// policy when the pool is empty. The policy's OnRent runs before Rent returns.
// A Create failure is returned wrapped and leaves the pool unchanged.
func (s *Stack[T, C, P]) Rent() (T, error) {
	return s.c.rent()
}

// Return offers obj back to the pool. Absent objects are ignored. When the
// pool is full obj is dropped without consulting the policy; otherwise it is
// stored only if the policy's OnReturn accepts it.
func (s *Stack[T, C, P]) Return(obj T) {
	s.c.giveBack(obj)
}

// RentScoped rents an object wrapped in a Lease that returns it to s on Release.
func (s *Stack[T, C, P]) RentScoped() (Lease[T], error) {
	obj, err := s.c.rent()
	if err != nil {
		return Lease[T]{}, err
	}
	return newLease[T](s, obj), nil
}

// Prewarm creates up to n objects and stores them directly, stopping when the
// pool is full. OnReturn is not consulted. It returns how many objects were
// added; on a Create failure the objects added so far stay in the pool.
func (s *Stack[T, C, P]) Prewarm(n int) (int, error) {
	return s.c.prewarm(n)
}

// Clear drops every stored object. Capacities are unchanged.
func (s *Stack[T, C, P]) Clear() {
	s.c.clear()
}

// Close clears the pool. It always returns nil.
func (s *Stack[T, C, P]) Close() error {
	s.c.clear()
	return nil
}

// Len returns the number of stored objects.
func (s *Stack[T, C, P]) Len() int {
	return s.c.store.Len()
}

// Cap returns the maximum number of stored objects.
func (s *Stack[T, C, P]) Cap() int {
	return s.c.store.Cap()
}

// Stats returns a snapshot of the pool.
func (s *Stack[T, C, P]) Stats() Stats {
	return s.c.stats()
}
