package pool

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/internal/freelist"
	"github.com/ajitpratap0/reclaim/pkg/lockfree"
	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// sharedTier is the cross-goroutine store of a Tiered pool.
type sharedTier[T any] interface {
	TryPush(obj T, bound int) bool
	Pop() (T, bool)
	Len() int
	Drain() int
}

// Tiered is a concurrent pool. Each worker goroutine takes its own Local
// cache from Local(); rents and returns go to that cache first, then to a
// lock-free shared tier, and rents fall back to the policy's Create.
//
// The shared tier is bounded softly: the capacity check and the push are not
// atomic together, so concurrent returns may overshoot sharedCapacity by at
// most the number of goroutines returning at once.
//
// Tiered's own Rent and Return skip the local tier and are safe for
// concurrent use. The policy must be safe for concurrent use.
type Tiered[T, C any, P policy.Policy[T, C]] struct {
	policy    P
	ctx       C
	shared    sharedTier[T]
	localCap  int
	sharedCap int
	locals    atomic.Int64

	name     string
	logger   *zap.Logger
	counters counters
}

// NewTiered creates a Tiered pool. Both capacities must be positive.
func NewTiered[T, C any, P policy.Policy[T, C]](p P, ctx C, localCapacity, sharedCapacity int, opts ...Option) (*Tiered[T, C, P], error) {
	o := buildOptions("tiered", opts)
	if localCapacity <= 0 {
		return nil, invalidCapacity(o.name, "local_capacity", localCapacity)
	}
	if sharedCapacity <= 0 {
		return nil, invalidCapacity(o.name, "shared_capacity", sharedCapacity)
	}

	var shared sharedTier[T]
	if o.sharedRing {
		shared = lockfree.NewMPMCQueue[T](sharedCapacity)
	} else {
		shared = lockfree.NewStack[T]()
	}

	t := &Tiered[T, C, P]{
		policy:    p,
		ctx:       ctx,
		shared:    shared,
		localCap:  localCapacity,
		sharedCap: sharedCapacity,
		name:      o.name,
		logger:    o.logger,
	}
	o.logger.Debug("pool created",
		zap.Int("local_capacity", localCapacity),
		zap.Int("shared_capacity", sharedCapacity),
		zap.Bool("shared_ring", o.sharedRing))
	return t, nil
}

// Local returns a new cache for the calling goroutine. A Local must only be
// used by one goroutine at a time. Its storage is allocated on first use.
func (t *Tiered[T, C, P]) Local() *Local[T, C, P] {
	t.locals.Add(1)
	return &Local[T, C, P]{pool: t}
}

// Rent takes an object from the shared tier, or creates one when it is empty.
func (t *Tiered[T, C, P]) Rent() (T, error) {
	obj, ok := t.shared.Pop()
	if ok {
		t.counters.onReuse()
	} else {
		var err error
		obj, err = t.policy.Create(t.ctx)
		if err != nil {
			var zero T
			return zero, createFailed(t.name, err)
		}
		t.counters.onCreate()
	}
	t.policy.OnRent(obj, t.ctx)
	return obj, nil
}

// Return offers obj to the shared tier. Absent objects are ignored; OnReturn
// runs before the capacity check.
func (t *Tiered[T, C, P]) Return(obj T) {
	if policy.IsAbsent(obj) {
		return
	}
	if !t.policy.OnReturn(obj) {
		t.counters.onRejectByPolicy()
		return
	}
	t.offerShared(obj)
}

func (t *Tiered[T, C, P]) offerShared(obj T) bool {
	if t.shared.TryPush(obj, t.sharedCap) {
		return true
	}
	t.counters.onRejectFull()
	return false
}

// RentScoped rents from the shared tier into a Lease that returns to t.
func (t *Tiered[T, C, P]) RentScoped() (Lease[T], error) {
	obj, err := t.Rent()
	if err != nil {
		return Lease[T]{}, err
	}
	return newLease[T](t, obj), nil
}

// Prewarm creates up to n objects directly into the shared tier, stopping at
// its capacity. OnReturn is not consulted.
//
// Concurrent returns can fill the tier between the capacity check and the
// push. The object created for that push is dropped and counted as rejected
// for a full store, and Prewarm stops.
func (t *Tiered[T, C, P]) Prewarm(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	added := 0
	for added < n && t.shared.Len() < t.sharedCap {
		obj, err := t.policy.Create(t.ctx)
		if err != nil {
			t.logger.Debug("prewarm stopped", zap.Int("added", added), zap.Error(err))
			return added, createFailed(t.name, err)
		}
		t.counters.onCreate()
		if !t.shared.TryPush(obj, t.sharedCap) {
			t.counters.onRejectFull()
			break
		}
		added++
	}
	t.logger.Debug("prewarmed", zap.Int("requested", n), zap.Int("added", added), zap.Int("held", t.shared.Len()))
	return added, nil
}

// Clear drops every object in the shared tier. Local caches belong to their
// goroutines and are cleared with Local.Clear.
func (t *Tiered[T, C, P]) Clear() {
	dropped := t.shared.Drain()
	t.logger.Debug("cleared", zap.Int("dropped", dropped))
}

// Close clears the shared tier. It always returns nil.
func (t *Tiered[T, C, P]) Close() error {
	t.Clear()
	return nil
}

// Len returns the number of objects in the shared tier.
func (t *Tiered[T, C, P]) Len() int {
	return t.shared.Len()
}

// Stats returns a snapshot of the shared tier and the pool's counters.
func (t *Tiered[T, C, P]) Stats() Stats {
	s := Stats{
		Name:          t.name,
		Kind:          "tiered",
		Held:          t.shared.Len(),
		Capacity:      t.sharedCap,
		LocalCapacity: t.localCap,
		Locals:        int(t.locals.Load()),
	}
	t.counters.fill(&s)
	return s
}

// Local is a goroutine-confined cache in front of a Tiered pool's shared
// tier. It is not safe for concurrent use.
type Local[T, C any, P policy.Policy[T, C]] struct {
	pool  *Tiered[T, C, P]
	cache *freelist.Growable[T]
}

// Rent serves from the local cache, then the shared tier, then Create.
func (l *Local[T, C, P]) Rent() (T, error) {
	if l.cache != nil {
		if obj, ok := l.cache.Pop(); ok {
			l.pool.counters.onReuse()
			l.pool.policy.OnRent(obj, l.pool.ctx)
			return obj, nil
		}
	}
	return l.pool.Rent()
}

// Return offers obj to the local cache, then to the shared tier. Absent
// objects are ignored; objects refused by OnReturn or finding both tiers full
// are dropped.
func (l *Local[T, C, P]) Return(obj T) {
	if policy.IsAbsent(obj) {
		return
	}
	t := l.pool
	if !t.policy.OnReturn(obj) {
		t.counters.onRejectByPolicy()
		return
	}
	if l.cache == nil {
		l.cache = freelist.NewGrowable[T](t.localCap, t.localCap)
	}
	if l.cache.Push(obj) {
		return
	}
	t.offerShared(obj)
}

// RentScoped rents through the local cache into a Lease that returns to l.
func (l *Local[T, C, P]) RentScoped() (Lease[T], error) {
	obj, err := l.Rent()
	if err != nil {
		return Lease[T]{}, err
	}
	return newLease[T](l, obj), nil
}

// Flush moves every cached object to the shared tier, dropping those that do
// not fit, and returns how many were moved. Call it before a worker goroutine
// exits so its objects stay reachable to others.
func (l *Local[T, C, P]) Flush() int {
	if l.cache == nil {
		return 0
	}
	moved := 0
	for {
		obj, ok := l.cache.Pop()
		if !ok {
			return moved
		}
		if l.pool.offerShared(obj) {
			moved++
		}
	}
}

// Clear drops every cached object.
func (l *Local[T, C, P]) Clear() {
	if l.cache != nil {
		l.cache.Clear()
	}
}

// Len returns the number of cached objects.
func (l *Local[T, C, P]) Len() int {
	if l.cache == nil {
		return 0
	}
	return l.cache.Len()
}

// Cap returns the local capacity.
func (l *Local[T, C, P]) Cap() int {
	return l.pool.localCap
}
