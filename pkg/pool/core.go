package pool

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// store is the LIFO storage behind a single-goroutine pool.
type store[T any] interface {
	Push(obj T) bool
	Pop() (T, bool)
	Len() int
	Cap() int
	Full() bool
	Clear()
}

// core is the bounded free-list algorithm shared by Stack and Fixed.
type core[T, C any, P policy.Policy[T, C], S store[T]] struct {
	policy   P
	ctx      C
	store    S
	kind     string
	name     string
	logger   *zap.Logger
	counters counters
}

func (c *core[T, C, P, S]) rent() (T, error) {
	obj, ok := c.store.Pop()
	if ok {
		c.counters.onReuse()
	} else {
		var err error
		obj, err = c.policy.Create(c.ctx)
		if err != nil {
			var zero T
			return zero, createFailed(c.name, err)
		}
		c.counters.onCreate()
	}
	c.policy.OnRent(obj, c.ctx)
	return obj, nil
}

func (c *core[T, C, P, S]) giveBack(obj T) {
	if policy.IsAbsent(obj) {
		return
	}
	if c.store.Full() {
		c.counters.onRejectFull()
		return
	}
	if !c.policy.OnReturn(obj) {
		c.counters.onRejectByPolicy()
		return
	}
	c.store.Push(obj)
}

// prewarm stores up to n new objects without consulting OnReturn.
func (c *core[T, C, P, S]) prewarm(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	added := 0
	for added < n && !c.store.Full() {
		obj, err := c.policy.Create(c.ctx)
		if err != nil {
			c.logger.Debug("prewarm stopped", zap.Int("added", added), zap.Error(err))
			return added, createFailed(c.name, err)
		}
		c.counters.onCreate()
		c.store.Push(obj)
		added++
	}
	c.logger.Debug("prewarmed", zap.Int("requested", n), zap.Int("added", added), zap.Int("held", c.store.Len()))
	return added, nil
}

func (c *core[T, C, P, S]) clear() {
	dropped := c.store.Len()
	c.store.Clear()
	c.logger.Debug("cleared", zap.Int("dropped", dropped))
}

func (c *core[T, C, P, S]) stats() Stats {
	s := Stats{
		Name:     c.name,
		Kind:     c.kind,
		Held:     c.store.Len(),
		Capacity: c.store.Cap(),
	}
	c.counters.fill(&s)
	return s
}
