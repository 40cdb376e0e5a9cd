//go:build pooldebug

package pool

import "github.com/ajitpratap0/reclaim/pkg/lockfree"

// CountersEnabled reports whether the diagnostic counters are compiled in.
const CountersEnabled = true

type counters struct {
	created        lockfree.AtomicCounter
	reused         lockfree.AtomicCounter
	rejectedFull   lockfree.AtomicCounter
	rejectedPolicy lockfree.AtomicCounter
}

func (c *counters) onCreate()         { c.created.Increment() }
func (c *counters) onReuse()          { c.reused.Increment() }
func (c *counters) onRejectFull()     { c.rejectedFull.Increment() }
func (c *counters) onRejectByPolicy() { c.rejectedPolicy.Increment() }

func (c *counters) fill(s *Stats) {
	s.Created = c.created.Get()
	s.Reused = c.reused.Get()
	s.RejectedFull = c.rejectedFull.Get()
	s.RejectedPolicy = c.rejectedPolicy.Get()
}
