package simulation

import (
	"sync/atomic"

	"github.com/ajitpratap0/reclaim/pkg/policy"
)

const (
	frameStep = 1.0 / 60
	gravity   = -9.81
)

// Particle is the pooled object of the workload.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Age     int
	Payload []byte
}

func (p *Particle) step(seed int) {
	if p.Age == 0 {
		p.VX = float64(seed%17) - 8
		p.VY = float64(seed%29) + 1
	}
	p.VY += gravity * frameStep
	p.X += p.VX * frameStep
	p.Y += p.VY * frameStep
	if p.Y < 0 {
		p.Y = 0
		p.VY = -p.VY * 0.8
	}
	p.Age++
	for i := range p.Payload {
		p.Payload[i] = byte(p.Age + i%8)
	}
}

// policyCounters is shared by every copy of a particlePolicy.
type policyCounters struct {
	created  atomic.Int64
	returned atomic.Int64
	rejected atomic.Int64
}

// particlePolicy sizes the payload from the Args1 context and refuses every
// rejectEvery-th returned particle. Safe for concurrent use.
type particlePolicy struct {
	rejectEvery int64
	counters    *policyCounters
}

func (p particlePolicy) Create(ctx policy.Args1[int]) (*Particle, error) {
	p.counters.created.Add(1)
	return &Particle{Payload: make([]byte, ctx.A)}, nil
}

func (particlePolicy) OnRent(pt *Particle, ctx policy.Args1[int]) {
	if cap(pt.Payload) < ctx.A {
		pt.Payload = make([]byte, ctx.A)
	}
	pt.Payload = pt.Payload[:ctx.A]
}

func (p particlePolicy) OnReturn(pt *Particle) bool {
	n := p.counters.returned.Add(1)
	if p.rejectEvery > 0 && n%p.rejectEvery == 0 {
		p.counters.rejected.Add(1)
		return false
	}
	pt.X, pt.Y, pt.VX, pt.VY, pt.Age = 0, 0, 0, 0, 0
	return true
}
