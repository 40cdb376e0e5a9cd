// Package reclaim is an object-pooling engine for allocation-heavy Go
// programs such as frame loops, codecs and columnar builders.
//
// # Architecture
//
// A pool is built from a policy and a pool kind:
//
//   - policy.Policy[T, C] creates objects from a context C, prepares them on
//     rent and decides on return whether they may be reused.
//   - pool.Stack is an unbounded-growth, capped stack for one goroutine.
//   - pool.Fixed preallocates a fixed array of slots for one goroutine.
//   - pool.Tiered puts goroutine-confined local caches in front of a bounded
//     shared tier that is safe for concurrent use.
//   - pool.Lease returns a rented object exactly once, whichever way the
//     caller's scope ends.
//
// Ready-made policies for slices, maps, sets and buffers live in
// pkg/containers. pkg/compression, pkg/arrowpool and pkg/jsonpool pool the
// encoders, builders and buffers of their libraries on top of the same
// engine.
//
// # Quick Start
//
//	p, err := pool.NewStack[*Particle](
//		policy.Simple(func() *Particle { return &Particle{} }, (*Particle).Reset),
//		policy.None{}, 16, 256)
//	if err != nil {
//		return err
//	}
//	particle, err := p.Rent()
//	...
//	p.Return(particle)
//
// # Observability
//
// Pools report pool.Stats snapshots. pkg/metrics exposes them to Prometheus
// and OpenTelemetry, and the reclaim command drives a frame-loop workload
// against any pool kind:
//
//	reclaim bench --kind tiered --workers 8 --frames 1000 --metrics-addr :9090
package reclaim
