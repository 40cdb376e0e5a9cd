// Package pool implements bounded object pools for latency-sensitive code that
// allocates and discards many same-shaped objects per frame or tick. Reusing
// objects instead of allocating them keeps garbage collection pressure flat.
//
// # Architecture
//
// Every pool is parameterized by a policy (see package policy) that creates
// objects, prepares them on each rent, and decides on each return whether an
// object may be reused. The policy and its construction context are type
// parameters, so policy calls are resolved per instantiation.
//
// Pool Types:
//
//   - Stack[T, C, P]: single-goroutine pool over a growable LIFO store
//   - Fixed[T, C, P]: single-goroutine pool over one preallocated array
//   - Tiered[T, C, P]: concurrent pool with per-goroutine Local caches in
//     front of a lock-free shared tier
//   - Lease[T]: scoped handle that returns its object exactly once
//
// # Usage Patterns
//
// Single-goroutine pool:
//
//	p, err := pool.NewStack[*Particle](particlePolicy{}, policy.None{}, 16, 64)
//	if err != nil {
//		return err
//	}
//	obj, err := p.Rent()
//	if err != nil {
//		return err
//	}
//	defer p.Return(obj)
//
// Scoped acquisition:
//
//	lease, err := p.RentScoped()
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//	lease.Value().X = 1
//
// Concurrent pool, one Local per worker goroutine:
//
//	shared, _ := pool.NewTiered[*Frame](framePolicy{}, policy.With1(1024), 16, 256)
//	for i := 0; i < workers; i++ {
//		go func() {
//			local := shared.Local()
//			defer local.Flush()
//			for job := range jobs {
//				f, _ := local.Rent()
//				process(job, f)
//				local.Return(f)
//			}
//		}()
//	}
//
// # Rent and Return
//
// Rent serves the most recently returned object if one is stored, otherwise
// it calls the policy's Create. OnRent runs on every rented object. Return
// ignores absent objects (nil pointers, maps, slices and the like), drops the
// object when the store is full, and otherwise stores it only if OnReturn
// accepts it. Prewarm fills a store with freshly created objects without
// consulting OnReturn.
//
// # Goroutine Safety
//
// Stack, Fixed and Local are not safe for concurrent use. Tiered is: its
// shared tier is lock-free and bounded softly, so concurrent returns can
// overshoot the shared capacity by at most the number of goroutines returning
// at the same moment.
//
// Pools track no object identity. Returning an object twice, or using it after
// returning it, is not detected.
//
// # Metrics
//
// Stats reports the current occupancy and capacity of a pool. The created,
// reused and rejected counters are compiled in only with the pooldebug build
// tag:
//
//	go test -tags pooldebug ./...
//
// Without the tag those counters read zero and the Rent and Return paths
// carry no counting code.
package pool
