package lockfree

import (
	"runtime"
	"sync/atomic"
)

// MPMCQueue implements a bounded lock-free multi-producer multi-consumer FIFO
// queue using per-slot sequence numbers, with cache-line padding to avoid false
// sharing between producers and consumers. It never allocates after
// construction.
type MPMCQueue[T any] struct {
	buffer   []slot[T]
	capacity uint64
	mask     uint64

	// Separate enqueue and dequeue indices on different cache lines
	enqueuePos atomic.Uint64
	_padding1  [7]uint64 //nolint:unused

	dequeuePos atomic.Uint64
	_padding2  [7]uint64 //nolint:unused
}

// slot is a queue cell. data is published by the sequence store and read only
// after the matching sequence load.
type slot[T any] struct {
	sequence atomic.Uint64
	data     T
}

// NewMPMCQueue creates a new multi-producer multi-consumer queue with the given capacity.
// Capacity will be rounded up to the next power of 2 for efficient masking.
func NewMPMCQueue[T any](capacity int) *MPMCQueue[T] {
	// Round up to next power of 2
	cap := uint64(1)
	for cap < uint64(capacity) {
		cap <<= 1
	}

	q := &MPMCQueue[T]{
		buffer:   make([]slot[T], cap),
		capacity: cap,
		mask:     cap - 1,
	}

	// Initialize sequence numbers
	for i := uint64(0); i < cap; i++ {
		q.buffer[i].sequence.Store(i)
	}

	return q
}

// Enqueue adds an item to the queue. Returns false if the queue is full.
func (q *MPMCQueue[T]) Enqueue(item T) bool {
	for {
		pos := q.enqueuePos.Load()
		s := &q.buffer[pos&q.mask]
		seq := s.sequence.Load()

		diff := int64(seq) - int64(pos)

		if diff == 0 {
			// Slot is ready for enqueue
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				s.data = item
				s.sequence.Store(pos + 1)
				return true
			}
		} else if diff < 0 {
			// Queue is full
			return false
		}

		// Slot not ready yet, retry
		runtime.Gosched()
	}
}

// Dequeue removes the oldest item. Returns false if the queue is empty.
func (q *MPMCQueue[T]) Dequeue() (T, bool) {
	var zero T
	for {
		pos := q.dequeuePos.Load()
		s := &q.buffer[pos&q.mask]
		seq := s.sequence.Load()

		diff := int64(seq) - int64(pos+1)

		if diff == 0 {
			// Slot is ready for dequeue
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				item := s.data
				s.data = zero
				s.sequence.Store(pos + q.capacity)
				return item, true
			}
		} else if diff < 0 {
			// Queue is empty
			return zero, false
		}

		// Slot not ready yet, retry
		runtime.Gosched()
	}
}

// TryPush enqueues item unless the queue already holds bound or more items.
// The check and the enqueue are not atomic together.
func (q *MPMCQueue[T]) TryPush(item T, bound int) bool {
	if q.Len() >= bound {
		return false
	}
	return q.Enqueue(item)
}

// Pop is Dequeue.
func (q *MPMCQueue[T]) Pop() (T, bool) {
	return q.Dequeue()
}

// Len returns the number of queued items. The value is approximate while
// other goroutines are active.
func (q *MPMCQueue[T]) Len() int {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()
	if enq <= deq {
		return 0
	}
	n := enq - deq
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// Cap returns the rounded capacity.
func (q *MPMCQueue[T]) Cap() int {
	return int(q.capacity)
}

// Drain dequeues every item and returns how many were removed.
func (q *MPMCQueue[T]) Drain() int {
	n := 0
	for {
		if _, ok := q.Dequeue(); !ok {
			return n
		}
		n++
	}
}

// AtomicCounter provides a lock-free counter for statistics collection.
type AtomicCounter struct {
	value atomic.Uint64
}

// NewAtomicCounter creates a new atomic counter initialized to zero.
func NewAtomicCounter() *AtomicCounter {
	return &AtomicCounter{}
}

// Increment atomically increments the counter by one.
func (c *AtomicCounter) Increment() {
	c.value.Add(1)
}

// Add atomically adds the given delta value to the counter.
func (c *AtomicCounter) Add(delta uint64) {
	c.value.Add(delta)
}

// Get returns the current value of the counter atomically.
func (c *AtomicCounter) Get() uint64 {
	return c.value.Load()
}

// Reset atomically resets the counter to zero.
func (c *AtomicCounter) Reset() {
	c.value.Store(0)
}
