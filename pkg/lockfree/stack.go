// Package lockfree provides lock-free data structures used as the shared tier
// of the concurrent pools.
package lockfree

import "sync/atomic"

// Stack is an unbounded lock-free LIFO stack (Treiber stack). Each push
// allocates one node; nodes are never reused, so popped nodes cannot reappear
// at the head while another goroutine still holds them.
type Stack[T any] struct {
	head      atomic.Pointer[node[T]]
	_padding1 [7]uint64 //nolint:unused

	// count is raised before a node is linked and lowered after it is
	// unlinked, so it never under-reports.
	count atomic.Int64
}

type node[T any] struct {
	value T
	next  *node[T]
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push adds v to the top of the stack.
func (s *Stack[T]) Push(v T) {
	s.count.Add(1)
	s.link(&node[T]{value: v})
}

// TryPush pushes v unless the stack already holds bound or more items. The
// check and the push are not atomic together: concurrent callers can overshoot
// bound by at most their own number.
func (s *Stack[T]) TryPush(v T, bound int) bool {
	if s.count.Load() >= int64(bound) {
		return false
	}
	s.Push(v)
	return true
}

func (s *Stack[T]) link(n *node[T]) {
	for {
		head := s.head.Load()
		n.next = head
		if s.head.CompareAndSwap(head, n) {
			return
		}
	}
}

// Pop removes and returns the top of the stack.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		head := s.head.Load()
		if head == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(head, head.next) {
			s.count.Add(-1)
			return head.value, true
		}
	}
}

// Len returns the number of items, possibly including pushes still in flight.
func (s *Stack[T]) Len() int {
	n := s.count.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Drain detaches every item at once and returns how many were removed.
func (s *Stack[T]) Drain() int {
	head := s.head.Swap(nil)
	n := 0
	for ; head != nil; head = head.next {
		n++
	}
	s.count.Add(int64(-n))
	return n
}
