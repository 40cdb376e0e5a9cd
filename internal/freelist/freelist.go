// Package freelist provides the unsynchronized LIFO stores behind the
// single-goroutine pools. Both stores zero a slot when it is vacated so the
// store never keeps a handed-out object reachable.
package freelist

// Growable is a slice-backed LIFO store that starts at an initial capacity and
// grows on demand up to a fixed maximum.
type Growable[T any] struct {
	items []T
	max   int
}

// NewGrowable creates a store that preallocates initial slots and never holds
// more than max items. initial is clamped to [0, max].
func NewGrowable[T any](initial, max int) *Growable[T] {
	if initial > max {
		initial = max
	}
	if initial < 0 {
		initial = 0
	}
	return &Growable[T]{
		items: make([]T, 0, initial),
		max:   max,
	}
}

// Push stores obj and reports whether there was room.
func (g *Growable[T]) Push(obj T) bool {
	if len(g.items) >= g.max {
		return false
	}
	g.items = append(g.items, obj)
	return true
}

// Pop removes the most recently pushed item.
func (g *Growable[T]) Pop() (T, bool) {
	var zero T
	n := len(g.items)
	if n == 0 {
		return zero, false
	}
	obj := g.items[n-1]
	g.items[n-1] = zero
	g.items = g.items[:n-1]
	return obj, true
}

// Len returns the number of stored items.
func (g *Growable[T]) Len() int { return len(g.items) }

// Cap returns the maximum number of items.
func (g *Growable[T]) Cap() int { return g.max }

// Full reports whether Push would fail.
func (g *Growable[T]) Full() bool { return len(g.items) >= g.max }

// Clear drops every stored item and keeps the allocated backing array.
func (g *Growable[T]) Clear() {
	clear(g.items)
	g.items = g.items[:0]
}

// Array is a fixed-capacity LIFO store over a single preallocated slice with a
// bump index. It never allocates after construction.
type Array[T any] struct {
	slots []T
	n     int
}

// NewArray creates a store with exactly capacity slots.
func NewArray[T any](capacity int) *Array[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Array[T]{slots: make([]T, capacity)}
}

// Push stores obj and reports whether there was room.
func (a *Array[T]) Push(obj T) bool {
	if a.n >= len(a.slots) {
		return false
	}
	a.slots[a.n] = obj
	a.n++
	return true
}

// Pop removes the most recently pushed item and zeroes its slot.
func (a *Array[T]) Pop() (T, bool) {
	var zero T
	if a.n == 0 {
		return zero, false
	}
	a.n--
	obj := a.slots[a.n]
	a.slots[a.n] = zero
	return obj, true
}

// Len returns the number of stored items.
func (a *Array[T]) Len() int { return a.n }

// Cap returns the number of slots.
func (a *Array[T]) Cap() int { return len(a.slots) }

// Full reports whether Push would fail.
func (a *Array[T]) Full() bool { return a.n >= len(a.slots) }

// Clear zeroes every occupied slot and resets the index.
func (a *Array[T]) Clear() {
	clear(a.slots[:a.n])
	a.n = 0
}
