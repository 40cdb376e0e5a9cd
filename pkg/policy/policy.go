// Package policy defines the contract that parameterizes every pool in reclaim:
// how an object is created, how it is prepared for each use, and whether it is
// admitted back for reuse.
//
// A policy is usually a small struct value. The pools hold it as a type
// parameter, so calls to Create, OnRent and OnReturn are dispatched statically
// per instantiation.
//
// The construction context C carries the fixed values a policy needs to build
// and prepare objects. Policies that need nothing use None; policies that need
// one, two or three values use Args1, Args2 or Args3.
//
//	type bufferPolicy struct{}
//
//	func (bufferPolicy) Create(a policy.Args1[int]) (*bytes.Buffer, error) {
//	    return bytes.NewBuffer(make([]byte, 0, a.A)), nil
//	}
//	func (bufferPolicy) OnRent(b *bytes.Buffer, _ policy.Args1[int]) { b.Reset() }
//	func (bufferPolicy) OnReturn(b *bytes.Buffer) bool          { return b.Cap() <= 1<<20 }
package policy

// Policy is the capability contract for pooled objects of type T built with
// construction context C.
//
// Create is called only when the pool has nothing to hand out, or while
// prewarming. A non-nil error propagates to the caller and leaves the pool
// unchanged.
//
// OnRent is called exactly once per successful rent, for created and reused
// objects alike, before the object reaches the caller.
//
// OnReturn is called exactly once per return of a present object. Returning
// false discards the object; true admits it subject to capacity.
type Policy[T, C any] interface {
	Create(ctx C) (T, error)
	OnRent(obj T, ctx C)
	OnReturn(obj T) bool
}

// None is the construction context of policies that need no extra values.
type None struct{}

// Args1 carries one construction value.
type Args1[A any] struct {
	A A
}

// Args2 carries two construction values.
type Args2[A, B any] struct {
	A A
	B B
}

// Args3 carries three construction values.
type Args3[A, B, D any] struct {
	A A
	B B
	D D
}

// With1 builds an Args1.
func With1[A any](a A) Args1[A] {
	return Args1[A]{A: a}
}

// With2 builds an Args2.
func With2[A, B any](a A, b B) Args2[A, B] {
	return Args2[A, B]{A: a, B: b}
}

// With3 builds an Args3.
func With3[A, B, D any](a A, b B, d D) Args3[A, B, D] {
	return Args3[A, B, D]{A: a, B: b, D: d}
}
