package policy

import "github.com/ajitpratap0/reclaim/pkg/reclaimerrors"

// ErrNilFactory is returned by FromFuncs when no create function is supplied.
var ErrNilFactory = reclaimerrors.New(reclaimerrors.ErrorTypeValidation, "policy create function is required")

// Funcs adapts plain functions to the Policy contract. New is required; a nil
// Rent does nothing and a nil Return admits every object.
type Funcs[T, C any] struct {
	New    func(ctx C) (T, error)
	Rent   func(obj T, ctx C)
	Return func(obj T) bool
}

// FromFuncs validates fns and returns it as a policy value.
func FromFuncs[T, C any](fns Funcs[T, C]) (Funcs[T, C], error) {
	if fns.New == nil {
		return fns, ErrNilFactory
	}
	return fns, nil
}

// Simple builds a context-free policy from a constructor that cannot fail and
// an optional reset applied on rent.
func Simple[T any](newFn func() T, reset func(T)) Funcs[T, None] {
	f := Funcs[T, None]{
		New: func(None) (T, error) { return newFn(), nil },
	}
	if reset != nil {
		f.Rent = func(obj T, _ None) { reset(obj) }
	}
	return f
}

// Create calls New.
func (f Funcs[T, C]) Create(ctx C) (T, error) {
	if f.New == nil {
		var zero T
		return zero, ErrNilFactory
	}
	return f.New(ctx)
}

// OnRent calls Rent if set.
func (f Funcs[T, C]) OnRent(obj T, ctx C) {
	if f.Rent != nil {
		f.Rent(obj, ctx)
	}
}

// OnReturn calls Return if set and otherwise admits obj.
func (f Funcs[T, C]) OnReturn(obj T) bool {
	if f.Return != nil {
		return f.Return(obj)
	}
	return true
}
