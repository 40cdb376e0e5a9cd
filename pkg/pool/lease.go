package pool

// Returner accepts objects back into a pool.
type Returner[T any] interface {
	Return(obj T)
}

// Renter is the rent/return surface shared by every pool kind and by Local.
type Renter[T any] interface {
	Returner[T]
	Rent() (T, error)
}

// Pool is the full surface of Stack, Fixed and Tiered.
type Pool[T any] interface {
	Renter[T]
	StatsSource
	RentScoped() (Lease[T], error)
	Prewarm(n int) (int, error)
	Clear()
	Len() int
}

// Lease holds one rented object and returns it to its pool exactly once, on
// the first call to Release. The zero Lease is already released.
//
// A Lease is meant to live in one function, typically released by defer. Do
// not copy a Lease: each copy would return the same object.
type Lease[T any] struct {
	pool   Returner[T]
	value  T
	active bool
}

func newLease[T any](r Returner[T], obj T) Lease[T] {
	return Lease[T]{pool: r, value: obj, active: true}
}

// Value returns the leased object. It panics with an error matching
// ErrLeaseReleased once the lease has been released.
func (l *Lease[T]) Value() T {
	if !l.active {
		panic(leaseReleased())
	}
	return l.value
}

// TryValue returns the leased object, or an error matching ErrLeaseReleased
// once the lease has been released.
func (l *Lease[T]) TryValue() (T, error) {
	if !l.active {
		var zero T
		return zero, leaseReleased()
	}
	return l.value, nil
}

// Active reports whether the lease still holds its object.
func (l *Lease[T]) Active() bool {
	return l.active
}

// Release returns the object to its pool. Later calls do nothing.
func (l *Lease[T]) Release() {
	if !l.active {
		return
	}
	obj, p := l.value, l.pool
	var zero T
	l.value = zero
	l.pool = nil
	l.active = false
	p.Return(obj)
}

// Using rents an object from r, passes it to fn and returns it to r when fn
// finishes, including when fn panics. The object must not be retained after
// fn returns.
func Using[T any](r Renter[T], fn func(obj T) error) error {
	obj, err := r.Rent()
	if err != nil {
		return err
	}
	defer r.Return(obj)
	return fn(obj)
}
