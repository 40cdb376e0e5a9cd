package pool

import (
	"errors"
	"sync"

	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// counter is the pooled object used throughout these tests.
type counter struct {
	id    int
	value int
}

// trackedState records every policy call. The mutex makes the same policy
// usable from Tiered tests.
type trackedState struct {
	mu       sync.Mutex
	nextID   int
	creates  int
	rents    int
	returns  int
	rejectID map[int]bool
	failNext error
}

type trackedPolicy struct {
	st *trackedState
}

func newTracked() trackedPolicy {
	return trackedPolicy{st: &trackedState{rejectID: map[int]bool{}}}
}

func (p trackedPolicy) Create(policy.None) (*counter, error) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	if p.st.failNext != nil {
		err := p.st.failNext
		p.st.failNext = nil
		return nil, err
	}
	p.st.nextID++
	p.st.creates++
	return &counter{id: p.st.nextID}, nil
}

func (p trackedPolicy) OnRent(obj *counter, _ policy.None) {
	p.st.mu.Lock()
	p.st.rents++
	p.st.mu.Unlock()
	obj.value = 0
}

func (p trackedPolicy) OnReturn(obj *counter) bool {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	p.st.returns++
	return !p.st.rejectID[obj.id]
}

func (p trackedPolicy) reject(obj *counter) {
	p.st.mu.Lock()
	p.st.rejectID[obj.id] = true
	p.st.mu.Unlock()
}

func (p trackedPolicy) failOnce(err error) {
	p.st.mu.Lock()
	p.st.failNext = err
	p.st.mu.Unlock()
}

func (p trackedPolicy) calls() (creates, rents, returns int) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()
	return p.st.creates, p.st.rents, p.st.returns
}

var errFactory = errors.New("factory exhausted")

// singlePool is what the Stack and Fixed tests share.
type singlePool interface {
	Pool[*counter]
	Cap() int
	Close() error
}

type poolCase struct {
	name string
	make func(p trackedPolicy, capacity int) (singlePool, error)
}

func singleCases() []poolCase {
	return []poolCase{
		{
			name: "stack",
			make: func(p trackedPolicy, capacity int) (singlePool, error) {
				return NewStack[*counter](p, policy.None{}, 1, capacity)
			},
		},
		{
			name: "fixed",
			make: func(p trackedPolicy, capacity int) (singlePool, error) {
				return NewFixed[*counter](p, policy.None{}, capacity)
			},
		},
	}
}
