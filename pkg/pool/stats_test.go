package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/reclaim/pkg/policy"
)

func TestStats_Counters(t *testing.T) {
	tracked := newTracked()
	s, err := NewStack[*counter](tracked, policy.None{}, 1, 1)
	require.NoError(t, err)

	a, _ := s.Rent() // created
	s.Return(a)
	a, _ = s.Rent()  // reused
	b, _ := s.Rent() // created
	s.Return(a)
	s.Return(b)     // full
	a, _ = s.Rent() // reused
	tracked.reject(a)
	s.Return(a) // refused by policy

	st := s.Stats()
	if !CountersEnabled {
		assert.Zero(t, st.Created+st.Reused+st.Rejected(), "counters compiled out without pooldebug")
		assert.Zero(t, st.HitRate())
		return
	}
	assert.EqualValues(t, 2, st.Created)
	assert.EqualValues(t, 2, st.Reused)
	assert.EqualValues(t, 1, st.RejectedFull)
	assert.EqualValues(t, 1, st.RejectedPolicy)
	assert.EqualValues(t, 2, st.Rejected())
	assert.InDelta(t, 0.5, st.HitRate(), 1e-9)
}

func TestStats_TieredCounters(t *testing.T) {
	if !CountersEnabled {
		t.Skip("run with -tags pooldebug")
	}
	tp := newTieredForTest(t, newTracked(), 1, 1)
	_, err := tp.Prewarm(1)
	require.NoError(t, err)

	a, _ := tp.Rent()
	b, _ := tp.Rent()
	tp.Return(a)
	tp.Return(b)

	st := tp.Stats()
	assert.EqualValues(t, 2, st.Created, "prewarm counts as a create")
	assert.EqualValues(t, 1, st.Reused)
	assert.EqualValues(t, 1, st.RejectedFull)
}
