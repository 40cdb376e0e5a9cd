// Package testutil provides testing utilities for reclaim
package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/reclaim/pkg/policy"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ testing.TB) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t testing.TB, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Calls counts policy invocations. It is safe for concurrent use.
type Calls struct {
	Creates  atomic.Int64
	Rents    atomic.Int64
	Returns  atomic.Int64
	Accepted atomic.Int64
}

// Recording wraps a policy and counts every call made through it.
type Recording[T, C any, P policy.Policy[T, C]] struct {
	Inner P
	Calls *Calls
}

// Record wraps inner in a Recording with fresh counters.
func Record[T, C any, P policy.Policy[T, C]](inner P) Recording[T, C, P] {
	return Recording[T, C, P]{Inner: inner, Calls: &Calls{}}
}

// Create counts and delegates.
func (r Recording[T, C, P]) Create(ctx C) (T, error) {
	obj, err := r.Inner.Create(ctx)
	if err == nil {
		r.Calls.Creates.Add(1)
	}
	return obj, err
}

// OnRent counts and delegates.
func (r Recording[T, C, P]) OnRent(obj T, ctx C) {
	r.Calls.Rents.Add(1)
	r.Inner.OnRent(obj, ctx)
}

// OnReturn counts and delegates.
func (r Recording[T, C, P]) OnReturn(obj T) bool {
	r.Calls.Returns.Add(1)
	ok := r.Inner.OnReturn(obj)
	if ok {
		r.Calls.Accepted.Add(1)
	}
	return ok
}
