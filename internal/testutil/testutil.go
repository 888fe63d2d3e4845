// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// defaultTimeout bounds a test context when the caller passes zero.
const defaultTimeout = 5 * time.Second

// errTestTimeout is the cancellation cause of a context from Context.
var errTestTimeout = errors.New("test context timed out")

// Context returns a context cancelled at test cleanup or after timeout,
// whichever is first. The timeout shrinks to fit the test deadline.
func Context(t testing.TB, timeout time.Duration) context.Context {
	t.Helper()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if deadline, ok := t.Deadline(); ok {
		if remaining := time.Until(deadline) - time.Second; remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	ctx, cancel := context.WithTimeoutCause(context.Background(), timeout, errTestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// FakeClock is a manually advanced clock; pass Now as a controller clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock starts a clock at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the clock time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
