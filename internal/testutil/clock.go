// Package testutil provides shared test doubles: a scripted clock for
// deterministic task ID allocation and an in-memory Confluence store.
package testutil

import (
	"sync"
	"time"
)

// FixedClock returns a fixed instant from Now, optionally advancing by Step
// on every call. It satisfies merge.Clock so tests get reproducible task ID
// allocation.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock pinned at now.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// NewSteppingClock creates a clock starting at now that advances by step on
// each Now() call, simulating the wall clock moving between renders.
func NewSteppingClock(now time.Time, step time.Duration) *FixedClock {
	return &FixedClock{now: now, step: step}
}

// Now returns the clock's current instant and applies the step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set pins the clock to a new instant. Used to simulate clock jumps.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
