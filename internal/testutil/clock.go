package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the previous value advanced by Step, starting at
// Start. The same test therefore sees identical timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// DefaultStart is the first timestamp returned by NewStepClock clocks.
var DefaultStart = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// NewStepClock creates a clock starting at DefaultStart that advances one
// second per call.
func NewStepClock() *StepClock {
	return &StepClock{start: DefaultStart, step: time.Second}
}

// NewStepClockAt creates a clock with an explicit start and step.
func NewStepClockAt(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start.UTC(), step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many timestamps have been handed out.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns the start time again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
