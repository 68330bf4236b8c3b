package reactive

import "sync/atomic"

// Clock is the monotonic version counter of a store.
//
// Every committed snapshot is stamped with a strictly increasing version from
// this clock. Mutations that produce no change do not advance it, so the
// version counts commits, not dispatches.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next version and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current version without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
