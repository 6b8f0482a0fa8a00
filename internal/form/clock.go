package form

import "sync/atomic"

// Clock is a monotonic counter.
//
// The registry uses one clock for node ids and one for journal sequence
// numbers; every control uses one for validation request ids. Values start at
// 1 and strictly increase until Reset.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next value and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset sets the clock back to 0.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
