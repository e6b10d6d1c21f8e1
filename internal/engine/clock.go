package engine

import "sync/atomic"

// Clock stamps batches with sequence numbers. Zero is never handed out.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first stamp is 1.
func NewClock() *Clock {
	return &Clock{}
}

// ResumeClock returns a clock whose first stamp is last+1, so batches of a
// new session sort after everything already recorded.
func ResumeClock(last int64) *Clock {
	c := &Clock{}
	c.last.Store(max(last, 0))
	return c
}

// Next stamps one batch.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current is the most recent stamp, or the resume point if none was issued.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
