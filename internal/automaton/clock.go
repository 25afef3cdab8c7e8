package automaton

import "sync/atomic"

// SequenceSource stamps replies with strictly increasing sequence numbers.
// Clock is the production implementation; tests may supply their own.
type SequenceSource interface {
	Next() int64
}

// Clock is a monotonic logical clock.
//
// Reply order is defined by Seq, never by wall time, so a trace of the same
// inputs always reads the same way.
//
// Thread-safety: safe for concurrent use, although only the run loop calls
// Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start; the next Next returns
// start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments and returns the sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
