package table

import (
	"sync/atomic"
	"time"
)

// clock hands out strictly increasing timestamps that track wall time in unix nanoseconds.
// Timestamps seen elsewhere (explicit writes, replay) are observed so the clock never issues a
// value at or below them.
type clock struct {
	last atomic.Int64
	now  func() int64
}

func newClock() *clock {
	return &clock{now: func() int64 { return time.Now().UnixNano() }}
}

func (c *clock) Now() int64 {
	for {
		last := c.last.Load()
		next := max(c.now(), last+1)
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (c *clock) Observe(ts int64) {
	for {
		last := c.last.Load()
		if ts <= last || c.last.CompareAndSwap(last, ts) {
			return
		}
	}
}
