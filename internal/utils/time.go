package utils

import (
	"sync"
	"time"
)

func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock hands out strictly increasing UTC timestamps at millisecond
// resolution, the precision BSON dates keep.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockFunc is used by tests to drive time explicitly.
func NewClockFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
