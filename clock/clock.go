// Package clock lets capture and replay run against either the monotonic
// wall clock or a manually advanced one.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Wall reads time.Now, which carries a monotonic reading.
type Wall struct{}

func (Wall) Now() time.Time { return time.Now() }

// Sim is a clock that only moves when advanced.
type Sim struct {
	mu  sync.Mutex
	now time.Time
}

func NewSim(start time.Time) *Sim {
	return &Sim{now: start}
}

func (s *Sim) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

// Since is the elapsed time between t and c.Now().
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
