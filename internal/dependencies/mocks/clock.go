package mocks

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bancbannas/bulls-and-cows-server/internal/timer"
)

// MockClock is a mock implementation of timer.Clock for testing.
//
// Unlike clockwork's fake clock, Advance fires due AfterFunc callbacks
// synchronously in the calling goroutine, which keeps timer-driven state
// transitions deterministic in tests.
type MockClock struct {
	CurrentTime time.Time
	timers      []*mockTimer
}

// Ensure MockClock implements timer.Clock
var _ timer.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// AfterFunc schedules f to run when the clock is advanced past d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	t := &mockTimer{clock: c, deadline: c.CurrentTime.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration, firing due timers
// in deadline order. Callbacks run synchronously and may schedule further
// timers; those fire too if they fall within the advanced window.
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
	for {
		due := c.takeDue()
		if len(due) == 0 {
			return
		}
		for _, t := range due {
			t.fn()
		}
	}
}

// PendingTimers returns the number of scheduled, unexpired timers
func (c *MockClock) PendingTimers() int {
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (c *MockClock) takeDue() []*mockTimer {
	var due []*mockTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.deadline.After(c.CurrentTime) {
			t.fired = true
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	return due
}

// mockTimer implements clockwork.Timer for MockClock-scheduled callbacks
type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	fn       func()
	fired    bool
	stopped  bool
}

func (t *mockTimer) Chan() <-chan time.Time {
	// AfterFunc timers have no channel; mirror time.AfterFunc
	return nil
}

func (t *mockTimer) Reset(d time.Duration) bool {
	active := !t.fired && !t.stopped
	t.deadline = t.clock.CurrentTime.Add(d)
	t.fired = false
	t.stopped = false
	return active
}

func (t *mockTimer) Stop() bool {
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}
