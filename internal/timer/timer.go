// Package timer provides the scheduling primitives for the three timer
// classes used by match sessions (startup grace, turn timer, disconnect
// grace).
//
// Timers race with state changes: a callback may fire after the state it
// was scheduled for has already moved on. Every scheduled callback
// therefore captures a generation from its owner's Token and must check it
// against the live value before acting. Bumping the token is the real
// cancellation primitive; stopping the underlying timer is an optimisation.
package timer

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the subset of clockwork.Clock the scheduler needs. Production
// code passes clockwork.NewRealClock(); tests pass a mock that fires
// callbacks synchronously.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) clockwork.Timer
}

// Token is a generation counter owned by whichever entity owns a timer
type Token struct {
	gen uint64
}

// Bump invalidates all previously captured generations and returns the new
// current one
func (t *Token) Bump() uint64 {
	t.gen++
	return t.gen
}

// Current returns the live generation
func (t *Token) Current() uint64 {
	return t.gen
}

// Matches reports whether a captured generation is still current
func (t *Token) Matches(gen uint64) bool {
	return t.gen == gen
}

// Handle wraps a scheduled callback so its owner can stop it explicitly.
// Stop on a nil handle is a no-op.
type Handle struct {
	t clockwork.Timer
}

// Stop cancels the underlying timer if it has not fired yet
func (h *Handle) Stop() {
	if h != nil && h.t != nil {
		h.t.Stop()
	}
}

// Scheduler schedules callbacks against an injected clock. Every fired
// callback is routed through the run function, which the coordinator uses
// to serialize timer expiries with inbound events.
type Scheduler struct {
	clock Clock
	run   func(func())
}

// NewScheduler creates a scheduler. A nil run function executes callbacks
// inline, which is only safe when the caller provides serialization some
// other way (tests).
func NewScheduler(clock Clock, run func(func())) *Scheduler {
	if run == nil {
		run = func(fn func()) { fn() }
	}
	return &Scheduler{clock: clock, run: run}
}

// Schedule runs fn after d, routed through the scheduler's run function
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Handle {
	return &Handle{t: s.clock.AfterFunc(d, func() { s.run(fn) })}
}

// Now returns the scheduler clock's current time
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}
