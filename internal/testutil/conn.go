package testutil

import (
	"sync"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// FakeConn is a model.Conn that records every event sent to it.
// Safe for concurrent use so websocket-level tests can share it.
type FakeConn struct {
	mu     sync.Mutex
	id     string
	events []model.Event
	closed bool
}

// Ensure FakeConn implements model.Conn
var _ model.Conn = (*FakeConn)(nil)

// NewFakeConn creates a FakeConn with the given connection ID
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

// ID returns the connection ID
func (c *FakeConn) ID() string {
	return c.id
}

// Send records the event
func (c *FakeConn) Send(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Close marks the connection closed
func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Events returns a copy of all recorded events
func (c *FakeConn) Events() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// EventsOfType returns recorded events of the given type
func (c *FakeConn) EventsOfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, ev := range c.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// LastOfType returns the most recent event of the given type, or false
func (c *FakeConn) LastOfType(t model.EventType) (model.Event, bool) {
	events := c.EventsOfType(t)
	if len(events) == 0 {
		return model.Event{}, false
	}
	return events[len(events)-1], true
}

// HasEvent reports whether any event of the given type was recorded
func (c *FakeConn) HasEvent(t model.EventType) bool {
	return len(c.EventsOfType(t)) > 0
}

// Reset discards all recorded events
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
