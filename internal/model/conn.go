package model

// Conn is a single live wire connection to a client.
//
// Connections are ephemeral: a player may hold different Conn values over
// their lifetime as they drop and reconnect. Identity always lives on the
// Player, never on the Conn.
type Conn interface {
	// ID returns a unique identifier for this connection
	ID() string

	// Send queues an event for delivery. Delivery is fire-and-forget:
	// implementations must not block and may drop the event if the peer
	// cannot keep up.
	Send(Event)

	// Close tears down the underlying connection
	Close()
}
