package events

// Subscriber consumes the event stream. Implementations adapt it to a
// transport (WebSocket, SSE).
type Subscriber interface {
	// Send delivers an event. It must not block on slow clients.
	Send(Event) error

	// Close shuts the subscriber down.
	Close() error
}
