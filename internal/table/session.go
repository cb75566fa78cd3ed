package table

// Session is the table's weak reference to a connected client, used only
// for routing outbound messages. The seat owns the chips; the session may
// vanish at any time.
type Session interface {
	// UserID returns the authenticated user behind the session.
	UserID() string

	// Send queues an outbound message. It must not block; implementations
	// drop or disconnect on backpressure.
	Send(event string, payload any)

	// Connected reports whether the underlying transport is still up.
	Connected() bool
}
