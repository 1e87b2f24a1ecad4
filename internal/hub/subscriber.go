package hub

import "whereabouts/backend/internal/models"

// Subscriber is the interface for any kind of live connection (SSE
// stream, websocket, notifier bot). It abstracts the transport so the
// hub can manage all of them uniformly.
type Subscriber interface {
	// GetID returns the connection-unique identifier.
	GetID() string

	// GetSendChannel returns the channel the hub pushes events into.
	// It is buffered; a subscriber that stops draining it is dropped.
	GetSendChannel() chan<- models.Event

	// Run starts whatever pumps the transport needs.
	Run()

	// Close shuts the subscriber down and releases its channels.
	Close()
}
