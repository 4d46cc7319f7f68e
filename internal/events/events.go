package events

import "context"

// Publisher publishes shipment event messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg ShipmentEventMessage) error
	Close() error
}

// MessageHandler handles a consumed shipment event.
type MessageHandler func(ctx context.Context, msg ShipmentEventMessage) error

// Consumer consumes shipment events from the broker.
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

const (
	// EventsQueue carries shipment state changes from the order platform.
	EventsQueue = "shipment.events"

	// EventsDLQ receives events rejected as malformed.
	EventsDLQ = "dlq.shipment.events"
)
