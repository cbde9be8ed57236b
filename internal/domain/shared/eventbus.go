package shared

import "context"

// EventHandler consumes domain events. A handler declares the event types
// it is interested in through EventTypes; declaring none means it observes
// every event, which monitoring handlers use.
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler consumes
	EventTypes() []string
}

// EventPublisher publishes domain events. Sync handlers publish through
// this port so the reply side stays decoupled from ingestion.
type EventPublisher interface {
	// Publish publishes one or more domain events
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers event handlers
type EventSubscriber interface {
	// Subscribe registers a handler under the event types it declares
	Subscribe(handler EventHandler)
	// Unsubscribe removes a handler from every event type
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start starts the event bus (e.g., background processing)
	Start(ctx context.Context) error
	// Stop gracefully stops the event bus
	Stop(ctx context.Context) error
}
