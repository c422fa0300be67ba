package shared

import "context"

// EventHandler consumes relayed domain events. Delivery is at-least-once, so
// every implementation must tolerate the same event more than once.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types this handler wants; empty means all
	EventTypes() []string
}

// EventPublisher hands committed events to their consumers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers consumers
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the transport behind the outbox relay
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events into the outbox inside the caller's storage
// transaction. txProvider is the transaction handle of the storage layer.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}
