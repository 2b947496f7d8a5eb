package shared

import "context"

// EventHandler reacts to relayed domain events. EventTypes lists the types it
// wants; an empty list subscribes it to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers events that have left the outbox
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an in-process publisher with a subscriber lifecycle
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events to the outbox inside the caller's transaction.
// tx is the *gorm.DB the aggregate is being saved with.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tx any, events ...DomainEvent) error
}
