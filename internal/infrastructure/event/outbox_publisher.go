package event

import (
	"context"
	"fmt"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox inside the caller's
// transaction, so they commit or roll back with the aggregate.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher
type OutboxPublisherOption func(*OutboxPublisher)

// WithEntryMaxRetries sets the delivery attempts an entry gets before it is
// dead-lettered. Non-positive values keep shared.DefaultMaxRetries.
func WithEntryMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{serializer: serializer, maxRetries: shared.DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishWithTx serializes events and saves them through tx. An event id
// repeated within one call is written once.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]struct{}, len(events))
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		if _, dup := seen[event.EventID()]; dup {
			continue
		}
		seen[event.EventID()] = struct{}{}

		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("outbox: %s for %s %s: %w", event.EventType(), event.AggregateType(), event.AggregateID(), err)
		}
		entry := shared.NewOutboxEntry(event, payload)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
