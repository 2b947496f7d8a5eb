package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and timestamps of a stored record
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch bumps UpdatedAt to now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// BaseAggregateRoot carries the optimistic-lock version and the events
// raised since the aggregate was loaded
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// AddDomainEvent queues an event for the next save
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the queued events once they are in the outbox
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// SellerAggregateRoot is an aggregate owned by exactly one seller. Every
// query and mutation on it is scoped by SellerID.
type SellerAggregateRoot struct {
	BaseAggregateRoot
	SellerID uuid.UUID
}

// NewSellerAggregateRoot starts a fresh aggregate at version 1
func NewSellerAggregateRoot(sellerID uuid.UUID) SellerAggregateRoot {
	now := time.Now()
	return SellerAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{
			BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:    1,
		},
		SellerID: sellerID,
	}
}

// GetSellerID returns the owning seller
func (s *SellerAggregateRoot) GetSellerID() uuid.UUID {
	return s.SellerID
}
