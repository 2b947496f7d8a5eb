package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
)

// EventSerializer encodes domain events as JSON and decodes them back into
// their registered Go types
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// Register makes eventType decodable. factory must return a fresh pointer.
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.factories))
	for t := range s.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// RegisterReturnEvents registers every return event so the outbox relay can
// rebuild them from stored payloads
func RegisterReturnEvents(s *EventSerializer) {
	s.Register(returns.EventTypeReturnCreated, func() shared.DomainEvent { return &returns.ReturnCreatedEvent{} })
	s.Register(returns.EventTypeReturnItemInspected, func() shared.DomainEvent { return &returns.ReturnItemInspectedEvent{} })
	s.Register(returns.EventTypeReturnInspected, func() shared.DomainEvent { return &returns.ReturnInspectedEvent{} })
	s.Register(returns.EventTypeReturnCompleted, func() shared.DomainEvent { return &returns.ReturnCompletedEvent{} })
	s.Register(returns.EventTypeReturnSupplierApproved, func() shared.DomainEvent { return &returns.ReturnSupplierApprovedEvent{} })
	s.Register(returns.EventTypeReturnSupplierRejected, func() shared.DomainEvent { return &returns.ReturnSupplierRejectedEvent{} })
	s.Register(returns.EventTypeReturnCancelled, func() shared.DomainEvent { return &returns.ReturnCancelledEvent{} })
}
