package event

import (
	"context"
	"testing"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("typed handlers only see their types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newMockHandler()
		registry.Register(handler, returns.EventTypeReturnCompleted, returns.EventTypeReturnCancelled)

		assert.Len(t, registry.GetHandlers(returns.EventTypeReturnCompleted), 1)
		assert.Len(t, registry.GetHandlers(returns.EventTypeReturnCancelled), 1)
		assert.Empty(t, registry.GetHandlers(returns.EventTypeReturnCreated))
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("wildcard handlers see everything after typed ones", func(t *testing.T) {
		registry := NewHandlerRegistry()
		typed := newMockHandler()
		all := newMockHandler()
		registry.Register(all)
		registry.Register(typed, returns.EventTypeReturnCreated)

		handlers := registry.GetHandlers(returns.EventTypeReturnCreated)
		assert.Equal(t, []shared.EventHandler{typed, all}, handlers)
		assert.Equal(t, []shared.EventHandler{all}, registry.GetHandlers(returns.EventTypeReturnInspected))
	})

	t.Run("unregister removes from every type", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newMockHandler()
		other := newMockHandler()
		registry.Register(handler, returns.EventTypeReturnCreated, returns.EventTypeReturnCompleted)
		registry.Register(other, returns.EventTypeReturnCompleted)
		registry.Register(handler)

		registry.Unregister(handler)

		assert.Empty(t, registry.GetHandlers(returns.EventTypeReturnCreated))
		assert.Equal(t, []shared.EventHandler{other}, registry.GetHandlers(returns.EventTypeReturnCompleted))
		assert.Equal(t, 1, registry.Count())
	})
}
