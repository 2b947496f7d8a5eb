package event

import (
	"testing"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterReturnEvents(serializer)

	t.Run("registers every return event", func(t *testing.T) {
		assert.Equal(t, []string{
			returns.EventTypeReturnCancelled,
			returns.EventTypeReturnCompleted,
			returns.EventTypeReturnCreated,
			returns.EventTypeReturnInspected,
			returns.EventTypeReturnItemInspected,
			returns.EventTypeReturnSupplierApproved,
			returns.EventTypeReturnSupplierRejected,
		}, serializer.RegisteredTypes())
		assert.False(t, serializer.IsRegistered("SalesOrderCreated"))
	})

	t.Run("restores the concrete event with its envelope", func(t *testing.T) {
		r := newTestReturn(t)
		original := returns.NewReturnCreatedEvent(r)

		data, err := serializer.Serialize(original)
		require.NoError(t, err)

		decoded, err := serializer.Deserialize(returns.EventTypeReturnCreated, data)
		require.NoError(t, err)

		created, ok := decoded.(*returns.ReturnCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, original.EventID(), created.EventID())
		assert.Equal(t, r.SellerID, created.SellerID())
		assert.Equal(t, r.ID, created.AggregateID())
		assert.Equal(t, "RTD-20260314-0001", created.DocumentNumber)
		assert.Equal(t, returns.ReturnTypeDelivery, created.ReturnType)
		assert.True(t, original.TotalValue.Equal(created.TotalValue))
	})

	t.Run("unknown type is an error", func(t *testing.T) {
		_, err := serializer.Deserialize("Nope", []byte(`{}`))
		assert.ErrorContains(t, err, "unknown event type")
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		_, err := serializer.Deserialize(returns.EventTypeReturnCancelled, []byte(`{"return_id":`))
		assert.ErrorContains(t, err, "failed to unmarshal")
	})
}
