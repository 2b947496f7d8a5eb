package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestPublisher() *OutboxPublisher {
	serializer := NewEventSerializer()
	RegisterReturnEvents(serializer)
	return NewOutboxPublisher(serializer)
}

func countOutbox(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&n).Error)
	return n
}

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db := setupOutboxTestDB(t)
	publisher := newTestPublisher()
	ctx := context.Background()

	r := newTestReturn(t)
	events := []shared.DomainEvent{
		returns.NewReturnCreatedEvent(r),
		returns.NewReturnCancelledEvent(r, "duplicate", returns.ReturnStatusPendingInspection),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(ctx, tx, events...)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countOutbox(t, db))

	pending, err := NewGormOutboxRepository(db).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, e := range pending {
		assert.Equal(t, r.SellerID, e.SellerID)
		assert.Equal(t, r.ID, e.AggregateID)
		assert.Equal(t, shared.OutboxStatusPending, e.Status)
	}
}

func TestOutboxPublisher_RollbackDiscardsEvents(t *testing.T) {
	db := setupOutboxTestDB(t)
	publisher := newTestPublisher()
	ctx := context.Background()

	testErr := errors.New("simulated error")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.PublishWithTx(ctx, tx, returns.NewReturnCreatedEvent(newTestReturn(t))); err != nil {
			return err
		}
		return testErr
	})

	assert.Equal(t, testErr, err)
	assert.Zero(t, countOutbox(t, db))
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	db := setupOutboxTestDB(t)
	publisher := newTestPublisher()
	ctx := context.Background()

	t.Run("no events touches nothing", func(t *testing.T) {
		require.NoError(t, publisher.SaveEvents(ctx, nil))
	})

	t.Run("rejects a non-gorm transaction", func(t *testing.T) {
		err := publisher.SaveEvents(ctx, "tx", returns.NewReturnCreatedEvent(newTestReturn(t)))
		assert.ErrorContains(t, err, "must be a *gorm.DB")
	})

	t.Run("writes through the given transaction", func(t *testing.T) {
		require.NoError(t, publisher.SaveEvents(ctx, db, returns.NewReturnCreatedEvent(newTestReturn(t))))
		assert.Equal(t, int64(1), countOutbox(t, db))
	})
}

func TestOutboxPublisher_EntryOptions(t *testing.T) {
	db := setupOutboxTestDB(t)
	serializer := NewEventSerializer()
	RegisterReturnEvents(serializer)
	ctx := context.Background()

	t.Run("max retries comes from the option", func(t *testing.T) {
		publisher := NewOutboxPublisher(serializer, WithEntryMaxRetries(9))
		require.NoError(t, publisher.PublishWithTx(ctx, db, returns.NewReturnCreatedEvent(newTestReturn(t))))

		pending, err := NewGormOutboxRepository(db).FindPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 9, pending[0].MaxRetries)
	})

	t.Run("repeated event id is written once", func(t *testing.T) {
		before := countOutbox(t, db)
		event := returns.NewReturnCreatedEvent(newTestReturn(t))
		publisher := NewOutboxPublisher(serializer, WithEntryMaxRetries(0))
		require.NoError(t, publisher.PublishWithTx(ctx, db, event, event))
		assert.Equal(t, before+1, countOutbox(t, db))
	})
}
