package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOutboxRepository keeps entries in memory
type mockOutboxRepository struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
	deleted time.Time
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *mockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		cp := *e
		r.entries[e.ID] = &cp
	}
	return nil
}

func (r *mockOutboxRepository) byStatus(status shared.OutboxStatus, limit int) []*shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == status && len(result) < limit {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result
}

func (r *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	return r.byStatus(shared.OutboxStatusPending, limit), nil
}

func (r *mockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var due []*shared.OutboxEntry
	for _, e := range r.byStatus(shared.OutboxStatusFailed, limit) {
		if e.NextRetryAt != nil && !e.NextRetryAt.After(before) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (r *mockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*shared.OutboxEntry
	for _, id := range ids {
		if e, ok := r.entries[id]; ok && e.MarkProcessing() == nil {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *mockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *mockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = before
	return 0, nil
}

func (r *mockOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	dead := r.byStatus(shared.OutboxStatusDead, pageSize)
	return dead, int64(len(dead)), nil
}

func (r *mockOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, shared.NewNotFoundError("Outbox entry %s not found", id)
}

func (r *mockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *mockOutboxRepository) status(id uuid.UUID) shared.OutboxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Status
}

type processorFixture struct {
	repo       *mockOutboxRepository
	bus        *InMemoryEventBus
	serializer *EventSerializer
	processor  *OutboxProcessor
}

func newProcessorFixture(t *testing.T, cfg OutboxProcessorConfig) *processorFixture {
	t.Helper()
	logger := zap.NewNop()
	serializer := NewEventSerializer()
	RegisterReturnEvents(serializer)
	repo := newMockOutboxRepository()
	bus := NewInMemoryEventBus(logger)
	return &processorFixture{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		processor:  NewOutboxProcessor(repo, bus, serializer, cfg, logger),
	}
}

func (f *processorFixture) enqueue(t *testing.T, event shared.DomainEvent, adjust ...func(*shared.OutboxEntry)) *shared.OutboxEntry {
	t.Helper()
	payload, err := f.serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	for _, fn := range adjust {
		fn(entry)
	}
	require.NoError(t, f.repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_RelaysPendingEntries(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	handler := newTestHandler(returns.EventTypeReturnCreated)
	f.bus.Subscribe(handler)

	entry := f.enqueue(t, returns.NewReturnCreatedEvent(newTestReturn(t)))
	f.processor.processBatch(context.Background())

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, entry.EventID, handled[0].EventID())
	assert.Equal(t, shared.OutboxStatusSent, f.repo.status(entry.ID))
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	handler := newTestHandler(returns.EventTypeReturnCreated)
	handler.err = errors.New("downstream unavailable")
	f.bus.Subscribe(handler)

	entry := f.enqueue(t, returns.NewReturnCreatedEvent(newTestReturn(t)))
	f.processor.processBatch(context.Background())

	stored, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "downstream unavailable")
	require.NotNil(t, stored.NextRetryAt)
}

func TestOutboxProcessor_DeadLetterAndRetry(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	ctx := context.Background()

	entry := f.enqueue(t, returns.NewReturnCreatedEvent(newTestReturn(t)), func(e *shared.OutboxEntry) {
		e.EventType = "SomethingUnknown"
		e.MaxRetries = 1
	})

	f.processor.processBatch(ctx)
	assert.Equal(t, shared.OutboxStatusDead, f.repo.status(entry.ID))

	require.NoError(t, f.processor.RetryDead(ctx, entry.ID))
	assert.Equal(t, shared.OutboxStatusPending, f.repo.status(entry.ID))

	t.Run("only dead entries can be retried", func(t *testing.T) {
		err := f.processor.RetryDead(ctx, entry.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown entry is not found", func(t *testing.T) {
		err := f.processor.RetryDead(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(t, OutboxProcessorConfig{
		BatchSize:        10,
		PollInterval:     10 * time.Millisecond,
		CleanupEnabled:   true,
		CleanupRetention: time.Hour,
		CleanupInterval:  10 * time.Millisecond,
	})
	handler := newTestHandler()
	f.bus.Subscribe(handler)
	entry := f.enqueue(t, returns.NewReturnCreatedEvent(newTestReturn(t)))

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return f.repo.status(entry.ID) == shared.OutboxStatusSent
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(stopCtx))
	assert.Len(t, handler.getHandled(), 1)
}

func TestOutboxProcessorConfigFrom(t *testing.T) {
	cfg := OutboxProcessorConfigFrom(config.EventConfig{
		BatchSize:        25,
		PollInterval:     time.Second,
		CleanupEnabled:   false,
		CleanupRetention: 48 * time.Hour,
	})

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.False(t, cfg.CleanupEnabled)
	assert.Equal(t, 48*time.Hour, cfg.CleanupRetention)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestOutboxProcessor_CleanupUsesRetention(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	f.processor.cleanup(context.Background())

	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	assert.WithinDuration(t, time.Now().Add(-7*24*time.Hour), f.repo.deleted, time.Minute)
}

func TestOutboxProcessor_HoldsLaterEventsOfAFailedReturn(t *testing.T) {
	f := newProcessorFixture(t, DefaultOutboxProcessorConfig())
	failing := newTestHandler(returns.EventTypeReturnCreated)
	failing.err = errors.New("downstream unavailable")
	cancelled := newTestHandler(returns.EventTypeReturnCancelled)
	f.bus.Subscribe(failing)
	f.bus.Subscribe(cancelled)

	base := time.Now().Add(-time.Minute)
	at := func(offset time.Duration) func(*shared.OutboxEntry) {
		return func(e *shared.OutboxEntry) { e.CreatedAt = base.Add(offset) }
	}

	held := newTestReturn(t)
	first := f.enqueue(t, returns.NewReturnCreatedEvent(held), at(0))
	second := f.enqueue(t, returns.NewReturnCancelledEvent(held, "duplicate", returns.ReturnStatusPendingInspection), at(time.Second))

	other := newTestReturn(t)
	unrelated := f.enqueue(t, returns.NewReturnCancelledEvent(other, "wrong item", returns.ReturnStatusPendingInspection), at(2*time.Second))

	f.processor.processBatch(context.Background())

	assert.Equal(t, shared.OutboxStatusFailed, f.repo.status(first.ID))
	assert.Equal(t, shared.OutboxStatusPending, f.repo.status(second.ID), "held entry goes back to the queue")
	assert.Equal(t, shared.OutboxStatusSent, f.repo.status(unrelated.ID))

	stored, err := f.repo.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.RetryCount)

	handled := cancelled.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, other.ID, handled[0].AggregateID())
}

func TestOutboxEntry_ReleaseClaim(t *testing.T) {
	entry := shared.NewOutboxEntry(returns.NewReturnCreatedEvent(newTestReturn(t)), []byte("{}"))

	entry.ReleaseClaim()
	assert.Equal(t, shared.OutboxStatusPending, entry.Status, "unclaimed entry is untouched")

	require.NoError(t, entry.MarkProcessing())
	entry.ReleaseClaim()
	assert.Equal(t, shared.OutboxStatusPending, entry.Status)

	entry.MarkFailed("timeout")
	require.NoError(t, entry.MarkProcessing())
	entry.ReleaseClaim()
	assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.NotNil(t, entry.NextRetryAt)
}
