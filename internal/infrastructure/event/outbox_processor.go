package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessorConfigFrom maps the event section of the app config
func OutboxProcessorConfigFrom(cfg config.EventConfig) OutboxProcessorConfig {
	out := DefaultOutboxProcessorConfig()
	if cfg.BatchSize > 0 {
		out.BatchSize = cfg.BatchSize
	}
	if cfg.PollInterval > 0 {
		out.PollInterval = cfg.PollInterval
	}
	if cfg.CleanupRetention > 0 {
		out.CleanupRetention = cfg.CleanupRetention
	}
	out.CleanupEnabled = cfg.CleanupEnabled
	return out
}

// OutboxProcessor relays outbox entries to a publisher in the background.
// Delivery is at-least-once: an entry is marked sent only after Publish
// returns nil.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start starts the background loops
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryDead puts a dead letter entry back into the pending queue
func (p *OutboxProcessor) RetryDead(ctx context.Context, id uuid.UUID) error {
	entry, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := entry.ResetForRetry(); err != nil {
		return shared.NewInvalidStateError("%s", err.Error())
	}
	return p.repo.Update(ctx, entry)
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch relays pending entries together with failed ones due for
// retry, oldest first. Once an event of a return fails, later events of the
// same return in this pass are released unpublished so consumers never see
// them out of order.
func (p *OutboxProcessor) processBatch(ctx context.Context) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	if len(pending)+len(retryable) == 0 {
		return
	}
	p.processEntries(ctx, append(retryable, pending...))
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return
	}
	sort.SliceStable(claimed, func(i, j int) bool {
		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})

	held := make(map[uuid.UUID]struct{})
	for _, entry := range claimed {
		if _, blocked := held[entry.AggregateID]; blocked {
			p.release(ctx, entry)
			continue
		}
		if !p.processEntry(ctx, entry) {
			held[entry.AggregateID] = struct{}{}
		}
	}
}

// processEntry reports whether the entry was delivered
func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) bool {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.fail(ctx, entry, "failed to deserialize event", err)
		return false
	}

	if err := p.publisher.Publish(ctx, event); err != nil {
		p.fail(ctx, entry, "failed to publish event", err)
		return false
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return true
	}
	p.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("return_id", entry.AggregateID.String()),
	)
	return true
}

func (p *OutboxProcessor) release(ctx context.Context, entry *shared.OutboxEntry) {
	entry.ReleaseClaim()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to release held entry",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event held behind a failed event of the same return",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("return_id", entry.AggregateID.String()),
	)
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, msg string, cause error) {
	p.logger.Error(msg,
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(cause),
	)

	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("seller_id", entry.SellerID.String()),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
