package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompletionProcessor applies each item's decision to the stock and
// write-off ledgers. Items whose decision's effect is already marked applied
// are skipped, so a retried completion never restocks or writes off the same
// line twice.
type CompletionProcessor struct {
	batches returns.BatchPort
	clock   func() time.Time
	logger  *zap.Logger
}

// NewCompletionProcessor creates a CompletionProcessor
func NewCompletionProcessor(batches returns.BatchPort, clock func() time.Time, logger *zap.Logger) *CompletionProcessor {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionProcessor{batches: batches, clock: clock, logger: logger}
}

// Apply processes items in index order and stops at the first failure,
// leaving that item marked FAILED.
func (p *CompletionProcessor) Apply(ctx context.Context, repos TransactionalRepositories, r *returns.Return, actorID uuid.UUID) ([]ItemCompletionResult, error) {
	if err := r.CheckCompletable(); err != nil {
		return nil, err
	}

	results := make([]ItemCompletionResult, 0, len(r.Items))
	for i := range r.Items {
		item := &r.Items[i]
		effect := returns.EffectFor(item.Decision)
		if item.IsApplied(effect) {
			results = append(results, itemResult(item, true))
			continue
		}

		if err := p.applyItem(ctx, repos, r, item, actorID); err != nil {
			_ = r.MarkItemFailed(item.Index, effect, err)
			p.logger.Error("return item completion failed",
				zap.String("return_id", r.ID.String()),
				zap.String("document_number", r.DocumentNumber),
				zap.Int("item_index", item.Index),
				zap.String("decision", string(item.Decision)),
				zap.Error(err),
			)
			return results, fmt.Errorf("return %s item %d (%s): %w", r.ID, item.Index, item.Decision, err)
		}
		results = append(results, itemResult(item, false))
	}
	return results, nil
}

func (p *CompletionProcessor) applyItem(ctx context.Context, repos TransactionalRepositories, r *returns.Return, item *returns.ReturnItem, actorID uuid.UUID) error {
	switch {
	case item.Decision.Restocks():
		recordID, err := p.restock(ctx, repos.StockLocations(), r, item)
		if err != nil {
			return err
		}
		return r.MarkItemMoved(item.Index, returns.EffectRestock, recordID)
	case item.Decision == returns.DecisionWriteOff:
		if err := p.writeOff(ctx, repos.WriteOffs(), r, item, actorID); err != nil {
			return err
		}
		return r.MarkItemApplied(item.Index, returns.EffectWriteOff)
	case item.Decision == returns.DecisionPendingSupplier:
		// resolved later by the supplier dispute
		return r.MarkItemApplied(item.Index, returns.EffectDeferred)
	}
	return shared.NewInvariantError("Return %s item %d has no decision", r.ID, item.Index)
}

// restock adds the item back into the location's ledger row for its batch,
// creating the row seeded with the recalculated shelf life if needed.
func (p *CompletionProcessor) restock(ctx context.Context, stock returns.StockLocationPort, r *returns.Return, item *returns.ReturnItem) (uuid.UUID, error) {
	record, err := stock.GetBatchInLocation(ctx, item.BatchID, r.Location.Type, r.Location.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up stock location: %w", err)
	}

	if record != nil {
		updated, err := stock.ChangeQuantity(ctx, record.ID, returns.QuantityChange{
			Delta:         item.Quantity,
			Reason:        returns.StockChangeReturn,
			ReferenceID:   r.ID,
			ReferenceType: returns.ReferenceTypeReturn,
			ReferenceLine: item.Index,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to increase stock: %w", err)
		}
		return updated.ID, nil
	}

	expiration, freshness, err := p.seedValues(ctx, item)
	if err != nil {
		return uuid.Nil, err
	}
	created, err := stock.Create(ctx, returns.NewStockLocation{
		BatchID:                 item.BatchID,
		SellerID:                r.SellerID,
		ProductID:               item.ProductID,
		LocationType:            r.Location.Type,
		LocationID:              r.Location.ID,
		Quantity:                item.Quantity,
		EffectiveExpirationDate: expiration,
		FreshnessRemaining:      freshness,
		PurchasePrice:           item.PurchasePrice,
		ArrivedAt:               p.clock(),
		ReferenceID:             r.ID,
		ReferenceType:           returns.ReferenceTypeReturn,
		ReferenceLine:           item.Index,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create stock location: %w", err)
	}
	return created.ID, nil
}

// seedValues prefers the item's recalculated shelf life and falls back to
// the batch's own values when inspection did not produce one.
func (p *CompletionProcessor) seedValues(ctx context.Context, item *returns.ReturnItem) (time.Time, decimal.Decimal, error) {
	if item.NewEffectiveExpirationDate != nil && item.NewFreshnessRemaining != nil {
		return *item.NewEffectiveExpirationDate, *item.NewFreshnessRemaining, nil
	}
	batch, err := p.batches.GetByID(ctx, item.BatchID)
	if err != nil {
		return time.Time{}, decimal.Decimal{}, fmt.Errorf("failed to load batch %s: %w", item.BatchID, err)
	}
	if batch == nil {
		return time.Time{}, decimal.Decimal{}, shared.NewNotFoundError("Batch %s not found", item.BatchID)
	}
	return batch.EffectiveExpirationDate, batch.FreshnessRemaining, nil
}

// writeOff creates a single-line QUALITY_ISSUE write-off and confirms it. A
// write-off created by an earlier attempt is confirmed instead of recreated.
func (p *CompletionProcessor) writeOff(ctx context.Context, writeOffs returns.WriteOffPort, r *returns.Return, item *returns.ReturnItem, actorID uuid.UUID) error {
	if item.CreatedWriteOffID == nil {
		wo, err := writeOffs.Create(ctx, returns.NewWriteOff{
			SellerID:     r.SellerID,
			LocationType: r.Location.Type,
			LocationID:   r.Location.ID,
			Reason:       returns.WriteOffReasonQualityIssue,
			Items: []returns.WriteOffLine{{
				BatchID:       item.BatchID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				PurchasePrice: item.PurchasePrice,
			}},
			Comment:       fmt.Sprintf("Write-off from return %s, item %d", r.DocumentNumber, item.Index+1),
			CreatedBy:     actorID,
			ReferenceID:   r.ID,
			ReferenceLine: item.Index,
		})
		if err != nil {
			return fmt.Errorf("failed to create write-off: %w", err)
		}
		if err := r.AttachWriteOff(item.Index, wo.ID); err != nil {
			return err
		}
	}

	if err := writeOffs.Confirm(ctx, *item.CreatedWriteOffID, actorID); err != nil {
		return fmt.Errorf("failed to confirm write-off %s: %w", *item.CreatedWriteOffID, err)
	}
	return nil
}

func itemResult(item *returns.ReturnItem, alreadyApplied bool) ItemCompletionResult {
	return ItemCompletionResult{
		Index:           item.Index,
		Decision:        string(item.Decision),
		StockLocationID: item.StockLocationID,
		WriteOffID:      item.CreatedWriteOffID,
		AlreadyApplied:  alreadyApplied,
	}
}
