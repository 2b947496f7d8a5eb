package returns

import (
	"context"
	"fmt"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupplierDisputeHandler resolves supplier returns. Approval removes the
// returned goods from the location's stock regardless of item decisions;
// rejection closes the return with no stock movement.
type SupplierDisputeHandler struct {
	logger *zap.Logger
}

// NewSupplierDisputeHandler creates a SupplierDisputeHandler
func NewSupplierDisputeHandler(logger *zap.Logger) *SupplierDisputeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierDisputeHandler{logger: logger}
}

// Approve removes every item's full quantity from stock and completes the
// return with zero loss. Items removed by an earlier approval are skipped.
// A return that an unfinished Complete already restocked or wrote off is
// refused with InvalidState.
func (h *SupplierDisputeHandler) Approve(ctx context.Context, stock returns.StockLocationPort, r *returns.Return, actorID uuid.UUID, response string) ([]ItemCompletionResult, error) {
	if err := r.CheckSupplierApprovable(); err != nil {
		return nil, err
	}

	results := make([]ItemCompletionResult, 0, len(r.Items))
	for i := range r.Items {
		item := &r.Items[i]
		if item.IsApplied(returns.EffectSupplierRemoval) {
			results = append(results, itemResult(item, true))
			continue
		}
		if err := h.removeStock(ctx, stock, r, item); err != nil {
			_ = r.MarkItemFailed(item.Index, returns.EffectSupplierRemoval, err)
			h.logger.Error("supplier return stock removal failed",
				zap.String("return_id", r.ID.String()),
				zap.Int("item_index", item.Index),
				zap.Error(err),
			)
			return results, fmt.Errorf("return %s item %d: %w", r.ID, item.Index, err)
		}
		results = append(results, itemResult(item, false))
	}

	if err := r.ApproveBySupplier(actorID, response); err != nil {
		return nil, err
	}
	h.logger.Info("supplier return approved",
		zap.String("return_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
	)
	return results, nil
}

func (h *SupplierDisputeHandler) removeStock(ctx context.Context, stock returns.StockLocationPort, r *returns.Return, item *returns.ReturnItem) error {
	record, err := stock.GetBatchInLocation(ctx, item.BatchID, r.Location.Type, r.Location.ID)
	if err != nil {
		return fmt.Errorf("failed to look up stock location: %w", err)
	}
	if record == nil {
		return shared.NewNotFoundError("No stock of batch %s at %s %s", item.BatchID, r.Location.Type, r.Location.ID)
	}
	updated, err := stock.ChangeQuantity(ctx, record.ID, returns.QuantityChange{
		Delta:         item.Quantity.Neg(),
		Reason:        returns.StockChangeSupplierReturn,
		ReferenceID:   r.ID,
		ReferenceType: returns.ReferenceTypeReturn,
		ReferenceLine: item.Index,
	})
	if err != nil {
		return fmt.Errorf("failed to remove stock: %w", err)
	}
	return r.MarkItemMoved(item.Index, returns.EffectSupplierRemoval, updated.ID)
}

// Reject closes the return as REJECTED
func (h *SupplierDisputeHandler) Reject(r *returns.Return, actorID uuid.UUID, response string) error {
	if err := r.RejectBySupplier(actorID, response); err != nil {
		return err
	}
	h.logger.Info("supplier return rejected",
		zap.String("return_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
	)
	return nil
}
