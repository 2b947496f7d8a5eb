package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
)

// InspectionEngine applies inspector verdicts to a return. Restocking
// decisions recalculate the item's freshness from its batch.
type InspectionEngine struct {
	batches returns.BatchPort
	recalc  *returns.Recalculator
}

// NewInspectionEngine creates an InspectionEngine
func NewInspectionEngine(batches returns.BatchPort, recalc *returns.Recalculator) *InspectionEngine {
	return &InspectionEngine{batches: batches, recalc: recalc}
}

// Inspect applies one verdict. State and argument errors are returned before
// the batch is looked up.
func (e *InspectionEngine) Inspect(ctx context.Context, r *returns.Return, in returns.Inspection, now time.Time) error {
	if err := r.CheckInspectable(in.Index); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	var freshness *returns.FreshnessResult
	if in.Decision.Restocks() {
		item, err := r.Item(in.Index)
		if err != nil {
			return err
		}
		batch, err := e.batches.GetByID(ctx, item.BatchID)
		if err != nil {
			return fmt.Errorf("failed to load batch %s for return %s item %d: %w", item.BatchID, r.ID, in.Index, err)
		}
		if batch == nil {
			return shared.NewNotFoundError("Batch %s for return %s item %d not found", item.BatchID, r.ID, in.Index)
		}
		result := e.recalc.Recalculate(*batch, in.EffectiveMinutes(item), now)
		freshness = &result
	}

	return r.InspectItem(in, freshness)
}

// InspectAll applies verdicts in order with a single clock reading
func (e *InspectionEngine) InspectAll(ctx context.Context, r *returns.Return, inspections []returns.Inspection, now time.Time) error {
	for _, in := range inspections {
		if err := e.Inspect(ctx, r, in, now); err != nil {
			return err
		}
	}
	return nil
}
