package returns

import (
	"context"
	"fmt"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LifecycleRecorder receives return lifecycle measurements
type LifecycleRecorder interface {
	RecordCreated(ctx context.Context, returnType, locationType string, value decimal.Decimal)
	RecordItemInspected(ctx context.Context, decision string, minutesOutOfControl int)
	RecordCompleted(ctx context.Context, returnType string, loss, restocked decimal.Decimal)
	RecordSupplierOutcome(ctx context.Context, approved bool)
	RecordCancelled(ctx context.Context, previousStatus string)
}

// ReturnCompletedHandler records the financial outcome of completed returns
// and logs the loss and any markdown requests.
type ReturnCompletedHandler struct {
	recorder LifecycleRecorder
	logger   *zap.Logger
}

func NewReturnCompletedHandler(recorder LifecycleRecorder, logger *zap.Logger) *ReturnCompletedHandler {
	return &ReturnCompletedHandler{recorder: recorder, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ReturnCompletedHandler) EventTypes() []string {
	return []string{returns.EventTypeReturnCompleted}
}

// Handle processes a ReturnCompletedEvent
func (h *ReturnCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*returns.ReturnCompletedEvent)
	if !ok {
		return unexpectedEvent(returns.EventTypeReturnCompleted, event)
	}

	h.recorder.RecordCompleted(ctx, completed.ReturnType.String(), completed.TotalLoss, completed.TotalReturnedToShelf)
	h.logger.Info("return completed",
		zap.String("seller_id", completed.SellerID().String()),
		zap.String("document_number", completed.DocumentNumber),
		zap.String("total_loss", completed.TotalLoss.String()),
		zap.String("total_returned_to_shelf", completed.TotalReturnedToShelf.String()),
		zap.Int("write_offs", len(completed.WriteOffIDs)),
	)
	for _, md := range completed.MarkdownRequested {
		h.logger.Info("markdown requested",
			zap.String("document_number", completed.DocumentNumber),
			zap.String("stock_location_id", md.StockLocationID.String()),
			zap.String("discount_percent", md.DiscountPercent.String()),
		)
	}
	return nil
}

// ReturnActivityHandler counts the remaining lifecycle events.
type ReturnActivityHandler struct {
	recorder LifecycleRecorder
	logger   *zap.Logger
}

func NewReturnActivityHandler(recorder LifecycleRecorder, logger *zap.Logger) *ReturnActivityHandler {
	return &ReturnActivityHandler{recorder: recorder, logger: logger}
}

func (h *ReturnActivityHandler) EventTypes() []string {
	return []string{
		returns.EventTypeReturnCreated,
		returns.EventTypeReturnItemInspected,
		returns.EventTypeReturnSupplierApproved,
		returns.EventTypeReturnSupplierRejected,
		returns.EventTypeReturnCancelled,
	}
}

func (h *ReturnActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *returns.ReturnCreatedEvent:
		h.recorder.RecordCreated(ctx, e.ReturnType.String(), e.LocationType.String(), e.TotalValue)
	case *returns.ReturnItemInspectedEvent:
		h.recorder.RecordItemInspected(ctx, string(e.Decision), e.MinutesOutOfControl)
	case *returns.ReturnSupplierApprovedEvent:
		h.recorder.RecordSupplierOutcome(ctx, true)
	case *returns.ReturnSupplierRejectedEvent:
		h.recorder.RecordSupplierOutcome(ctx, false)
	case *returns.ReturnCancelledEvent:
		h.recorder.RecordCancelled(ctx, string(e.PreviousStatus))
		h.logger.Info("return cancelled",
			zap.String("document_number", e.DocumentNumber),
			zap.String("reason", e.Reason),
		)
	default:
		return unexpectedEvent("return lifecycle event", event)
	}
	return nil
}

func unexpectedEvent(expected string, event shared.DomainEvent) error {
	return fmt.Errorf("unexpected event type: expected %s, got %s", expected, event.EventType())
}
