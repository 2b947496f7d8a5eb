package returns

import (
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeReturn is the aggregate type carried on return events
const AggregateTypeReturn = "Return"

const (
	EventTypeReturnCreated          = "ReturnCreated"
	EventTypeReturnItemInspected    = "ReturnItemInspected"
	EventTypeReturnInspected        = "ReturnInspected"
	EventTypeReturnCompleted        = "ReturnCompleted"
	EventTypeReturnSupplierApproved = "ReturnSupplierApproved"
	EventTypeReturnSupplierRejected = "ReturnSupplierRejected"
	EventTypeReturnCancelled        = "ReturnCancelled"
)

// ReturnCreatedEvent is raised when a return document is opened
type ReturnCreatedEvent struct {
	shared.BaseDomainEvent
	ReturnID       uuid.UUID       `json:"return_id"`
	DocumentNumber string          `json:"document_number"`
	ReturnType     ReturnType      `json:"return_type"`
	Reason         string          `json:"reason"`
	LocationType   LocationType    `json:"location_type"`
	LocationID     uuid.UUID       `json:"location_id"`
	ItemCount      int             `json:"item_count"`
	TotalValue     decimal.Decimal `json:"total_value"`
}

func NewReturnCreatedEvent(r *Return) *ReturnCreatedEvent {
	return &ReturnCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCreated, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:        r.ID,
		DocumentNumber:  r.DocumentNumber,
		ReturnType:      r.Type,
		Reason:          r.Reason.String(),
		LocationType:    r.Location.Type,
		LocationID:      r.Location.ID,
		ItemCount:       len(r.Items),
		TotalValue:      r.TotalValue,
	}
}

// ReturnItemInspectedEvent is raised for each item verdict
type ReturnItemInspectedEvent struct {
	shared.BaseDomainEvent
	ReturnID              uuid.UUID        `json:"return_id"`
	DocumentNumber        string           `json:"document_number"`
	ItemIndex             int              `json:"item_index"`
	BatchID               uuid.UUID        `json:"batch_id"`
	Condition             ItemCondition    `json:"condition"`
	Decision              ItemDecision     `json:"decision"`
	MinutesOutOfControl   int              `json:"minutes_out_of_control"`
	NewFreshnessRemaining *decimal.Decimal `json:"new_freshness_remaining,omitempty"`
}

func NewReturnItemInspectedEvent(r *Return, item *ReturnItem) *ReturnItemInspectedEvent {
	return &ReturnItemInspectedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypeReturnItemInspected, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:              r.ID,
		DocumentNumber:        r.DocumentNumber,
		ItemIndex:             item.Index,
		BatchID:               item.BatchID,
		Condition:             item.Condition,
		Decision:              item.Decision,
		MinutesOutOfControl:   item.MinutesOutOfControl,
		NewFreshnessRemaining: item.NewFreshnessRemaining,
	}
}

// ReturnInspectedEvent is raised when every item has a decision
type ReturnInspectedEvent struct {
	shared.BaseDomainEvent
	ReturnID       uuid.UUID `json:"return_id"`
	DocumentNumber string    `json:"document_number"`
	InspectedBy    uuid.UUID `json:"inspected_by"`
	InspectedAt    time.Time `json:"inspected_at"`
}

func NewReturnInspectedEvent(r *Return) *ReturnInspectedEvent {
	e := &ReturnInspectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnInspected, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:        r.ID,
		DocumentNumber:  r.DocumentNumber,
	}
	if r.InspectedBy != nil {
		e.InspectedBy = *r.InspectedBy
	}
	if r.InspectedAt != nil {
		e.InspectedAt = *r.InspectedAt
	}
	return e
}

// MarkdownItem is restocked inventory the pricing service should mark down
type MarkdownItem struct {
	ItemIndex       int             `json:"item_index"`
	BatchID         uuid.UUID       `json:"batch_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	StockLocationID uuid.UUID       `json:"stock_location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// ReturnCompletedEvent is raised when completion effects have all been applied
type ReturnCompletedEvent struct {
	shared.BaseDomainEvent
	ReturnID             uuid.UUID       `json:"return_id"`
	DocumentNumber       string          `json:"document_number"`
	ReturnType           ReturnType      `json:"return_type"`
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalLoss            decimal.Decimal `json:"total_loss"`
	TotalReturnedToShelf decimal.Decimal `json:"total_returned_to_shelf"`
	WriteOffIDs          []uuid.UUID     `json:"write_off_ids,omitempty"`
	MarkdownRequested    []MarkdownItem  `json:"markdown_requested,omitempty"`
}

func NewReturnCompletedEvent(r *Return) *ReturnCompletedEvent {
	e := &ReturnCompletedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeReturnCompleted, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:             r.ID,
		DocumentNumber:       r.DocumentNumber,
		ReturnType:           r.Type,
		TotalValue:           r.TotalValue,
		TotalLoss:            r.TotalLoss,
		TotalReturnedToShelf: r.TotalReturnedToShelf,
	}
	for i := range r.Items {
		item := &r.Items[i]
		if item.CreatedWriteOffID != nil {
			e.WriteOffIDs = append(e.WriteOffIDs, *item.CreatedWriteOffID)
		}
		if item.Decision == DecisionReturnWithDiscount && item.StockLocationID != nil && item.DiscountPercent != nil {
			e.MarkdownRequested = append(e.MarkdownRequested, MarkdownItem{
				ItemIndex:       item.Index,
				BatchID:         item.BatchID,
				ProductID:       item.ProductID,
				StockLocationID: *item.StockLocationID,
				Quantity:        item.Quantity,
				DiscountPercent: *item.DiscountPercent,
			})
		}
	}
	return e
}

// ReturnSupplierApprovedEvent is raised when a supplier accepts a return
type ReturnSupplierApprovedEvent struct {
	shared.BaseDomainEvent
	ReturnID         uuid.UUID       `json:"return_id"`
	DocumentNumber   string          `json:"document_number"`
	SupplierID       *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierResponse string          `json:"supplier_response"`
	TotalValue       decimal.Decimal `json:"total_value"`
}

func NewReturnSupplierApprovedEvent(r *Return) *ReturnSupplierApprovedEvent {
	return &ReturnSupplierApprovedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReturnSupplierApproved, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:         r.ID,
		DocumentNumber:   r.DocumentNumber,
		SupplierID:       r.SupplierID,
		SupplierResponse: r.SupplierResponse,
		TotalValue:       r.TotalValue,
	}
}

// ReturnSupplierRejectedEvent is raised when a supplier refuses a return
type ReturnSupplierRejectedEvent struct {
	shared.BaseDomainEvent
	ReturnID         uuid.UUID    `json:"return_id"`
	DocumentNumber   string       `json:"document_number"`
	SupplierID       *uuid.UUID   `json:"supplier_id,omitempty"`
	SupplierResponse string       `json:"supplier_response"`
	PreviousStatus   ReturnStatus `json:"previous_status"`
}

func NewReturnSupplierRejectedEvent(r *Return, previous ReturnStatus) *ReturnSupplierRejectedEvent {
	return &ReturnSupplierRejectedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReturnSupplierRejected, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:         r.ID,
		DocumentNumber:   r.DocumentNumber,
		SupplierID:       r.SupplierID,
		SupplierResponse: r.SupplierResponse,
		PreviousStatus:   previous,
	}
}

// ReturnCancelledEvent is raised when a return is abandoned
type ReturnCancelledEvent struct {
	shared.BaseDomainEvent
	ReturnID       uuid.UUID    `json:"return_id"`
	DocumentNumber string       `json:"document_number"`
	Reason         string       `json:"reason"`
	PreviousStatus ReturnStatus `json:"previous_status"`
}

func NewReturnCancelledEvent(r *Return, reason string, previous ReturnStatus) *ReturnCancelledEvent {
	return &ReturnCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCancelled, AggregateTypeReturn, r.ID, r.SellerID),
		ReturnID:        r.ID,
		DocumentNumber:  r.DocumentNumber,
		Reason:          reason,
		PreviousStatus:  previous,
	}
}
