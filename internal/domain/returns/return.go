package returns

import (
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Return is a return document and its line items
type Return struct {
	shared.SellerAggregateRoot
	DocumentNumber string
	Type           ReturnType
	Status         ReturnStatus
	Location       Location
	Reason         Reason

	OrderID      *uuid.UUID // customer and delivery returns
	ReceivingID  *uuid.UUID // supplier returns
	SupplierID   *uuid.UUID
	SupplierName string

	Items []ReturnItem

	TotalValue           decimal.Decimal
	TotalLoss            decimal.Decimal
	TotalReturnedToShelf decimal.Decimal

	CreatedBy           uuid.UUID
	InspectedBy         *uuid.UUID
	InspectedAt         *time.Time
	CompletedBy         *uuid.UUID
	CompletedAt         *time.Time
	SupplierResponse    string
	SupplierRespondedAt *time.Time
	SupplierRespondedBy *uuid.UUID

	Photos  []string
	Comment string
}

// NewReturnParams holds the fields shared by every return type
type NewReturnParams struct {
	SellerID       uuid.UUID
	DocumentNumber string
	Location       Location
	Items          []ItemSpec
	CreatedBy      uuid.UUID
	Comment        string
	Photos         []string
}

// SupplierRef identifies the supplier goods are going back to
type SupplierRef struct {
	ID   *uuid.UUID
	Name string
}

// NewCustomerReturn opens a return brought back by a shopper
func NewCustomerReturn(p NewReturnParams, orderID *uuid.UUID, reason CustomerReason) (*Return, error) {
	if !reason.IsValid() {
		return nil, shared.NewInvalidArgumentError("Invalid customer return reason %q", reason)
	}
	r, err := newReturn(p, ReturnTypeCustomer, reason)
	if err != nil {
		return nil, err
	}
	r.OrderID = orderID
	r.AddDomainEvent(NewReturnCreatedEvent(r))
	return r, nil
}

// NewDeliveryReturn opens a return brought back by a courier. Time in transit
// counts as uncontrolled exposure and is added to every item.
func NewDeliveryReturn(p NewReturnParams, orderID *uuid.UUID, reason DeliveryReason, deliveryTimeMinutes int) (*Return, error) {
	if !reason.IsValid() {
		return nil, shared.NewInvalidArgumentError("Invalid delivery return reason %q", reason)
	}
	if deliveryTimeMinutes < 0 {
		return nil, shared.NewInvalidArgumentError("Delivery time cannot be negative")
	}
	items := make([]ItemSpec, len(p.Items))
	for i, spec := range p.Items {
		spec.MinutesOutOfControl += deliveryTimeMinutes
		items[i] = spec
	}
	p.Items = items

	r, err := newReturn(p, ReturnTypeDelivery, reason)
	if err != nil {
		return nil, err
	}
	r.OrderID = orderID
	r.AddDomainEvent(NewReturnCreatedEvent(r))
	return r, nil
}

// NewSupplierReturn opens a return of received goods back to their supplier
func NewSupplierReturn(p NewReturnParams, supplier SupplierRef, receivingID *uuid.UUID, reason SupplierReason) (*Return, error) {
	if !reason.IsValid() {
		return nil, shared.NewInvalidArgumentError("Invalid supplier return reason %q", reason)
	}
	r, err := newReturn(p, ReturnTypeSupplier, reason)
	if err != nil {
		return nil, err
	}
	r.ReceivingID = receivingID
	r.SupplierID = supplier.ID
	r.SupplierName = supplier.Name
	r.AddDomainEvent(NewReturnCreatedEvent(r))
	return r, nil
}

func newReturn(p NewReturnParams, t ReturnType, reason Reason) (*Return, error) {
	if p.SellerID == uuid.Nil {
		return nil, shared.NewInvalidArgumentError("Seller ID cannot be empty")
	}
	number, err := ParseDocumentNumber(p.DocumentNumber)
	if err != nil {
		return nil, err
	}
	if number.Type != t {
		return nil, shared.NewInvalidArgumentError("Document number %s does not belong to %s", p.DocumentNumber, t)
	}
	if err := p.Location.Validate(); err != nil {
		return nil, err
	}
	if len(p.Items) == 0 {
		return nil, shared.NewInvalidArgumentError("A return needs at least one item")
	}

	items := make([]ReturnItem, 0, len(p.Items))
	total := decimal.Zero
	for i, spec := range p.Items {
		if err := spec.Validate(i); err != nil {
			return nil, err
		}
		item := newReturnItem(i, spec)
		total = total.Add(item.Value())
		items = append(items, item)
	}

	photos := make([]string, len(p.Photos))
	copy(photos, p.Photos)

	return &Return{
		SellerAggregateRoot:  shared.NewSellerAggregateRoot(p.SellerID),
		DocumentNumber:       p.DocumentNumber,
		Type:                 t,
		Status:               ReturnStatusPendingInspection,
		Location:             p.Location,
		Reason:               reason,
		Items:                items,
		TotalValue:           total,
		TotalLoss:            decimal.Zero,
		TotalReturnedToShelf: decimal.Zero,
		CreatedBy:            p.CreatedBy,
		Photos:               photos,
		Comment:              p.Comment,
	}, nil
}

// Item returns the item at index
func (r *Return) Item(index int) (*ReturnItem, error) {
	if index < 0 || index >= len(r.Items) {
		return nil, shared.NewInvalidArgumentError("Item index %d out of range for return %s (%d items)", index, r.ID, len(r.Items))
	}
	return &r.Items[index], nil
}

// CheckInspectable verifies item index can be inspected now
func (r *Return) CheckInspectable(index int) error {
	if r.Status != ReturnStatusPendingInspection {
		return shared.NewInvalidStateError("Cannot inspect return %s in %s status", r.ID, r.Status)
	}
	_, err := r.Item(index)
	return err
}

// InspectItem records a verdict for one item. freshness is the recalculated
// shelf life and is only stored when the decision restocks.
func (r *Return) InspectItem(in Inspection, freshness *FreshnessResult) error {
	if err := r.CheckInspectable(in.Index); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	item := &r.Items[in.Index]
	item.applyInspection(in, freshness)
	r.Touch()

	r.AddDomainEvent(NewReturnItemInspectedEvent(r, item))
	return nil
}

// UndecidedItems returns the indexes of items still missing a decision
func (r *Return) UndecidedItems() []int {
	var idx []int
	for i := range r.Items {
		if !r.Items[i].IsDecided() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CompleteInspection moves the return to INSPECTED once every item is decided
func (r *Return) CompleteInspection(inspectorID uuid.UUID) error {
	if !r.Status.CanTransitionTo(ReturnStatusInspected) {
		return shared.NewInvalidStateError("Cannot complete inspection of return %s in %s status", r.ID, r.Status)
	}
	if undecided := r.UndecidedItems(); len(undecided) > 0 {
		return shared.NewInvariantError("Return %s has items without a decision: %v", r.ID, undecided)
	}

	now := time.Now()
	r.Status = ReturnStatusInspected
	r.InspectedBy = &inspectorID
	r.InspectedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnInspectedEvent(r))
	return nil
}

// CheckCompletable verifies completion effects may be applied. A return
// whose stock a supplier approval already began removing cannot also be
// restocked or written off.
func (r *Return) CheckCompletable() error {
	if r.Status != ReturnStatusInspected {
		return shared.NewInvalidStateError("Cannot complete return %s in %s status", r.ID, r.Status)
	}
	for i := range r.Items {
		if r.Items[i].IsApplied(EffectSupplierRemoval) {
			return shared.NewInvalidStateError("Cannot complete return %s: item %d was already removed by supplier approval", r.ID, i)
		}
	}
	return nil
}

// MarkItemMoved records the ledger row an item was moved into or out of
// and marks effect applied
func (r *Return) MarkItemMoved(index int, effect CompletionEffect, stockLocationID uuid.UUID) error {
	item, err := r.Item(index)
	if err != nil {
		return err
	}
	if err := r.checkMarkable(); err != nil {
		return err
	}
	item.StockLocationID = &stockLocationID
	item.CompletionState = CompletionApplied
	item.CompletionEffect = effect
	item.CompletionError = ""
	return nil
}

// AttachWriteOff stores the write-off created for an item before it is
// confirmed, so a retry confirms the same document.
func (r *Return) AttachWriteOff(index int, writeOffID uuid.UUID) error {
	item, err := r.completionItem(index)
	if err != nil {
		return err
	}
	item.CreatedWriteOffID = &writeOffID
	return nil
}

// MarkItemApplied records that effect is done for an item
func (r *Return) MarkItemApplied(index int, effect CompletionEffect) error {
	item, err := r.Item(index)
	if err != nil {
		return err
	}
	if err := r.checkMarkable(); err != nil {
		return err
	}
	item.CompletionState = CompletionApplied
	item.CompletionEffect = effect
	item.CompletionError = ""
	return nil
}

// MarkItemFailed records a failed attempt to apply effect to an item
func (r *Return) MarkItemFailed(index int, effect CompletionEffect, cause error) error {
	item, err := r.Item(index)
	if err != nil {
		return err
	}
	if err := r.checkMarkable(); err != nil {
		return err
	}
	item.CompletionState = CompletionFailed
	item.CompletionEffect = effect
	if cause != nil {
		item.CompletionError = cause.Error()
	}
	r.Touch()
	return nil
}

func (r *Return) checkMarkable() error {
	if r.Status != ReturnStatusInspected {
		return shared.NewInvalidStateError("Cannot record completion for return %s in %s status", r.ID, r.Status)
	}
	return nil
}

func (r *Return) completionItem(index int) (*ReturnItem, error) {
	if err := r.CheckCompletable(); err != nil {
		return nil, err
	}
	return r.Item(index)
}

func (r *Return) allApplied(effectOf func(*ReturnItem) CompletionEffect) error {
	for i := range r.Items {
		item := &r.Items[i]
		if effect := effectOf(item); !item.IsApplied(effect) {
			return shared.NewInvariantError("Return %s item %d has not been applied as %s (%s %s)",
				r.ID, i, effect, item.CompletionState, item.CompletionEffect)
		}
	}
	return nil
}

// checkNoStockMoved refuses a transition that would leave ledger effects of
// a partly applied completion behind.
func (r *Return) checkNoStockMoved(action string, allowed CompletionEffect) error {
	for i := range r.Items {
		item := &r.Items[i]
		if item.HasMovedStock() && item.CompletionEffect != allowed {
			return shared.NewInvalidStateError("Cannot %s return %s: item %d already has %s applied",
				action, r.ID, i, item.CompletionEffect)
		}
	}
	return nil
}

// Complete finalizes the totals and moves the return to COMPLETED. Every item
// must already carry the applied effect of its decision.
func (r *Return) Complete(completedBy uuid.UUID) error {
	if err := r.CheckCompletable(); err != nil {
		return err
	}
	if err := r.allApplied(func(item *ReturnItem) CompletionEffect { return EffectFor(item.Decision) }); err != nil {
		return err
	}

	loss := decimal.Zero
	shelf := decimal.Zero
	for i := range r.Items {
		item := &r.Items[i]
		switch {
		case item.Decision == DecisionWriteOff:
			loss = loss.Add(item.Value())
		case item.Decision.Restocks():
			shelf = shelf.Add(item.Value())
		}
	}

	now := time.Now()
	r.TotalLoss = loss
	r.TotalReturnedToShelf = shelf
	r.Status = ReturnStatusCompleted
	r.CompletedBy = &completedBy
	r.CompletedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnCompletedEvent(r))
	return nil
}

// CheckSupplierApprovable verifies the supplier can accept this return.
// Items restocked or written off by an unfinished Complete block approval.
func (r *Return) CheckSupplierApprovable() error {
	if r.Type != ReturnTypeSupplier {
		return shared.NewPreconditionFailedError("Return %s is a %s, only supplier returns can be approved", r.ID, r.Type)
	}
	if r.Status != ReturnStatusInspected {
		return shared.NewInvalidStateError("Cannot approve supplier return %s in %s status", r.ID, r.Status)
	}
	return r.checkNoStockMoved("approve", EffectSupplierRemoval)
}

// ApproveBySupplier closes a supplier return the supplier accepted. The goods
// have left seller stock and the loss is recovered from the supplier.
func (r *Return) ApproveBySupplier(actorID uuid.UUID, response string) error {
	if err := r.CheckSupplierApprovable(); err != nil {
		return err
	}
	if err := r.allApplied(func(*ReturnItem) CompletionEffect { return EffectSupplierRemoval }); err != nil {
		return err
	}

	now := time.Now()
	r.Status = ReturnStatusCompleted
	r.TotalLoss = decimal.Zero
	r.TotalReturnedToShelf = decimal.Zero
	r.SupplierResponse = response
	r.SupplierRespondedAt = &now
	r.SupplierRespondedBy = &actorID
	r.CompletedBy = &actorID
	r.CompletedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnSupplierApprovedEvent(r))
	return nil
}

// RejectBySupplier closes a supplier return the supplier refused. Stock is
// untouched since the goods never left the seller. The return is not
// completed, so only the supplier response fields are set.
func (r *Return) RejectBySupplier(actorID uuid.UUID, response string) error {
	if r.Type != ReturnTypeSupplier {
		return shared.NewPreconditionFailedError("Return %s is a %s, only supplier returns can be rejected", r.ID, r.Type)
	}
	if !r.Status.CanTransitionTo(ReturnStatusRejected) {
		return shared.NewInvalidStateError("Cannot reject supplier return %s in %s status", r.ID, r.Status)
	}
	if err := r.checkNoStockMoved("reject", EffectNone); err != nil {
		return err
	}

	previous := r.Status
	now := time.Now()
	r.Status = ReturnStatusRejected
	r.SupplierResponse = response
	r.SupplierRespondedAt = &now
	r.SupplierRespondedBy = &actorID
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnSupplierRejectedEvent(r, previous))
	return nil
}

// Cancel abandons a return that has not reached a terminal status and has
// no ledger effects applied
func (r *Return) Cancel(reason string) error {
	if !r.Status.CanTransitionTo(ReturnStatusCancelled) {
		return shared.NewInvalidStateError("Cannot cancel return %s in %s status", r.ID, r.Status)
	}
	if err := r.checkNoStockMoved("cancel", EffectNone); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewInvalidArgumentError("Cancel reason is required")
	}

	previous := r.Status
	r.Status = ReturnStatusCancelled
	r.Comment = appendComment(r.Comment, "Cancelled: "+reason)
	r.Touch()

	r.AddDomainEvent(NewReturnCancelledEvent(r, reason, previous))
	return nil
}

// IsTerminal reports whether the return is closed
func (r *Return) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// AddPhotos attaches document-level evidence
func (r *Return) AddPhotos(photos ...string) {
	r.Photos = append(r.Photos, photos...)
	r.Touch()
}
