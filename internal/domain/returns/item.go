package returns

import (
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemSpec describes one line of a return at creation time
type ItemSpec struct {
	BatchID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            decimal.Decimal
	MinutesOutOfControl int
	PurchasePrice       decimal.Decimal
	Comment             string
	Photos              []string
}

// Validate checks a line before it becomes part of a return
func (s ItemSpec) Validate(index int) error {
	if s.BatchID == uuid.Nil {
		return shared.NewInvalidArgumentError("Item %d: batch ID cannot be empty", index)
	}
	if s.ProductID == uuid.Nil {
		return shared.NewInvalidArgumentError("Item %d: product ID cannot be empty", index)
	}
	if !s.Quantity.IsPositive() {
		return shared.NewInvalidArgumentError("Item %d: quantity must be positive, got %s", index, s.Quantity)
	}
	if s.PurchasePrice.IsNegative() {
		return shared.NewInvalidArgumentError("Item %d: purchase price cannot be negative", index)
	}
	if s.MinutesOutOfControl < 0 {
		return shared.NewInvalidArgumentError("Item %d: minutes out of control cannot be negative", index)
	}
	return nil
}

// ReturnItem is one line of a return. Items are addressed by Index, which
// never changes once the return is created.
type ReturnItem struct {
	Index               int
	BatchID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            decimal.Decimal
	MinutesOutOfControl int
	PurchasePrice       decimal.Decimal
	Comment             string
	Photos              []string

	// Set by inspection
	Condition                  ItemCondition
	Decision                   ItemDecision
	DiscountPercent            *decimal.Decimal
	NewEffectiveExpirationDate *time.Time
	NewFreshnessRemaining      *decimal.Decimal

	// Set by completion
	CompletionState   CompletionState
	CompletionEffect  CompletionEffect
	CompletionError   string
	StockLocationID   *uuid.UUID
	CreatedWriteOffID *uuid.UUID
}

func newReturnItem(index int, spec ItemSpec) ReturnItem {
	photos := make([]string, len(spec.Photos))
	copy(photos, spec.Photos)
	return ReturnItem{
		Index:               index,
		BatchID:             spec.BatchID,
		ProductID:           spec.ProductID,
		Quantity:            spec.Quantity,
		MinutesOutOfControl: spec.MinutesOutOfControl,
		PurchasePrice:       spec.PurchasePrice,
		Comment:             spec.Comment,
		Photos:              photos,
		CompletionState:     CompletionPending,
	}
}

// Value is purchase price times quantity
func (i *ReturnItem) Value() decimal.Decimal {
	return i.PurchasePrice.Mul(i.Quantity)
}

// IsDecided reports whether inspection has set a decision
func (i *ReturnItem) IsDecided() bool {
	return i.Decision != ""
}

// IsApplied reports whether effect was already applied to this item
func (i *ReturnItem) IsApplied(effect CompletionEffect) bool {
	return i.CompletionState == CompletionApplied && i.CompletionEffect == effect
}

// HasMovedStock reports whether an applied marker records a ledger change
func (i *ReturnItem) HasMovedStock() bool {
	return i.CompletionState == CompletionApplied && i.CompletionEffect.MovesStock()
}

// Inspection is the inspector's verdict on one item
type Inspection struct {
	Index               int
	Condition           ItemCondition
	Decision            ItemDecision
	DiscountPercent     *decimal.Decimal
	MinutesOutOfControl *int
	Comment             string
	Photos              []string
}

// Validate checks the verdict is self-consistent
func (in Inspection) Validate() error {
	if !in.Condition.IsValid() {
		return shared.NewInvalidArgumentError("Item %d: invalid condition %q", in.Index, in.Condition)
	}
	if !in.Decision.IsValid() {
		return shared.NewInvalidArgumentError("Item %d: invalid decision %q", in.Index, in.Decision)
	}
	if in.Decision == DecisionReturnWithDiscount && in.DiscountPercent == nil {
		return shared.NewInvalidArgumentError("Item %d: discount percent is required for %s", in.Index, in.Decision)
	}
	if in.DiscountPercent != nil && (in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred)) {
		return shared.NewInvalidArgumentError("Item %d: discount percent must be between 0 and 100", in.Index)
	}
	if in.MinutesOutOfControl != nil && *in.MinutesOutOfControl < 0 {
		return shared.NewInvalidArgumentError("Item %d: minutes out of control cannot be negative", in.Index)
	}
	return nil
}

// EffectiveMinutes is the exposure time inspection should use for item
func (in Inspection) EffectiveMinutes(item *ReturnItem) int {
	if in.MinutesOutOfControl != nil {
		return *in.MinutesOutOfControl
	}
	return item.MinutesOutOfControl
}

func (i *ReturnItem) applyInspection(in Inspection, freshness *FreshnessResult) {
	i.Condition = in.Condition
	i.Decision = in.Decision
	i.MinutesOutOfControl = in.EffectiveMinutes(i)
	i.DiscountPercent = nil
	if in.DiscountPercent != nil {
		d := *in.DiscountPercent
		i.DiscountPercent = &d
	}
	i.Comment = appendComment(i.Comment, in.Comment)
	i.Photos = append(i.Photos, in.Photos...)

	i.NewEffectiveExpirationDate = nil
	i.NewFreshnessRemaining = nil
	if in.Decision.Restocks() && freshness != nil {
		exp := freshness.EffectiveExpirationDate
		fr := freshness.FreshnessRemaining
		i.NewEffectiveExpirationDate = &exp
		i.NewFreshnessRemaining = &fr
	}
}

func appendComment(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}
