package returns

import "fmt"

// ReturnType identifies where goods are coming back from
type ReturnType string

const (
	ReturnTypeCustomer ReturnType = "CUSTOMER_RETURN"
	ReturnTypeDelivery ReturnType = "DELIVERY_RETURN"
	ReturnTypeSupplier ReturnType = "SUPPLIER_RETURN"
)

// IsValid checks if the type is a known ReturnType
func (t ReturnType) IsValid() bool {
	switch t {
	case ReturnTypeCustomer, ReturnTypeDelivery, ReturnTypeSupplier:
		return true
	}
	return false
}

func (t ReturnType) String() string {
	return string(t)
}

// Code returns the three-letter document number prefix for the type
func (t ReturnType) Code() string {
	switch t {
	case ReturnTypeCustomer:
		return "RTC"
	case ReturnTypeDelivery:
		return "RTD"
	case ReturnTypeSupplier:
		return "RTS"
	}
	return ""
}

// ReturnTypeFromCode is the inverse of Code
func ReturnTypeFromCode(code string) (ReturnType, bool) {
	for _, t := range []ReturnType{ReturnTypeCustomer, ReturnTypeDelivery, ReturnTypeSupplier} {
		if t.Code() == code {
			return t, true
		}
	}
	return "", false
}

// ReturnStatus represents the lifecycle position of a return
type ReturnStatus string

const (
	ReturnStatusPendingInspection ReturnStatus = "PENDING_INSPECTION"
	ReturnStatusInspected         ReturnStatus = "INSPECTED"
	ReturnStatusCompleted         ReturnStatus = "COMPLETED"
	ReturnStatusRejected          ReturnStatus = "REJECTED" // supplier returns only
	ReturnStatusCancelled         ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a known ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPendingInspection, ReturnStatusInspected, ReturnStatusCompleted,
		ReturnStatusRejected, ReturnStatusCancelled:
		return true
	}
	return false
}

func (s ReturnStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusCompleted || s == ReturnStatusRejected || s == ReturnStatusCancelled
}

// CanTransitionTo checks the status graph. REJECTED is additionally
// restricted to supplier returns by the aggregate.
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusPendingInspection:
		return target == ReturnStatusInspected || target == ReturnStatusCancelled || target == ReturnStatusRejected
	case ReturnStatusInspected:
		return target == ReturnStatusCompleted || target == ReturnStatusCancelled || target == ReturnStatusRejected
	}
	return false
}

// LocationType is the kind of physical location holding the goods
type LocationType string

const (
	LocationTypeShop      LocationType = "SHOP"
	LocationTypeWarehouse LocationType = "WAREHOUSE"
)

func (l LocationType) IsValid() bool {
	return l == LocationTypeShop || l == LocationTypeWarehouse
}

func (l LocationType) String() string {
	return string(l)
}

// ItemCondition is the inspector's assessment of a returned item
type ItemCondition string

const (
	ConditionExcellent      ItemCondition = "EXCELLENT"
	ConditionGood           ItemCondition = "GOOD"
	ConditionSatisfactory   ItemCondition = "SATISFACTORY"
	ConditionUnsatisfactory ItemCondition = "UNSATISFACTORY"
)

func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionSatisfactory, ConditionUnsatisfactory:
		return true
	}
	return false
}

// ItemDecision selects what completion does with an item
type ItemDecision string

const (
	DecisionReturnToShelf      ItemDecision = "RETURN_TO_SHELF"
	DecisionReturnWithDiscount ItemDecision = "RETURN_WITH_DISCOUNT"
	DecisionWriteOff           ItemDecision = "WRITE_OFF"
	DecisionPendingSupplier    ItemDecision = "PENDING_SUPPLIER"
)

func (d ItemDecision) IsValid() bool {
	switch d {
	case DecisionReturnToShelf, DecisionReturnWithDiscount, DecisionWriteOff, DecisionPendingSupplier:
		return true
	}
	return false
}

// Restocks reports whether the decision puts goods back into sellable stock
func (d ItemDecision) Restocks() bool {
	return d == DecisionReturnToShelf || d == DecisionReturnWithDiscount
}

// CompletionState tracks whether an item's completion effect has been applied
type CompletionState string

const (
	CompletionPending CompletionState = "PENDING"
	CompletionApplied CompletionState = "APPLIED"
	CompletionFailed  CompletionState = "FAILED"
)

// CompletionEffect names the ledger effect a completion marker belongs to.
// Complete and supplier approval apply different effects to the same item.
type CompletionEffect string

const (
	EffectNone            CompletionEffect = ""
	EffectRestock         CompletionEffect = "RESTOCK"
	EffectWriteOff        CompletionEffect = "WRITE_OFF"
	EffectDeferred        CompletionEffect = "DEFERRED"
	EffectSupplierRemoval CompletionEffect = "SUPPLIER_REMOVAL"
)

// MovesStock reports whether applying the effect changed a ledger
func (e CompletionEffect) MovesStock() bool {
	return e == EffectRestock || e == EffectWriteOff || e == EffectSupplierRemoval
}

// EffectFor returns the effect Complete applies for a decision
func EffectFor(d ItemDecision) CompletionEffect {
	switch {
	case d.Restocks():
		return EffectRestock
	case d == DecisionWriteOff:
		return EffectWriteOff
	case d == DecisionPendingSupplier:
		return EffectDeferred
	}
	return EffectNone
}

// ParseReturnType parses a wire value into a ReturnType
func ParseReturnType(s string) (ReturnType, error) {
	t := ReturnType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown return type %q", s)
	}
	return t, nil
}

// ParseReturnStatus parses a wire value into a ReturnStatus
func ParseReturnStatus(s string) (ReturnStatus, error) {
	st := ReturnStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown return status %q", s)
	}
	return st, nil
}
