package returns

import (
	"github.com/erp/returns/internal/domain/shared"
)

// Reason is the cause recorded for a return. It is a closed union: each return
// type has its own reason enum and only that enum can be attached to it.
type Reason interface {
	ReturnType() ReturnType
	String() string
	isReason()
}

// CustomerReason is why a shopper brought goods back
type CustomerReason string

const (
	CustomerReasonQualityIssue     CustomerReason = "QUALITY_ISSUE"
	CustomerReasonExpired          CustomerReason = "EXPIRED"
	CustomerReasonDamagedPackaging CustomerReason = "DAMAGED_PACKAGING"
	CustomerReasonWrongProduct     CustomerReason = "WRONG_PRODUCT"
	CustomerReasonNotAsDescribed   CustomerReason = "NOT_AS_DESCRIBED"
	CustomerReasonChangedMind      CustomerReason = "CHANGED_MIND"
)

func (r CustomerReason) ReturnType() ReturnType { return ReturnTypeCustomer }
func (r CustomerReason) String() string         { return string(r) }
func (CustomerReason) isReason()                {}

func (r CustomerReason) IsValid() bool {
	switch r {
	case CustomerReasonQualityIssue, CustomerReasonExpired, CustomerReasonDamagedPackaging,
		CustomerReasonWrongProduct, CustomerReasonNotAsDescribed, CustomerReasonChangedMind:
		return true
	}
	return false
}

// DeliveryReason is why a courier brought an order back undelivered
type DeliveryReason string

const (
	DeliveryReasonCustomerRefused      DeliveryReason = "CUSTOMER_REFUSED"
	DeliveryReasonCustomerUnavailable  DeliveryReason = "CUSTOMER_UNAVAILABLE"
	DeliveryReasonDamagedInTransit     DeliveryReason = "DAMAGED_IN_TRANSIT"
	DeliveryReasonTemperatureViolation DeliveryReason = "TEMPERATURE_VIOLATION"
	DeliveryReasonWrongAddress         DeliveryReason = "WRONG_ADDRESS"
	DeliveryReasonDelayed              DeliveryReason = "DELIVERY_DELAYED"
)

func (r DeliveryReason) ReturnType() ReturnType { return ReturnTypeDelivery }
func (r DeliveryReason) String() string         { return string(r) }
func (DeliveryReason) isReason()                {}

func (r DeliveryReason) IsValid() bool {
	switch r {
	case DeliveryReasonCustomerRefused, DeliveryReasonCustomerUnavailable, DeliveryReasonDamagedInTransit,
		DeliveryReasonTemperatureViolation, DeliveryReasonWrongAddress, DeliveryReasonDelayed:
		return true
	}
	return false
}

// SupplierReason is why the seller is sending goods back to a supplier
type SupplierReason string

const (
	SupplierReasonQualityIssue     SupplierReason = "QUALITY_ISSUE"
	SupplierReasonExpiredOnArrival SupplierReason = "EXPIRED_ON_ARRIVAL"
	SupplierReasonShortShelfLife   SupplierReason = "SHORT_SHELF_LIFE"
	SupplierReasonDamaged          SupplierReason = "DAMAGED"
	SupplierReasonWrongProduct     SupplierReason = "WRONG_PRODUCT"
	SupplierReasonExcessQuantity   SupplierReason = "EXCESS_QUANTITY"
)

func (r SupplierReason) ReturnType() ReturnType { return ReturnTypeSupplier }
func (r SupplierReason) String() string         { return string(r) }
func (SupplierReason) isReason()                {}

func (r SupplierReason) IsValid() bool {
	switch r {
	case SupplierReasonQualityIssue, SupplierReasonExpiredOnArrival, SupplierReasonShortShelfLife,
		SupplierReasonDamaged, SupplierReasonWrongProduct, SupplierReasonExcessQuantity:
		return true
	}
	return false
}

// ParseReason builds the reason variant belonging to t from its wire value
func ParseReason(t ReturnType, code string) (Reason, error) {
	switch t {
	case ReturnTypeCustomer:
		if r := CustomerReason(code); r.IsValid() {
			return r, nil
		}
	case ReturnTypeDelivery:
		if r := DeliveryReason(code); r.IsValid() {
			return r, nil
		}
	case ReturnTypeSupplier:
		if r := SupplierReason(code); r.IsValid() {
			return r, nil
		}
	default:
		return nil, shared.NewInvalidArgumentError("Unknown return type %q", t)
	}
	return nil, shared.NewInvalidArgumentError("Reason %q is not valid for %s", code, t)
}
