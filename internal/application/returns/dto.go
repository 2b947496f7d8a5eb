package returns

import (
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocationInput identifies the shop or warehouse a return is received at
type LocationInput struct {
	Type returns.LocationType
	ID   uuid.UUID
	Name string
}

// ItemInput is one line of a create request
type ItemInput struct {
	BatchID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            decimal.Decimal
	MinutesOutOfControl int
	PurchasePrice       decimal.Decimal
	Comment             string
	Photos              []string
}

// CreateCustomerReturnRequest opens a customer return
type CreateCustomerReturnRequest struct {
	Location  LocationInput
	OrderID   *uuid.UUID
	Reason    returns.CustomerReason
	Items     []ItemInput
	Comment   string
	Photos    []string
	CreatedBy uuid.UUID
}

// CreateDeliveryReturnRequest opens a delivery return
type CreateDeliveryReturnRequest struct {
	Location            LocationInput
	OrderID             *uuid.UUID
	Reason              returns.DeliveryReason
	DeliveryTimeMinutes int
	Items               []ItemInput
	Comment             string
	Photos              []string
	CreatedBy           uuid.UUID
}

// CreateSupplierReturnRequest opens a supplier return
type CreateSupplierReturnRequest struct {
	Location     LocationInput
	ReceivingID  *uuid.UUID
	SupplierID   *uuid.UUID
	SupplierName string
	Reason       returns.SupplierReason
	Items        []ItemInput
	Comment      string
	Photos       []string
	CreatedBy    uuid.UUID
}

// InspectItemRequest is a verdict for one item
type InspectItemRequest struct {
	Index               int
	Condition           returns.ItemCondition
	Decision            returns.ItemDecision
	DiscountPercent     *decimal.Decimal
	MinutesOutOfControl *int
	Comment             string
	Photos              []string
}

func (r InspectItemRequest) toInspection() returns.Inspection {
	return returns.Inspection{
		Index:               r.Index,
		Condition:           r.Condition,
		Decision:            r.Decision,
		DiscountPercent:     r.DiscountPercent,
		MinutesOutOfControl: r.MinutesOutOfControl,
		Comment:             r.Comment,
		Photos:              r.Photos,
	}
}

// CompleteInspectionRequest applies several verdicts and closes inspection
type CompleteInspectionRequest struct {
	Items       []InspectItemRequest
	InspectorID uuid.UUID
}

// ReturnItemResponse is the API view of a return item
type ReturnItemResponse struct {
	Index                      int              `json:"index"`
	BatchID                    uuid.UUID        `json:"batch_id"`
	ProductID                  uuid.UUID        `json:"product_id"`
	Quantity                   decimal.Decimal  `json:"quantity"`
	MinutesOutOfControl        int              `json:"minutes_out_of_control"`
	PurchasePrice              decimal.Decimal  `json:"purchase_price"`
	Condition                  string           `json:"condition,omitempty"`
	Decision                   string           `json:"decision,omitempty"`
	DiscountPercent            *decimal.Decimal `json:"discount_percent,omitempty"`
	NewEffectiveExpirationDate *time.Time       `json:"new_effective_expiration_date,omitempty"`
	NewFreshnessRemaining      *decimal.Decimal `json:"new_freshness_remaining,omitempty"`
	Comment                    string           `json:"comment,omitempty"`
	Photos                     []string         `json:"photos,omitempty"`
	CompletionState            string           `json:"completion_state"`
	CompletionEffect           string           `json:"completion_effect,omitempty"`
	CompletionError            string           `json:"completion_error,omitempty"`
	StockLocationID            *uuid.UUID       `json:"stock_location_id,omitempty"`
	CreatedWriteOffID          *uuid.UUID       `json:"created_write_off_id,omitempty"`
}

// ReturnResponse is the API view of a return
type ReturnResponse struct {
	ID                   uuid.UUID            `json:"id"`
	SellerID             uuid.UUID            `json:"seller_id"`
	DocumentNumber       string               `json:"document_number"`
	Type                 string               `json:"type"`
	Status               string               `json:"status"`
	Reason               string               `json:"reason"`
	LocationType         string               `json:"location_type"`
	ShopID               *uuid.UUID           `json:"shop_id,omitempty"`
	WarehouseID          *uuid.UUID           `json:"warehouse_id,omitempty"`
	LocationName         string               `json:"location_name,omitempty"`
	OrderID              *uuid.UUID           `json:"order_id,omitempty"`
	ReceivingID          *uuid.UUID           `json:"receiving_id,omitempty"`
	SupplierID           *uuid.UUID           `json:"supplier_id,omitempty"`
	SupplierName         string               `json:"supplier_name,omitempty"`
	Items                []ReturnItemResponse `json:"items"`
	TotalValue           decimal.Decimal      `json:"total_value"`
	TotalLoss            decimal.Decimal      `json:"total_loss"`
	TotalReturnedToShelf decimal.Decimal      `json:"total_returned_to_shelf"`
	CreatedBy            uuid.UUID            `json:"created_by"`
	InspectedBy          *uuid.UUID           `json:"inspected_by,omitempty"`
	InspectedAt          *time.Time           `json:"inspected_at,omitempty"`
	CompletedBy          *uuid.UUID           `json:"completed_by,omitempty"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	SupplierResponse     string               `json:"supplier_response,omitempty"`
	SupplierRespondedAt  *time.Time           `json:"supplier_responded_at,omitempty"`
	SupplierRespondedBy  *uuid.UUID           `json:"supplier_responded_by,omitempty"`
	Photos               []string             `json:"photos,omitempty"`
	Comment              string               `json:"comment,omitempty"`
	Version              int                  `json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// ToReturnResponse converts the aggregate to its API view
func ToReturnResponse(r *returns.Return) ReturnResponse {
	items := make([]ReturnItemResponse, len(r.Items))
	for i := range r.Items {
		it := &r.Items[i]
		items[i] = ReturnItemResponse{
			Index:                      it.Index,
			BatchID:                    it.BatchID,
			ProductID:                  it.ProductID,
			Quantity:                   it.Quantity,
			MinutesOutOfControl:        it.MinutesOutOfControl,
			PurchasePrice:              it.PurchasePrice,
			Condition:                  string(it.Condition),
			Decision:                   string(it.Decision),
			DiscountPercent:            it.DiscountPercent,
			NewEffectiveExpirationDate: it.NewEffectiveExpirationDate,
			NewFreshnessRemaining:      it.NewFreshnessRemaining,
			Comment:                    it.Comment,
			Photos:                     it.Photos,
			CompletionState:            string(it.CompletionState),
			CompletionEffect:           string(it.CompletionEffect),
			CompletionError:            it.CompletionError,
			StockLocationID:            it.StockLocationID,
			CreatedWriteOffID:          it.CreatedWriteOffID,
		}
	}
	resp := ReturnResponse{
		ID:                   r.ID,
		SellerID:             r.SellerID,
		DocumentNumber:       r.DocumentNumber,
		Type:                 string(r.Type),
		Status:               string(r.Status),
		LocationType:         string(r.Location.Type),
		ShopID:               r.Location.ShopID(),
		WarehouseID:          r.Location.WarehouseID(),
		LocationName:         r.Location.Name,
		OrderID:              r.OrderID,
		ReceivingID:          r.ReceivingID,
		SupplierID:           r.SupplierID,
		SupplierName:         r.SupplierName,
		Items:                items,
		TotalValue:           r.TotalValue,
		TotalLoss:            r.TotalLoss,
		TotalReturnedToShelf: r.TotalReturnedToShelf,
		CreatedBy:            r.CreatedBy,
		InspectedBy:          r.InspectedBy,
		InspectedAt:          r.InspectedAt,
		CompletedBy:          r.CompletedBy,
		CompletedAt:          r.CompletedAt,
		SupplierResponse:     r.SupplierResponse,
		SupplierRespondedAt:  r.SupplierRespondedAt,
		SupplierRespondedBy:  r.SupplierRespondedBy,
		Photos:               r.Photos,
		Comment:              r.Comment,
		Version:              r.Version,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.Reason != nil {
		resp.Reason = r.Reason.String()
	}
	return resp
}

// ToReturnResponses converts a slice of returns
func ToReturnResponses(list []returns.Return) []ReturnResponse {
	out := make([]ReturnResponse, len(list))
	for i := range list {
		out[i] = ToReturnResponse(&list[i])
	}
	return out
}

// ItemCompletionResult reports what completion did for one item
type ItemCompletionResult struct {
	Index           int        `json:"index"`
	Decision        string     `json:"decision"`
	StockLocationID *uuid.UUID `json:"stock_location_id,omitempty"`
	WriteOffID      *uuid.UUID `json:"write_off_id,omitempty"`
	// AlreadyApplied is set when an earlier attempt had applied the item
	AlreadyApplied bool `json:"already_applied,omitempty"`
}

// CompletionResponse is returned by Complete and ApproveSupplierReturn
type CompletionResponse struct {
	Return ReturnResponse         `json:"return"`
	Items  []ItemCompletionResult `json:"items"`
}

// PendingItemResponse is the API view of a pending inspection item
type PendingItemResponse struct {
	ReturnID            uuid.UUID       `json:"return_id"`
	DocumentNumber      string          `json:"document_number"`
	ReturnType          string          `json:"return_type"`
	LocationType        string          `json:"location_type"`
	LocationID          uuid.UUID       `json:"location_id"`
	LocationName        string          `json:"location_name,omitempty"`
	ItemIndex           int             `json:"item_index"`
	BatchID             uuid.UUID       `json:"batch_id"`
	ProductID           uuid.UUID       `json:"product_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	MinutesOutOfControl int             `json:"minutes_out_of_control"`
	CreatedAt           time.Time       `json:"created_at"`
}

func toPendingItemResponses(items []returns.PendingInspectionItem) []PendingItemResponse {
	out := make([]PendingItemResponse, len(items))
	for i, it := range items {
		out[i] = PendingItemResponse{
			ReturnID:            it.ReturnID,
			DocumentNumber:      it.DocumentNumber,
			ReturnType:          string(it.ReturnType),
			LocationType:        string(it.Location.Type),
			LocationID:          it.Location.ID,
			LocationName:        it.Location.Name,
			ItemIndex:           it.ItemIndex,
			BatchID:             it.BatchID,
			ProductID:           it.ProductID,
			Quantity:            it.Quantity,
			MinutesOutOfControl: it.MinutesOutOfControl,
			CreatedAt:           it.CreatedAt,
		}
	}
	return out
}
