package handler

import (
	"github.com/google/uuid"

	returnsapp "github.com/erp/returns/internal/application/returns"
	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
)

// LocationBody identifies the shop or warehouse receiving the goods
type LocationBody struct {
	Type string `json:"type" binding:"required,location_type"`
	ID   string `json:"id" binding:"required,uuid"`
	Name string `json:"name" binding:"max=200"`
}

// ReturnItemBody is one returned line
type ReturnItemBody struct {
	BatchID             string   `json:"batch_id" binding:"required,uuid"`
	ProductID           string   `json:"product_id" binding:"required,uuid"`
	Quantity            float64  `json:"quantity" binding:"required,gt=0"`
	MinutesOutOfControl int      `json:"minutes_out_of_control" binding:"gte=0"`
	PurchasePrice       float64  `json:"purchase_price" binding:"gte=0"`
	Comment             string   `json:"comment" binding:"max=1000"`
	Photos              []string `json:"photos" binding:"max=20"`
}

// CreateCustomerReturnBody opens a return brought back by a customer
type CreateCustomerReturnBody struct {
	Location LocationBody     `json:"location" binding:"required"`
	OrderID  string           `json:"order_id" binding:"omitempty,uuid"`
	Reason   string           `json:"reason" binding:"required"`
	Items    []ReturnItemBody `json:"items" binding:"required,min=1,dive"`
	Comment  string           `json:"comment" binding:"max=1000"`
	Photos   []string         `json:"photos" binding:"max=20"`
}

// CreateDeliveryReturnBody opens a return refused at delivery
type CreateDeliveryReturnBody struct {
	Location            LocationBody     `json:"location" binding:"required"`
	OrderID             string           `json:"order_id" binding:"omitempty,uuid"`
	Reason              string           `json:"reason" binding:"required"`
	DeliveryTimeMinutes int              `json:"delivery_time_minutes" binding:"gte=0"`
	Items               []ReturnItemBody `json:"items" binding:"required,min=1,dive"`
	Comment             string           `json:"comment" binding:"max=1000"`
	Photos              []string         `json:"photos" binding:"max=20"`
}

// CreateSupplierReturnBody opens a return of goods to their supplier
type CreateSupplierReturnBody struct {
	Location     LocationBody     `json:"location" binding:"required"`
	ReceivingID  string           `json:"receiving_id" binding:"omitempty,uuid"`
	SupplierID   string           `json:"supplier_id" binding:"omitempty,uuid"`
	SupplierName string           `json:"supplier_name" binding:"max=200"`
	Reason       string           `json:"reason" binding:"required"`
	Items        []ReturnItemBody `json:"items" binding:"required,min=1,dive"`
	Comment      string           `json:"comment" binding:"max=1000"`
	Photos       []string         `json:"photos" binding:"max=20"`
}

// InspectItemBody is the inspector's verdict on one item
type InspectItemBody struct {
	Condition           string   `json:"condition" binding:"required,condition"`
	Decision            string   `json:"decision" binding:"required,decision"`
	DiscountPercent     *float64 `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	MinutesOutOfControl *int     `json:"minutes_out_of_control" binding:"omitempty,gte=0"`
	Comment             string   `json:"comment" binding:"max=1000"`
	Photos              []string `json:"photos" binding:"max=20"`
}

// InspectionVerdictBody is a verdict addressed by item index
type InspectionVerdictBody struct {
	Index int `json:"index" binding:"gte=0"`
	InspectItemBody
}

// CompleteInspectionBody applies verdicts and closes inspection
type CompleteInspectionBody struct {
	Items []InspectionVerdictBody `json:"items" binding:"dive"`
}

// SupplierResponseBody carries the supplier's answer
type SupplierResponseBody struct {
	Response string `json:"response" binding:"max=2000"`
}

// CancelReturnBody carries the cancellation reason
type CancelReturnBody struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListReturnsQuery are the list filters and paging parameters
type ListReturnsQuery struct {
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy      string `form:"order_by" binding:"omitempty,oneof=created_at updated_at document_number status type total_value total_loss completed_at"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Type         string `form:"type" binding:"omitempty,return_type"`
	Status       string `form:"status" binding:"omitempty,return_status"`
	LocationType string `form:"location_type" binding:"omitempty,location_type"`
	LocationID   string `form:"location_id" binding:"omitempty,uuid"`
	From         string `form:"from"`
	To           string `form:"to"`
}

// StatisticsQuery selects the grouping and date range of statistics
type StatisticsQuery struct {
	GroupBy      string `form:"group_by" binding:"required,oneof=type decision"`
	LocationType string `form:"location_type" binding:"omitempty,location_type"`
	LocationID   string `form:"location_id" binding:"omitempty,uuid"`
	From         string `form:"from"`
	To           string `form:"to"`
}

func (b LocationBody) toInput() returnsapp.LocationInput {
	return returnsapp.LocationInput{
		Type: returns.LocationType(b.Type),
		ID:   uuid.MustParse(b.ID),
		Name: b.Name,
	}
}

func toItemInputs(items []ReturnItemBody) []returnsapp.ItemInput {
	out := make([]returnsapp.ItemInput, len(items))
	for i, it := range items {
		out[i] = returnsapp.ItemInput{
			BatchID:             uuid.MustParse(it.BatchID),
			ProductID:           uuid.MustParse(it.ProductID),
			Quantity:            toDecimal(it.Quantity),
			MinutesOutOfControl: it.MinutesOutOfControl,
			PurchasePrice:       toDecimal(it.PurchasePrice),
			Comment:             it.Comment,
			Photos:              it.Photos,
		}
	}
	return out
}

// optionalUUID parses a binding-validated optional UUID
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

func (b CreateCustomerReturnBody) toRequest(actor uuid.UUID) returnsapp.CreateCustomerReturnRequest {
	return returnsapp.CreateCustomerReturnRequest{
		Location:  b.Location.toInput(),
		OrderID:   optionalUUID(b.OrderID),
		Reason:    returns.CustomerReason(b.Reason),
		Items:     toItemInputs(b.Items),
		Comment:   b.Comment,
		Photos:    b.Photos,
		CreatedBy: actor,
	}
}

func (b CreateDeliveryReturnBody) toRequest(actor uuid.UUID) returnsapp.CreateDeliveryReturnRequest {
	return returnsapp.CreateDeliveryReturnRequest{
		Location:            b.Location.toInput(),
		OrderID:             optionalUUID(b.OrderID),
		Reason:              returns.DeliveryReason(b.Reason),
		DeliveryTimeMinutes: b.DeliveryTimeMinutes,
		Items:               toItemInputs(b.Items),
		Comment:             b.Comment,
		Photos:              b.Photos,
		CreatedBy:           actor,
	}
}

func (b CreateSupplierReturnBody) toRequest(actor uuid.UUID) returnsapp.CreateSupplierReturnRequest {
	return returnsapp.CreateSupplierReturnRequest{
		Location:     b.Location.toInput(),
		ReceivingID:  optionalUUID(b.ReceivingID),
		SupplierID:   optionalUUID(b.SupplierID),
		SupplierName: b.SupplierName,
		Reason:       returns.SupplierReason(b.Reason),
		Items:        toItemInputs(b.Items),
		Comment:      b.Comment,
		Photos:       b.Photos,
		CreatedBy:    actor,
	}
}

func (b InspectItemBody) toRequest(index int) returnsapp.InspectItemRequest {
	return returnsapp.InspectItemRequest{
		Index:               index,
		Condition:           returns.ItemCondition(b.Condition),
		Decision:            returns.ItemDecision(b.Decision),
		DiscountPercent:     toDecimalPtr(b.DiscountPercent),
		MinutesOutOfControl: b.MinutesOutOfControl,
		Comment:             b.Comment,
		Photos:              b.Photos,
	}
}

func (b CompleteInspectionBody) toRequest(inspector uuid.UUID) returnsapp.CompleteInspectionRequest {
	req := returnsapp.CompleteInspectionRequest{InspectorID: inspector}
	for _, v := range b.Items {
		req.Items = append(req.Items, v.InspectItemBody.toRequest(v.Index))
	}
	return req
}

// toFilter converts the query into a repository filter
func (q ListReturnsQuery) toFilter() (returns.ReturnFilter, error) {
	base := shared.DefaultFilter()
	if q.Page > 0 {
		base.Page = q.Page
	}
	if q.PageSize > 0 {
		base.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		base.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		base.OrderDir = q.OrderDir
	}

	filter := returns.ReturnFilter{Filter: base.Normalize()}
	if q.Type != "" {
		t := returns.ReturnType(q.Type)
		filter.Type = &t
	}
	if q.Status != "" {
		s := returns.ReturnStatus(q.Status)
		filter.Status = &s
	}
	if q.LocationType != "" {
		lt := returns.LocationType(q.LocationType)
		filter.LocationType = &lt
	}
	filter.LocationID = optionalUUID(q.LocationID)

	var err error
	if filter.From, err = parseTimeParam("from", q.From); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeParam("to", q.To); err != nil {
		return filter, err
	}
	return filter, nil
}

func (q StatisticsQuery) toFilter() (returns.StatisticsFilter, error) {
	var filter returns.StatisticsFilter
	if q.LocationType != "" {
		lt := returns.LocationType(q.LocationType)
		filter.LocationType = &lt
	}
	filter.LocationID = optionalUUID(q.LocationID)

	var err error
	if filter.From, err = parseTimeParam("from", q.From); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeParam("to", q.To); err != nil {
		return filter, err
	}
	return filter, nil
}
