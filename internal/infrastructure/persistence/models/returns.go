package models

import (
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnModel is the persistence model for the Return aggregate root.
type ReturnModel struct {
	BaseModel
	SellerID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_returns_seller_number,priority:1"`
	Version              int             `gorm:"not null;default:1"`
	DocumentNumber       string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_returns_seller_number,priority:2"`
	Type                 string          `gorm:"type:varchar(20);not null;index"`
	Status               string          `gorm:"type:varchar(20);not null;index"`
	LocationType         string          `gorm:"type:varchar(20);not null;index:idx_returns_location,priority:1"`
	LocationID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_returns_location,priority:2"`
	LocationName         string          `gorm:"type:varchar(200)"`
	Reason               string          `gorm:"type:varchar(40);not null"`
	OrderID              *uuid.UUID      `gorm:"type:uuid;index"`
	ReceivingID          *uuid.UUID      `gorm:"type:uuid"`
	SupplierID           *uuid.UUID      `gorm:"type:uuid"`
	SupplierName         string          `gorm:"type:varchar(200)"`
	TotalValue           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalLoss            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalReturnedToShelf decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedBy            uuid.UUID       `gorm:"type:uuid"`
	InspectedBy          *uuid.UUID      `gorm:"type:uuid"`
	InspectedAt          *time.Time
	CompletedBy          *uuid.UUID `gorm:"type:uuid"`
	CompletedAt          *time.Time
	SupplierResponse     string `gorm:"type:text"`
	SupplierRespondedAt  *time.Time
	SupplierRespondedBy  *uuid.UUID `gorm:"type:uuid"`
	Photos               []string   `gorm:"type:jsonb;serializer:json"`
	Comment              string     `gorm:"type:text"`

	Items []ReturnItemModel `gorm:"foreignKey:ReturnID;references:ID"`
}

// TableName returns the table name for GORM
func (ReturnModel) TableName() string {
	return "returns"
}

// ReturnItemModel is one line of a return, keyed by its position
type ReturnItemModel struct {
	ReturnID                   uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ItemIndex                  int              `gorm:"primaryKey;autoIncrement:false"`
	BatchID                    uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID                  uuid.UUID        `gorm:"type:uuid;not null"`
	Quantity                   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	MinutesOutOfControl        int              `gorm:"not null;default:0"`
	PurchasePrice              decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Comment                    string           `gorm:"type:text"`
	Photos                     []string         `gorm:"type:jsonb;serializer:json"`
	Condition                  string           `gorm:"type:varchar(20)"`
	Decision                   string           `gorm:"type:varchar(30);index"`
	DiscountPercent            *decimal.Decimal `gorm:"type:decimal(5,2)"`
	NewEffectiveExpirationDate *time.Time
	NewFreshnessRemaining      *decimal.Decimal `gorm:"type:decimal(10,4)"`
	CompletionState            string           `gorm:"type:varchar(20);not null;default:PENDING"`
	CompletionEffect           string           `gorm:"type:varchar(20)"`
	CompletionError            string           `gorm:"type:text"`
	StockLocationID            *uuid.UUID       `gorm:"type:uuid"`
	CreatedWriteOffID          *uuid.UUID       `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReturnItemModel) TableName() string {
	return "return_items"
}

// ReturnModelFromDomain creates a persistence model, items included
func ReturnModelFromDomain(r *returns.Return) *ReturnModel {
	m := &ReturnModel{}
	m.FromDomain(r)
	return m
}

// FromDomain populates the model from a domain Return
func (m *ReturnModel) FromDomain(r *returns.Return) {
	m.BaseModel = baseFromEntity(r.BaseEntity)
	m.SellerID = r.SellerID
	m.Version = r.Version
	m.DocumentNumber = r.DocumentNumber
	m.Type = string(r.Type)
	m.Status = string(r.Status)
	m.LocationType = string(r.Location.Type)
	m.LocationID = r.Location.ID
	m.LocationName = r.Location.Name
	if r.Reason != nil {
		m.Reason = r.Reason.String()
	}
	m.OrderID = r.OrderID
	m.ReceivingID = r.ReceivingID
	m.SupplierID = r.SupplierID
	m.SupplierName = r.SupplierName
	m.TotalValue = r.TotalValue
	m.TotalLoss = r.TotalLoss
	m.TotalReturnedToShelf = r.TotalReturnedToShelf
	m.CreatedBy = r.CreatedBy
	m.InspectedBy = r.InspectedBy
	m.InspectedAt = r.InspectedAt
	m.CompletedBy = r.CompletedBy
	m.CompletedAt = r.CompletedAt
	m.SupplierResponse = r.SupplierResponse
	m.SupplierRespondedAt = r.SupplierRespondedAt
	m.SupplierRespondedBy = r.SupplierRespondedBy
	m.Photos = r.Photos
	m.Comment = r.Comment

	m.Items = make([]ReturnItemModel, len(r.Items))
	for i := range r.Items {
		m.Items[i].FromDomain(r.ID, &r.Items[i])
	}
}

// ToDomain rebuilds the Return. Items are ordered by index whatever order
// they were loaded in.
func (m *ReturnModel) ToDomain() (*returns.Return, error) {
	t, err := returns.ParseReturnType(m.Type)
	if err != nil {
		return nil, fmt.Errorf("return %s: %w", m.ID, err)
	}
	status, err := returns.ParseReturnStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("return %s: %w", m.ID, err)
	}
	reason, err := returns.ParseReason(t, m.Reason)
	if err != nil {
		return nil, fmt.Errorf("return %s: %w", m.ID, err)
	}

	r := &returns.Return{
		SellerAggregateRoot: m.sellerRoot(m.SellerID, m.Version),
		DocumentNumber:      m.DocumentNumber,
		Type:                t,
		Status:              status,
		Location: returns.Location{
			Type: returns.LocationType(m.LocationType),
			ID:   m.LocationID,
			Name: m.LocationName,
		},
		Reason:               reason,
		OrderID:              m.OrderID,
		ReceivingID:          m.ReceivingID,
		SupplierID:           m.SupplierID,
		SupplierName:         m.SupplierName,
		TotalValue:           m.TotalValue,
		TotalLoss:            m.TotalLoss,
		TotalReturnedToShelf: m.TotalReturnedToShelf,
		CreatedBy:            m.CreatedBy,
		InspectedBy:          m.InspectedBy,
		InspectedAt:          m.InspectedAt,
		CompletedBy:          m.CompletedBy,
		CompletedAt:          m.CompletedAt,
		SupplierResponse:     m.SupplierResponse,
		SupplierRespondedAt:  m.SupplierRespondedAt,
		SupplierRespondedBy:  m.SupplierRespondedBy,
		Photos:               nonNil(m.Photos),
		Comment:              m.Comment,
		Items:                make([]returns.ReturnItem, len(m.Items)),
	}
	for _, im := range m.Items {
		if im.ItemIndex < 0 || im.ItemIndex >= len(m.Items) {
			return nil, fmt.Errorf("return %s: item index %d out of range", m.ID, im.ItemIndex)
		}
		r.Items[im.ItemIndex] = im.ToDomain()
	}
	return r, nil
}

// FromDomain populates the item model for the given return
func (m *ReturnItemModel) FromDomain(returnID uuid.UUID, i *returns.ReturnItem) {
	m.ReturnID = returnID
	m.ItemIndex = i.Index
	m.BatchID = i.BatchID
	m.ProductID = i.ProductID
	m.Quantity = i.Quantity
	m.MinutesOutOfControl = i.MinutesOutOfControl
	m.PurchasePrice = i.PurchasePrice
	m.Comment = i.Comment
	m.Photos = i.Photos
	m.Condition = string(i.Condition)
	m.Decision = string(i.Decision)
	m.DiscountPercent = i.DiscountPercent
	m.NewEffectiveExpirationDate = i.NewEffectiveExpirationDate
	m.NewFreshnessRemaining = i.NewFreshnessRemaining
	m.CompletionState = string(i.CompletionState)
	m.CompletionEffect = string(i.CompletionEffect)
	m.CompletionError = i.CompletionError
	m.StockLocationID = i.StockLocationID
	m.CreatedWriteOffID = i.CreatedWriteOffID
}

// ToDomain converts the item model to a domain ReturnItem
func (m *ReturnItemModel) ToDomain() returns.ReturnItem {
	state := returns.CompletionState(m.CompletionState)
	if state == "" {
		state = returns.CompletionPending
	}
	return returns.ReturnItem{
		Index:                      m.ItemIndex,
		BatchID:                    m.BatchID,
		ProductID:                  m.ProductID,
		Quantity:                   m.Quantity,
		MinutesOutOfControl:        m.MinutesOutOfControl,
		PurchasePrice:              m.PurchasePrice,
		Comment:                    m.Comment,
		Photos:                     nonNil(m.Photos),
		Condition:                  returns.ItemCondition(m.Condition),
		Decision:                   returns.ItemDecision(m.Decision),
		DiscountPercent:            m.DiscountPercent,
		NewEffectiveExpirationDate: m.NewEffectiveExpirationDate,
		NewFreshnessRemaining:      m.NewFreshnessRemaining,
		CompletionState:            state,
		CompletionEffect:           returns.CompletionEffect(m.CompletionEffect),
		CompletionError:            m.CompletionError,
		StockLocationID:            m.StockLocationID,
		CreatedWriteOffID:          m.CreatedWriteOffID,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
