package models

import (
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchModel is the read side of a received lot
type BatchModel struct {
	BaseModel
	SellerID                uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID               uuid.UUID       `gorm:"type:uuid;not null;index"`
	FreshnessRemaining      decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	EffectiveExpirationDate time.Time       `gorm:"not null"`
	PurchasePrice           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "batches"
}

// ToDomain converts the model to the batch view used by returns
func (m *BatchModel) ToDomain() *returns.Batch {
	return &returns.Batch{
		ID:                      m.ID,
		SellerID:                m.SellerID,
		ProductID:               m.ProductID,
		FreshnessRemaining:      m.FreshnessRemaining,
		EffectiveExpirationDate: m.EffectiveExpirationDate,
		PurchasePrice:           m.PurchasePrice,
	}
}

// StockLocationModel is one batch at one shop or warehouse
type StockLocationModel struct {
	BaseModel
	BatchID                 uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_locations_batch_location,priority:1"`
	SellerID                uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID               uuid.UUID       `gorm:"type:uuid;not null"`
	LocationType            string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_locations_batch_location,priority:2"`
	LocationID              uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_locations_batch_location,priority:3"`
	Quantity                decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	EffectiveExpirationDate time.Time       `gorm:"not null"`
	FreshnessRemaining      decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	PurchasePrice           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ArrivedAt               time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLocationModel) TableName() string {
	return "stock_locations"
}

// ToDomain converts the model to a ledger record
func (m *StockLocationModel) ToDomain() *returns.StockLocationRecord {
	return &returns.StockLocationRecord{
		ID:                      m.ID,
		BatchID:                 m.BatchID,
		SellerID:                m.SellerID,
		ProductID:               m.ProductID,
		LocationType:            returns.LocationType(m.LocationType),
		LocationID:              m.LocationID,
		Quantity:                m.Quantity,
		EffectiveExpirationDate: m.EffectiveExpirationDate,
		FreshnessRemaining:      m.FreshnessRemaining,
		PurchasePrice:           m.PurchasePrice,
		ArrivedAt:               m.ArrivedAt,
	}
}

// StockMovementModel records one applied quantity change. The unique key
// makes a replayed change a no-op.
type StockMovementModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	StockLocationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_movements_ref,priority:1"`
	ReferenceID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_movements_ref,priority:2"`
	ReferenceLine   int             `gorm:"not null;uniqueIndex:idx_stock_movements_ref,priority:3"`
	Reason          string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_stock_movements_ref,priority:4"`
	ReferenceType   string          `gorm:"type:varchar(30);not null"`
	Delta           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityAfter   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// WriteOffModel is a write-off document header
type WriteOffModel struct {
	BaseModel
	SellerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationType  string          `gorm:"type:varchar(20);not null"`
	LocationID    uuid.UUID       `gorm:"type:uuid;not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	Reason        string          `gorm:"type:varchar(30);not null"`
	Comment       string          `gorm:"type:text"`
	TotalLoss     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedBy     uuid.UUID       `gorm:"type:uuid"`
	ConfirmedBy   *uuid.UUID      `gorm:"type:uuid"`
	ConfirmedAt   *time.Time
	ReferenceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_write_offs_ref,priority:1"`
	ReferenceLine int       `gorm:"not null;uniqueIndex:idx_write_offs_ref,priority:2"`

	Items []WriteOffItemModel `gorm:"foreignKey:WriteOffID;references:ID"`
}

// TableName returns the table name for GORM
func (WriteOffModel) TableName() string {
	return "write_offs"
}

// ToDomain converts the header to a domain WriteOff
func (m *WriteOffModel) ToDomain() *returns.WriteOff {
	return &returns.WriteOff{
		ID:          m.ID,
		SellerID:    m.SellerID,
		Status:      returns.WriteOffStatus(m.Status),
		Reason:      returns.WriteOffReason(m.Reason),
		Comment:     m.Comment,
		TotalLoss:   m.TotalLoss,
		ConfirmedBy: m.ConfirmedBy,
		ConfirmedAt: m.ConfirmedAt,
	}
}

// WriteOffItemModel is one written-off batch line
type WriteOffItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WriteOffID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID       uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Loss          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (WriteOffItemModel) TableName() string {
	return "write_off_items"
}
