package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is the lot a returned item belongs to, as seen by returns
type Batch struct {
	ID                      uuid.UUID
	SellerID                uuid.UUID
	ProductID               uuid.UUID
	FreshnessRemaining      decimal.Decimal
	EffectiveExpirationDate time.Time
	PurchasePrice           decimal.Decimal
}

// BatchPort looks up batches. GetByID returns (nil, nil) when absent.
type BatchPort interface {
	GetByID(ctx context.Context, batchID uuid.UUID) (*Batch, error)
}

// StockChangeReason classifies a stock ledger movement
type StockChangeReason string

const (
	StockChangeReturn         StockChangeReason = "RETURN"
	StockChangeSupplierReturn StockChangeReason = "SUPPLIER_RETURN"
)

// ReferenceTypeReturn tags ledger rows that originate from a return
const ReferenceTypeReturn = "RETURN"

// StockLocationRecord is the ledger row for one batch at one location
type StockLocationRecord struct {
	ID                      uuid.UUID
	BatchID                 uuid.UUID
	SellerID                uuid.UUID
	ProductID               uuid.UUID
	LocationType            LocationType
	LocationID              uuid.UUID
	Quantity                decimal.Decimal
	EffectiveExpirationDate time.Time
	FreshnessRemaining      decimal.Decimal
	PurchasePrice           decimal.Decimal
	ArrivedAt               time.Time
}

// QuantityChange moves stock on an existing ledger row. ReferenceID and
// ReferenceLine identify the originating document line; adapters treat a
// repeated (record, reference, line, reason) as already applied.
type QuantityChange struct {
	Delta         decimal.Decimal
	Reason        StockChangeReason
	ReferenceID   uuid.UUID
	ReferenceType string
	ReferenceLine int
}

// NewStockLocation seeds a ledger row for a batch new to a location. The
// reference fields tag the initial movement like a QuantityChange.
type NewStockLocation struct {
	BatchID                 uuid.UUID
	SellerID                uuid.UUID
	ProductID               uuid.UUID
	LocationType            LocationType
	LocationID              uuid.UUID
	Quantity                decimal.Decimal
	EffectiveExpirationDate time.Time
	FreshnessRemaining      decimal.Decimal
	PurchasePrice           decimal.Decimal
	ArrivedAt               time.Time
	ReferenceID             uuid.UUID
	ReferenceType           string
	ReferenceLine           int
}

// StockLocationPort is the batch-location ledger.
// GetBatchInLocation returns (nil, nil) when there is no row.
type StockLocationPort interface {
	GetBatchInLocation(ctx context.Context, batchID uuid.UUID, locationType LocationType, locationID uuid.UUID) (*StockLocationRecord, error)
	ChangeQuantity(ctx context.Context, recordID uuid.UUID, change QuantityChange) (*StockLocationRecord, error)
	Create(ctx context.Context, in NewStockLocation) (*StockLocationRecord, error)
}

// WriteOffReason classifies a write-off
type WriteOffReason string

const WriteOffReasonQualityIssue WriteOffReason = "QUALITY_ISSUE"

// WriteOffStatus is the write-off document state
type WriteOffStatus string

const (
	WriteOffStatusDraft     WriteOffStatus = "DRAFT"
	WriteOffStatusConfirmed WriteOffStatus = "CONFIRMED"
)

// WriteOffLine is one line of a write-off document
type WriteOffLine struct {
	BatchID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      decimal.Decimal
	PurchasePrice decimal.Decimal
}

// NewWriteOff requests a write-off. ReferenceID/ReferenceLine identify the
// return line so adapters can return the existing document on a retry.
type NewWriteOff struct {
	SellerID      uuid.UUID
	LocationType  LocationType
	LocationID    uuid.UUID
	Reason        WriteOffReason
	Items         []WriteOffLine
	Comment       string
	CreatedBy     uuid.UUID
	ReferenceID   uuid.UUID
	ReferenceLine int
}

// WriteOff is a write-off document
type WriteOff struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Status      WriteOffStatus
	Reason      WriteOffReason
	Comment     string
	TotalLoss   decimal.Decimal
	ConfirmedBy *uuid.UUID
	ConfirmedAt *time.Time
}

// WriteOffPort creates and confirms write-offs. Confirm on an already
// confirmed write-off is a no-op.
type WriteOffPort interface {
	Create(ctx context.Context, in NewWriteOff) (*WriteOff, error)
	Confirm(ctx context.Context, writeOffID uuid.UUID, confirmedBy uuid.UUID) error
}
