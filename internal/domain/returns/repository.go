package returns

import (
	"context"
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnFilter narrows list queries. Nil fields are not applied.
type ReturnFilter struct {
	shared.Filter
	Type         *ReturnType
	Status       *ReturnStatus
	LocationType *LocationType
	LocationID   *uuid.UUID
	From         *time.Time
	To           *time.Time
}

// StatisticsFilter bounds statistics to a creation date range
type StatisticsFilter struct {
	From         *time.Time
	To           *time.Time
	LocationType *LocationType
	LocationID   *uuid.UUID
}

// TypeStatistics aggregates returns of one type
type TypeStatistics struct {
	Type                 ReturnType      `json:"type"`
	Count                int64           `json:"count"`
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalLoss            decimal.Decimal `json:"total_loss"`
	TotalReturnedToShelf decimal.Decimal `json:"total_returned_to_shelf"`
}

// DecisionStatistics aggregates items that received one decision
type DecisionStatistics struct {
	Decision ItemDecision    `json:"decision"`
	Count    int64           `json:"count"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// PendingInspectionItem is an undecided item of a return awaiting inspection
type PendingInspectionItem struct {
	ReturnID            uuid.UUID
	DocumentNumber      string
	ReturnType          ReturnType
	Location            Location
	ItemIndex           int
	BatchID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            decimal.Decimal
	MinutesOutOfControl int
	CreatedAt           time.Time
}

// ReturnRepository persists returns. All lookups are scoped to a seller and
// return a NOT_FOUND DomainError when nothing matches.
type ReturnRepository interface {
	FindByID(ctx context.Context, sellerID, id uuid.UUID) (*Return, error)
	FindByDocumentNumber(ctx context.Context, sellerID uuid.UUID, number string) (*Return, error)
	FindByOrder(ctx context.Context, sellerID, orderID uuid.UUID) ([]Return, error)
	FindAll(ctx context.Context, sellerID uuid.UUID, filter ReturnFilter) ([]Return, int64, error)
	FindPendingInspectionItems(ctx context.Context, sellerID uuid.UUID, filter ReturnFilter) ([]PendingInspectionItem, error)

	// FindLastDocumentNumber returns the highest number with prefix, or ""
	FindLastDocumentNumber(ctx context.Context, sellerID uuid.UUID, prefix string) (string, error)

	// Save inserts a new return. A duplicate document number yields CONFLICT.
	Save(ctx context.Context, r *Return) error
	// SaveWithLock updates an existing return if its version is unchanged,
	// otherwise CONCURRENCY_CONFLICT.
	SaveWithLock(ctx context.Context, r *Return) error

	StatisticsByType(ctx context.Context, sellerID uuid.UUID, filter StatisticsFilter) ([]TypeStatistics, error)
	StatisticsByDecision(ctx context.Context, sellerID uuid.UUID, filter StatisticsFilter) ([]DecisionStatistics, error)
}
