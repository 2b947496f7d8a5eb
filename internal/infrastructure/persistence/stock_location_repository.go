package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLocationRepository implements returns.StockLocationPort on the
// local batch-location ledger. Every applied change leaves a stock_movements
// row whose unique key turns a replay into a no-op.
type GormStockLocationRepository struct {
	db *gorm.DB
}

// NewGormStockLocationRepository creates a new GormStockLocationRepository
func NewGormStockLocationRepository(db *gorm.DB) *GormStockLocationRepository {
	return &GormStockLocationRepository{db: db}
}

// GetBatchInLocation returns the ledger row, or nil when the batch has never
// been at the location.
func (r *GormStockLocationRepository) GetBatchInLocation(ctx context.Context, batchID uuid.UUID, locationType returns.LocationType, locationID uuid.UUID) (*returns.StockLocationRecord, error) {
	var m models.StockLocationModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND location_type = ? AND location_id = ?", batchID, string(locationType), locationID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// ChangeQuantity applies change to the row under a row lock. A change already
// recorded for the same reference line and reason returns the current row.
func (r *GormStockLocationRepository) ChangeQuantity(ctx context.Context, recordID uuid.UUID, change returns.QuantityChange) (*returns.StockLocationRecord, error) {
	var result *returns.StockLocationRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.StockLocationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", recordID).
			First(&m).Error; err != nil {
			return translateError(err, "Stock location "+recordID.String())
		}

		var applied int64
		if err := tx.Model(&models.StockMovementModel{}).
			Where("stock_location_id = ? AND reference_id = ? AND reference_line = ? AND reason = ?",
				recordID, change.ReferenceID, change.ReferenceLine, string(change.Reason)).
			Count(&applied).Error; err != nil {
			return err
		}
		if applied > 0 {
			result = m.ToDomain()
			return nil
		}

		after := m.Quantity.Add(change.Delta)
		if after.IsNegative() {
			return shared.NewInvariantError("Insufficient stock in batch %s: have %s, change %s",
				m.BatchID, m.Quantity.String(), change.Delta.String())
		}

		now := time.Now()
		if err := tx.Model(&models.StockLocationModel{}).
			Where("id = ?", recordID).
			Updates(map[string]any{"quantity": after, "updated_at": now}).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.StockMovementModel{
			ID:              uuid.New(),
			StockLocationID: recordID,
			ReferenceID:     change.ReferenceID,
			ReferenceLine:   change.ReferenceLine,
			Reason:          string(change.Reason),
			ReferenceType:   change.ReferenceType,
			Delta:           change.Delta,
			QuantityAfter:   after,
			CreatedAt:       now,
		}).Error; err != nil {
			return err
		}

		m.Quantity = after
		m.UpdatedAt = now
		result = m.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create seeds a ledger row for a batch new to the location and records the
// initial movement. If a row for the batch and location already exists, the
// quantity is applied to it as a change instead.
func (r *GormStockLocationRepository) Create(ctx context.Context, in returns.NewStockLocation) (*returns.StockLocationRecord, error) {
	if in.Quantity.IsNegative() {
		return nil, shared.NewInvalidArgumentError("Initial quantity cannot be negative")
	}

	existing, err := r.GetBatchInLocation(ctx, in.BatchID, in.LocationType, in.LocationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.ChangeQuantity(ctx, existing.ID, returns.QuantityChange{
			Delta:         in.Quantity,
			Reason:        returns.StockChangeReturn,
			ReferenceID:   in.ReferenceID,
			ReferenceType: in.ReferenceType,
			ReferenceLine: in.ReferenceLine,
		})
	}

	now := time.Now()
	m := &models.StockLocationModel{
		BaseModel:               models.NewBaseModel(now),
		BatchID:                 in.BatchID,
		SellerID:                in.SellerID,
		ProductID:               in.ProductID,
		LocationType:            string(in.LocationType),
		LocationID:              in.LocationID,
		Quantity:                in.Quantity,
		EffectiveExpirationDate: in.EffectiveExpirationDate,
		FreshnessRemaining:      in.FreshnessRemaining,
		PurchasePrice:           in.PurchasePrice,
		ArrivedAt:               in.ArrivedAt,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Create(&models.StockMovementModel{
			ID:              uuid.New(),
			StockLocationID: m.ID,
			ReferenceID:     in.ReferenceID,
			ReferenceLine:   in.ReferenceLine,
			Reason:          string(returns.StockChangeReturn),
			ReferenceType:   in.ReferenceType,
			Delta:           in.Quantity,
			QuantityAfter:   in.Quantity,
			CreatedAt:       now,
		}).Error
	})
	if err != nil {
		return nil, translateError(err, "Stock location for batch "+in.BatchID.String())
	}
	return m.ToDomain(), nil
}

// Ensure GormStockLocationRepository implements StockLocationPort
var _ returns.StockLocationPort = (*GormStockLocationRepository)(nil)
