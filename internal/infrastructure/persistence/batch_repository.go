package persistence

import (
	"context"
	"errors"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRepository implements returns.BatchPort over the local batches table
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// GetByID returns the batch, or nil when it does not exist
func (r *GormBatchRepository) GetByID(ctx context.Context, batchID uuid.UUID) (*returns.Batch, error) {
	var m models.BatchModel
	err := r.db.WithContext(ctx).Where("id = ?", batchID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save upserts a batch
func (r *GormBatchRepository) Save(ctx context.Context, b *returns.Batch) error {
	m := &models.BatchModel{
		BaseModel:               models.BaseModel{ID: b.ID},
		SellerID:                b.SellerID,
		ProductID:               b.ProductID,
		FreshnessRemaining:      b.FreshnessRemaining,
		EffectiveExpirationDate: b.EffectiveExpirationDate,
		PurchasePrice:           b.PurchasePrice,
	}
	return r.db.WithContext(ctx).Save(m).Error
}

// Ensure GormBatchRepository implements BatchPort
var _ returns.BatchPort = (*GormBatchRepository)(nil)
