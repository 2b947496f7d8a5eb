package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormWriteOffRepository implements returns.WriteOffPort. Documents are keyed
// by the return line they were raised for.
type GormWriteOffRepository struct {
	db *gorm.DB
}

// NewGormWriteOffRepository creates a new GormWriteOffRepository
func NewGormWriteOffRepository(db *gorm.DB) *GormWriteOffRepository {
	return &GormWriteOffRepository{db: db}
}

// Create stores a draft write-off, or returns the one already raised for the
// same reference line.
func (r *GormWriteOffRepository) Create(ctx context.Context, in returns.NewWriteOff) (*returns.WriteOff, error) {
	if len(in.Items) == 0 {
		return nil, shared.NewInvalidArgumentError("Write-off must have at least one item")
	}

	existing, err := r.findByReference(ctx, in.ReferenceID, in.ReferenceLine)
	if err != nil || existing != nil {
		return existing, err
	}

	now := time.Now()
	m := &models.WriteOffModel{
		BaseModel:     models.NewBaseModel(now),
		SellerID:      in.SellerID,
		LocationType:  string(in.LocationType),
		LocationID:    in.LocationID,
		Status:        string(returns.WriteOffStatusDraft),
		Reason:        string(in.Reason),
		Comment:       in.Comment,
		CreatedBy:     in.CreatedBy,
		ReferenceID:   in.ReferenceID,
		ReferenceLine: in.ReferenceLine,
	}
	total := decimal.Zero
	for _, line := range in.Items {
		if !line.Quantity.IsPositive() {
			return nil, shared.NewInvalidArgumentError("Write-off quantity must be positive")
		}
		loss := line.Quantity.Mul(line.PurchasePrice)
		total = total.Add(loss)
		m.Items = append(m.Items, models.WriteOffItemModel{
			ID:            uuid.New(),
			WriteOffID:    m.ID,
			BatchID:       line.BatchID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			PurchasePrice: line.PurchasePrice,
			Loss:          loss,
		})
	}
	m.TotalLoss = total

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return r.findByReference(ctx, in.ReferenceID, in.ReferenceLine)
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Confirm moves a draft write-off to CONFIRMED. Confirming twice is a no-op.
func (r *GormWriteOffRepository) Confirm(ctx context.Context, writeOffID uuid.UUID, confirmedBy uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.WriteOffModel{}).
		Where("id = ? AND status = ?", writeOffID, string(returns.WriteOffStatusDraft)).
		Updates(map[string]any{
			"status":       string(returns.WriteOffStatusConfirmed),
			"confirmed_by": confirmedBy,
			"confirmed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.WriteOffModel{}).
		Where("id = ?", writeOffID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("Write-off %s not found", writeOffID)
	}
	return nil
}

// FindByID loads a write-off with its lines
func (r *GormWriteOffRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WriteOffModel, error) {
	var m models.WriteOffModel
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translateError(err, "Write-off "+id.String())
	}
	return &m, nil
}

func (r *GormWriteOffRepository) findByReference(ctx context.Context, referenceID uuid.UUID, line int) (*returns.WriteOff, error) {
	var m models.WriteOffModel
	err := r.db.WithContext(ctx).
		Where("reference_id = ? AND reference_line = ?", referenceID, line).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// Ensure GormWriteOffRepository implements WriteOffPort
var _ returns.WriteOffPort = (*GormWriteOffRepository)(nil)
