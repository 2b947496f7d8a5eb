package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReturnRepository implements returns.ReturnRepository using GORM
type GormReturnRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// SetOutboxEventSaver makes Save and SaveWithLock write pending domain events
// to the outbox in the same transaction as the return.
func (r *GormReturnRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

func (r *GormReturnRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("item_index ASC")
	})
}

// FindByID finds a seller's return by id
func (r *GormReturnRepository) FindByID(ctx context.Context, sellerID, id uuid.UUID) (*returns.Return, error) {
	var m models.ReturnModel
	if err := r.preloaded(ctx).
		Where("seller_id = ? AND id = ?", sellerID, id).
		First(&m).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("Return %s", id))
	}
	return m.ToDomain()
}

// FindByDocumentNumber finds a seller's return by its document number
func (r *GormReturnRepository) FindByDocumentNumber(ctx context.Context, sellerID uuid.UUID, number string) (*returns.Return, error) {
	var m models.ReturnModel
	if err := r.preloaded(ctx).
		Where("seller_id = ? AND document_number = ?", sellerID, number).
		First(&m).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("Return %s", number))
	}
	return m.ToDomain()
}

// FindByOrder lists returns opened against an order, newest first
func (r *GormReturnRepository) FindByOrder(ctx context.Context, sellerID, orderID uuid.UUID) ([]returns.Return, error) {
	var ms []models.ReturnModel
	if err := r.preloaded(ctx).
		Where("seller_id = ? AND order_id = ?", sellerID, orderID).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainReturns(ms)
}

// FindAll lists a seller's returns matching filter, with the total before paging
func (r *GormReturnRepository) FindAll(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returns.Return, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := applyReturnFilter(
		r.db.WithContext(ctx).Model(&models.ReturnModel{}).Where("seller_id = ?", sellerID),
		filter,
	).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.ReturnModel
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_index ASC") }).
		Order(returnOrder(filter.OrderBy, filter.OrderDir)).
		Order("document_number DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	out, err := toDomainReturns(ms)
	return out, total, err
}

func applyReturnFilter(query *gorm.DB, filter returns.ReturnFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.LocationType != nil {
		query = query.Where("location_type = ?", string(*filter.LocationType))
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	for key, value := range filter.Filters {
		switch key {
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		}
	}
	return query
}

type pendingItemRow struct {
	ReturnID            uuid.UUID
	DocumentNumber      string
	ReturnType          string
	LocationType        string
	LocationID          uuid.UUID
	LocationName        string
	ItemIndex           int
	BatchID             uuid.UUID
	ProductID           uuid.UUID
	Quantity            decimal.Decimal
	MinutesOutOfControl int
	CreatedAt           time.Time
}

// FindPendingInspectionItems lists undecided items of returns still awaiting
// inspection, oldest return first.
func (r *GormReturnRepository) FindPendingInspectionItems(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returns.PendingInspectionItem, error) {
	query := r.db.WithContext(ctx).
		Table("return_items AS i").
		Select(`r.id AS return_id, r.document_number, r.type AS return_type,
			r.location_type, r.location_id, r.location_name,
			i.item_index, i.batch_id, i.product_id, i.quantity, i.minutes_out_of_control, r.created_at`).
		Joins("JOIN returns AS r ON r.id = i.return_id").
		Where("r.seller_id = ? AND r.status = ?", sellerID, string(returns.ReturnStatusPendingInspection)).
		Where("(i.decision IS NULL OR i.decision = '')")
	if filter.Type != nil {
		query = query.Where("r.type = ?", string(*filter.Type))
	}
	if filter.LocationType != nil {
		query = query.Where("r.location_type = ?", string(*filter.LocationType))
	}
	if filter.LocationID != nil {
		query = query.Where("r.location_id = ?", *filter.LocationID)
	}

	var rows []pendingItemRow
	if err := query.Order("r.created_at ASC").Order("r.document_number ASC").Order("i.item_index ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]returns.PendingInspectionItem, len(rows))
	for i, row := range rows {
		out[i] = returns.PendingInspectionItem{
			ReturnID:       row.ReturnID,
			DocumentNumber: row.DocumentNumber,
			ReturnType:     returns.ReturnType(row.ReturnType),
			Location: returns.Location{
				Type: returns.LocationType(row.LocationType),
				ID:   row.LocationID,
				Name: row.LocationName,
			},
			ItemIndex:           row.ItemIndex,
			BatchID:             row.BatchID,
			ProductID:           row.ProductID,
			Quantity:            row.Quantity,
			MinutesOutOfControl: row.MinutesOutOfControl,
			CreatedAt:           row.CreatedAt,
		}
	}
	return out, nil
}

// FindLastDocumentNumber returns the seller's highest number under prefix.
// Longer sequences sort first so 10000 follows 9999.
func (r *GormReturnRepository) FindLastDocumentNumber(ctx context.Context, sellerID uuid.UUID, prefix string) (string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.ReturnModel{}).
		Where("seller_id = ? AND document_number LIKE ?", sellerID, prefix+"-%").
		Order("LENGTH(document_number) DESC").
		Order("document_number DESC").
		Limit(1).
		Pluck("document_number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// Save inserts a new return with its items
func (r *GormReturnRepository) Save(ctx context.Context, ret *returns.Return) error {
	m := models.ReturnModelFromDomain(ret)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		if len(m.Items) > 0 {
			if err := tx.Create(&m.Items).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, ret)
	})
	if isUniqueViolation(err) {
		return shared.NewConflictError("Return %s already exists for seller %s", ret.DocumentNumber, ret.SellerID)
	}
	return err
}

// SaveWithLock updates a return and its items if the stored version still
// matches. The in-memory version is bumped only after the write succeeds.
func (r *GormReturnRepository) SaveWithLock(ctx context.Context, ret *returns.Return) error {
	m := models.ReturnModelFromDomain(ret)
	nextVersion := ret.Version + 1
	now := time.Now()
	photos, err := json.Marshal(nonNilStrings(m.Photos))
	if err != nil {
		return fmt.Errorf("failed to encode photos: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []int
		if err := tx.Model(&models.ReturnModel{}).
			Where("seller_id = ? AND id = ?", ret.SellerID, ret.ID).
			Pluck("version", &current).Error; err != nil {
			return err
		}
		if len(current) == 0 {
			return shared.NewNotFoundError("Return %s not found", ret.ID)
		}
		if current[0] != ret.Version {
			return shared.NewConcurrencyConflictError("Return %s was modified by another process", ret.ID)
		}

		result := tx.Model(&models.ReturnModel{}).
			Where("id = ? AND version = ?", ret.ID, ret.Version).
			Updates(map[string]any{
				"status":                  m.Status,
				"location_name":           m.LocationName,
				"total_value":             m.TotalValue,
				"total_loss":              m.TotalLoss,
				"total_returned_to_shelf": m.TotalReturnedToShelf,
				"inspected_by":            m.InspectedBy,
				"inspected_at":            m.InspectedAt,
				"completed_by":            m.CompletedBy,
				"completed_at":            m.CompletedAt,
				"supplier_response":       m.SupplierResponse,
				"supplier_responded_at":   m.SupplierRespondedAt,
				"supplier_responded_by":   m.SupplierRespondedBy,
				"photos":                  string(photos),
				"comment":                 m.Comment,
				"version":                 nextVersion,
				"updated_at":              now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewConcurrencyConflictError("Return %s was modified by another process", ret.ID)
		}

		if len(m.Items) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "return_id"}, {Name: "item_index"}},
				UpdateAll: true,
			}).Create(&m.Items).Error; err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, ret)
	})
	if err != nil {
		return err
	}
	ret.Version = nextVersion
	ret.UpdatedAt = now
	return nil
}

func (r *GormReturnRepository) saveEvents(ctx context.Context, tx *gorm.DB, ret *returns.Return) error {
	events := ret.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

type typeStatisticsRow struct {
	Type                 string
	Count                int64
	TotalValue           decimal.Decimal
	TotalLoss            decimal.Decimal
	TotalReturnedToShelf decimal.Decimal
}

// StatisticsByType aggregates returns per type. Cancelled returns are counted
// but carry no loss or restocked value.
func (r *GormReturnRepository) StatisticsByType(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.TypeStatistics, error) {
	query := applyStatisticsFilter(
		r.db.WithContext(ctx).Model(&models.ReturnModel{}).Where("seller_id = ?", sellerID),
		filter, "",
	)
	var rows []typeStatisticsRow
	if err := query.
		Select(`type, COUNT(*) AS count,
			COALESCE(SUM(total_value), 0) AS total_value,
			COALESCE(SUM(total_loss), 0) AS total_loss,
			COALESCE(SUM(total_returned_to_shelf), 0) AS total_returned_to_shelf`).
		Group("type").
		Order("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]returns.TypeStatistics, len(rows))
	for i, row := range rows {
		out[i] = returns.TypeStatistics{
			Type:                 returns.ReturnType(row.Type),
			Count:                row.Count,
			TotalValue:           row.TotalValue,
			TotalLoss:            row.TotalLoss,
			TotalReturnedToShelf: row.TotalReturnedToShelf,
		}
	}
	return out, nil
}

type decisionStatisticsRow struct {
	Decision string
	Count    int64
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

// StatisticsByDecision aggregates decided items per decision
func (r *GormReturnRepository) StatisticsByDecision(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.DecisionStatistics, error) {
	query := applyStatisticsFilter(
		r.db.WithContext(ctx).
			Table("return_items AS i").
			Joins("JOIN returns AS r ON r.id = i.return_id").
			Where("r.seller_id = ?", sellerID).
			Where("i.decision IS NOT NULL AND i.decision <> ''"),
		filter, "r.",
	)
	var rows []decisionStatisticsRow
	if err := query.
		Select(`i.decision AS decision, COUNT(*) AS count,
			COALESCE(SUM(i.quantity), 0) AS quantity,
			COALESCE(SUM(i.quantity * i.purchase_price), 0) AS value`).
		Group("i.decision").
		Order("i.decision").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]returns.DecisionStatistics, len(rows))
	for i, row := range rows {
		out[i] = returns.DecisionStatistics{
			Decision: returns.ItemDecision(row.Decision),
			Count:    row.Count,
			Quantity: row.Quantity,
			Value:    row.Value,
		}
	}
	return out, nil
}

func applyStatisticsFilter(query *gorm.DB, filter returns.StatisticsFilter, alias string) *gorm.DB {
	if filter.From != nil {
		query = query.Where(alias+"created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(alias+"created_at < ?", *filter.To)
	}
	if filter.LocationType != nil {
		query = query.Where(alias+"location_type = ?", string(*filter.LocationType))
	}
	if filter.LocationID != nil {
		query = query.Where(alias+"location_id = ?", *filter.LocationID)
	}
	return query
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toDomainReturns(ms []models.ReturnModel) ([]returns.Return, error) {
	out := make([]returns.Return, 0, len(ms))
	for i := range ms {
		ret, err := ms[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *ret)
	}
	return out, nil
}

// Ensure GormReturnRepository implements ReturnRepository
var _ returns.ReturnRepository = (*GormReturnRepository)(nil)
