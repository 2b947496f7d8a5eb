package models

import (
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and timestamps every returns table carries
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseModel stamps a fresh row id created and updated at now
func NewBaseModel(now time.Time) BaseModel {
	return BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func baseFromEntity(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// sellerRoot rebuilds the aggregate header of a seller-owned row.
// Events live in the outbox, so the rebuilt root has none pending.
func (m BaseModel) sellerRoot(sellerID uuid.UUID, version int) shared.SellerAggregateRoot {
	return shared.SellerAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			Version:    version,
		},
		SellerID: sellerID,
	}
}
