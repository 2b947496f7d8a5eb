package returns

import (
	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
)

// Location is the shop or warehouse the goods are returned into. Exactly one
// of ShopID/WarehouseID is set, selected by Type.
type Location struct {
	Type LocationType
	ID   uuid.UUID
	Name string
}

// NewLocation validates and builds a Location
func NewLocation(locationType LocationType, id uuid.UUID, name string) (Location, error) {
	l := Location{Type: locationType, ID: id, Name: name}
	return l, l.Validate()
}

// Validate checks the location is usable
func (l Location) Validate() error {
	if !l.Type.IsValid() {
		return shared.NewInvalidArgumentError("Invalid location type %q", l.Type)
	}
	if l.ID == uuid.Nil {
		return shared.NewInvalidArgumentError("Location ID cannot be empty")
	}
	return nil
}

// ShopID returns the location id when the location is a shop
func (l Location) ShopID() *uuid.UUID {
	if l.Type != LocationTypeShop {
		return nil
	}
	id := l.ID
	return &id
}

// WarehouseID returns the location id when the location is a warehouse
func (l Location) WarehouseID() *uuid.UUID {
	if l.Type != LocationTypeWarehouse {
		return nil
	}
	id := l.ID
	return &id
}
