package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Unit determines how quantities for a product are interpreted: a count for
// piece products, a fractional weight for weight and bulk products.
type Unit string

const (
	UnitPiece  Unit = "piece"
	UnitWeight Unit = "weight"
	UnitBulk   Unit = "bulk"
)

// Valid reports whether the unit is one of the known values.
func (u Unit) Valid() bool {
	switch u {
	case UnitPiece, UnitWeight, UnitBulk:
		return true
	}
	return false
}

// Fractional reports whether quantities for this unit may be non-integer.
func (u Unit) Fractional() bool {
	return u == UnitWeight || u == UnitBulk
}

// Product represents a catalog entry. Stock is fractional-capable so weight
// and bulk products can carry partial kilograms.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       float64   `json:"stock"`
	MinStock    float64   `json:"min_stock"`
	Category    string    `json:"category"`
	Unit        Unit      `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	Code        string  `json:"code" validate:"required,max=50"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=500"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       float64 `json:"stock" validate:"gte=0"`
	MinStock    float64 `json:"min_stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required,max=100"`
	Unit        Unit    `json:"unit" validate:"required,oneof=piece weight bulk"`
}

type UpdateProductRequest struct {
	Code        *string  `json:"code,omitempty" validate:"omitempty,max=50"`
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock       *float64 `json:"stock,omitempty" validate:"omitempty,gte=0"`
	MinStock    *float64 `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit        *Unit    `json:"unit,omitempty" validate:"omitempty,oneof=piece weight bulk"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// ListFilters narrows product listings. Active-only is the default for every
// caller-facing query; inactive products stay reachable by ID for historical
// references.
type ListFilters struct {
	Search          string
	Category        string
	IncludeInactive bool
	LowStockOnly    bool
	Limit           int
	Offset          int
}
