package rental

import (
	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Property is a rentable listing owned by a manager
type Property struct {
	shared.BaseEntity
	ManagerID uuid.UUID
	Title     string
	Address   string
	// MonthlyPrice is the canonical price field
	MonthlyPrice *decimal.Decimal
	// LegacyPrice is populated on listings imported before MonthlyPrice existed
	LegacyPrice *decimal.Decimal
}

// ResolveMonthlyPrice returns MonthlyPrice, else LegacyPrice, else fallback.
// Non-positive values are treated as absent.
func (p *Property) ResolveMonthlyPrice(fallback decimal.Decimal) decimal.Decimal {
	if p.MonthlyPrice != nil && p.MonthlyPrice.IsPositive() {
		return *p.MonthlyPrice
	}
	if p.LegacyPrice != nil && p.LegacyPrice.IsPositive() {
		return *p.LegacyPrice
	}
	return fallback
}

// IsManagedBy reports whether the given principal owns the listing
func (p *Property) IsManagedBy(id uuid.UUID) bool {
	return p.ManagerID != uuid.Nil && p.ManagerID == id
}

// Room is an optional sub-unit of a property
type Room struct {
	shared.BaseEntity
	PropertyID uuid.UUID
	Name       string
}
