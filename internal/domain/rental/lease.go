package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultLeaseTerm is the length of a lease provisioned on approval
const DefaultLeaseTerm = 365 * 24 * time.Hour

// Lease binds a tenant to a property for a date range
type Lease struct {
	shared.BaseEntity
	PropertyID    uuid.UUID
	TenantID      uuid.UUID
	ApplicationID *uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	RentAmount    decimal.Decimal
	DepositAmount decimal.Decimal
}

// NewLease creates a lease starting at start and lasting term
func NewLease(propertyID, tenantID uuid.UUID, rent, deposit decimal.Decimal, start time.Time, term time.Duration) (*Lease, error) {
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease property cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease tenant cannot be empty")
	}
	if !rent.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease rent must be positive")
	}
	if deposit.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease deposit cannot be negative")
	}
	if term <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease term must be positive")
	}
	return &Lease{
		BaseEntity:    shared.NewBaseEntity(start),
		PropertyID:    propertyID,
		TenantID:      tenantID,
		StartDate:     start,
		EndDate:       start.Add(term),
		RentAmount:    rent,
		DepositAmount: deposit,
	}, nil
}

// Covers reports whether the lease date range contains t
func (l *Lease) Covers(t time.Time) bool {
	return !t.Before(l.StartDate) && t.Before(l.EndDate)
}
