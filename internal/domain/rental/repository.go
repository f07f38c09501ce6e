package rental

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ApplicationRepository persists applications
type ApplicationRepository interface {
	// FindByID returns shared.ErrNotFound when the application does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)
	// TransitionStatus moves the application from -> to only while the stored
	// status still equals from. It reports whether a row was changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to ApplicationStatus, at time.Time) (bool, error)
}

// PropertyRepository reads properties
type PropertyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)
}

// RoomRepository reads rooms
type RoomRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Room, error)
}

// TenantRepository reads tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// LeaseRepository persists leases
type LeaseRepository interface {
	// FindActive returns the lease for property and tenant whose date range
	// covers at, or shared.ErrNotFound.
	FindActive(ctx context.Context, propertyID, tenantID uuid.UUID, at time.Time) (*Lease, error)
	// FindOverlapping returns the lease for property and tenant whose date
	// range intersects [start, end), or shared.ErrNotFound.
	FindOverlapping(ctx context.Context, propertyID, tenantID uuid.UUID, start, end time.Time) (*Lease, error)
	// Create inserts a lease. It returns shared.ErrAlreadyExists when an
	// overlapping lease for the same property and tenant exists.
	Create(ctx context.Context, lease *Lease) error
}

// ReferralRepository persists referrals
type ReferralRepository interface {
	// FindByCode returns the referral with the exact code, or shared.ErrNotFound
	FindByCode(ctx context.Context, code string) (*Referral, error)
	// CompleteIfPending marks the referral completed only if it is still
	// pending. Exactly one concurrent caller observes true.
	CompleteIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// VoucherRepository persists vouchers
type VoucherRepository interface {
	// Create inserts a voucher. A duplicate code yields shared.ErrAlreadyExists.
	Create(ctx context.Context, voucher *Voucher) error
	FindByReferral(ctx context.Context, referralID uuid.UUID) ([]*Voucher, error)
	// ExpireDue moves active vouchers whose expiry is before now to expired
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
