package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeApplication = "Application"
	AggregateTypeReferral    = "Referral"
	AggregateTypeVoucher     = "Voucher"
)

// Event type constants
const (
	EventTypeApplicationStatusChanged = "rental.application.status_changed"
	EventTypeReferralSettled          = "rental.referral.settled"
	EventTypeVoucherIssued            = "rental.voucher.issued"
)

// ApplicationStatusChangedEvent is raised after a status change call succeeds,
// including idempotent re-requests of the current status.
type ApplicationStatusChangedEvent struct {
	shared.BaseDomainEvent
	ApplicationID  uuid.UUID         `json:"application_id"`
	PropertyID     uuid.UUID         `json:"property_id"`
	TenantID       *uuid.UUID        `json:"tenant_id,omitempty"`
	PreviousStatus ApplicationStatus `json:"previous_status"`
	NewStatus      ApplicationStatus `json:"new_status"`
	LeaseID        *uuid.UUID        `json:"lease_id,omitempty"`
	LeaseCreated   bool              `json:"lease_created"`
}

// NewApplicationStatusChangedEvent creates the event for app after a transition from prev
func NewApplicationStatusChangedEvent(app *Application, prev ApplicationStatus, lease *Lease, leaseCreated bool, at time.Time) *ApplicationStatusChangedEvent {
	evt := &ApplicationStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationStatusChanged, AggregateTypeApplication, app.ID, at),
		ApplicationID:   app.ID,
		PropertyID:      app.PropertyID,
		TenantID:        app.TenantID,
		PreviousStatus:  prev,
		NewStatus:       app.Status,
		LeaseCreated:    leaseCreated,
	}
	if lease != nil {
		id := lease.ID
		evt.LeaseID = &id
	}
	return evt
}

// TransitionRecord is what telemetry sinks receive for one successful status change
type TransitionRecord struct {
	ApplicationID  uuid.UUID
	PropertyID     uuid.UUID
	PreviousStatus ApplicationStatus
	NewStatus      ApplicationStatus
	LeaseCreated   bool
}

// Record returns the telemetry view of the event
func (e *ApplicationStatusChangedEvent) Record() TransitionRecord {
	return TransitionRecord{
		ApplicationID:  e.ApplicationID,
		PropertyID:     e.PropertyID,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		LeaseCreated:   e.LeaseCreated,
	}
}

// ReferralSettledEvent is raised when a referral is completed by this process
type ReferralSettledEvent struct {
	shared.BaseDomainEvent
	ReferralID uuid.UUID   `json:"referral_id"`
	Code       string      `json:"code"`
	ReferrerID uuid.UUID   `json:"referrer_id"`
	ReferredID uuid.UUID   `json:"referred_id"`
	VoucherIDs []uuid.UUID `json:"voucher_ids"`
}

// NewReferralSettledEvent creates the event for a completed referral
func NewReferralSettledEvent(ref *Referral, vouchers []*Voucher, at time.Time) *ReferralSettledEvent {
	ids := make([]uuid.UUID, 0, len(vouchers))
	for _, v := range vouchers {
		ids = append(ids, v.ID)
	}
	return &ReferralSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReferralSettled, AggregateTypeReferral, ref.ID, at),
		ReferralID:      ref.ID,
		Code:            ref.Code,
		ReferrerID:      ref.ReferrerID,
		ReferredID:      ref.ReferredID,
		VoucherIDs:      ids,
	}
}

// VoucherIssuedEvent is raised for every persisted voucher
type VoucherIssuedEvent struct {
	shared.BaseDomainEvent
	VoucherID      uuid.UUID       `json:"voucher_id"`
	Code           string          `json:"code"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// NewVoucherIssuedEvent creates the event for a persisted voucher
func NewVoucherIssuedEvent(v *Voucher, at time.Time) *VoucherIssuedEvent {
	return &VoucherIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoucherIssued, AggregateTypeVoucher, v.ID, at),
		VoucherID:       v.ID,
		Code:            v.Code,
		OwnerID:         v.OwnerID,
		DiscountAmount:  v.DiscountAmount,
		ExpiresAt:       v.ExpiresAt,
	}
}

// ChangedEntity identifies an entity whose cached read views are stale
type ChangedEntity struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// ChangedEntities lists the entities touched by a status change
func (e *ApplicationStatusChangedEvent) ChangedEntities() []ChangedEntity {
	out := []ChangedEntity{{Type: AggregateTypeApplication, ID: e.ApplicationID}}
	if e.LeaseID != nil {
		out = append(out, ChangedEntity{Type: "Lease", ID: *e.LeaseID})
	}
	out = append(out, ChangedEntity{Type: "Property", ID: e.PropertyID})
	if e.TenantID != nil {
		out = append(out, ChangedEntity{Type: "Tenant", ID: *e.TenantID})
	}
	return out
}

// ChangedEntities lists the entities touched by a referral settlement
func (e *ReferralSettledEvent) ChangedEntities() []ChangedEntity {
	out := []ChangedEntity{
		{Type: AggregateTypeReferral, ID: e.ReferralID},
		{Type: "Tenant", ID: e.ReferrerID},
		{Type: "Tenant", ID: e.ReferredID},
	}
	for _, id := range e.VoucherIDs {
		out = append(out, ChangedEntity{Type: AggregateTypeVoucher, ID: id})
	}
	return out
}
