package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
)

// Referral links a referring tenant to a referred tenant through a shared code.
// IsCompleted only ever moves from false to true.
type Referral struct {
	shared.BaseEntity
	Code             string
	ReferrerID       uuid.UUID
	ReferredID       uuid.UUID
	IsCompleted      bool
	CompletedAt      *time.Time
	VoucherGenerated bool
}

// IsPending reports whether the referral can still be settled
func (r *Referral) IsPending() bool {
	return !r.IsCompleted
}

// MarkCompleted mirrors a successful conditional completion on the in-memory copy
func (r *Referral) MarkCompleted(at time.Time) {
	r.IsCompleted = true
	r.CompletedAt = &at
	r.VoucherGenerated = true
	r.Touch(at)
}

// Beneficiaries returns the owners that receive a voucher, referrer first
func (r *Referral) Beneficiaries() []uuid.UUID {
	return []uuid.UUID{r.ReferrerID, r.ReferredID}
}
