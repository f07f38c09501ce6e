package rental

import (
	"strings"

	"github.com/rentals/backend/internal/domain/shared"
)

// Tenant is a renter account
type Tenant struct {
	shared.BaseEntity
	Name  string
	Email string
	// ReferredByCode is the referral code used at signup. Read-only here.
	ReferredByCode *string
}

// ReferralCode returns the trimmed referral code and whether one is present
func (t *Tenant) ReferralCode() (string, bool) {
	if t.ReferredByCode == nil {
		return "", false
	}
	code := strings.TrimSpace(*t.ReferredByCode)
	return code, code != ""
}
