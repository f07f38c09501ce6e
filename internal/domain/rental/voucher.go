package rental

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VoucherStatus represents the status of a reward voucher
type VoucherStatus string

const (
	VoucherStatusActive  VoucherStatus = "ACTIVE"
	VoucherStatusUsed    VoucherStatus = "USED"
	VoucherStatusExpired VoucherStatus = "EXPIRED"
)

// Voucher is a reward credit issued to a tenant for a settled referral
type Voucher struct {
	shared.BaseEntity
	Code            string
	OwnerID         uuid.UUID
	DiscountAmount  decimal.Decimal
	DiscountPercent *decimal.Decimal
	Status          VoucherStatus
	ExpiresAt       time.Time
	ReferralID      *uuid.UUID
}

// NewReferralVoucher creates an active voucher for one side of a settled referral
func NewReferralVoucher(ownerID, referralID uuid.UUID, amount decimal.Decimal, issuedAt time.Time, validity time.Duration) (*Voucher, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Voucher owner cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Voucher amount must be positive")
	}
	if validity <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Voucher validity must be positive")
	}
	rid := referralID
	return &Voucher{
		BaseEntity:     shared.NewBaseEntity(issuedAt),
		Code:           NewVoucherCode(ownerID, issuedAt),
		OwnerID:        ownerID,
		DiscountAmount: amount,
		Status:         VoucherStatusActive,
		ExpiresAt:      issuedAt.Add(validity),
		ReferralID:     &rid,
	}, nil
}

// NewVoucherCode builds RV-<owner prefix>-<base36 nanos>-<random hex>.
// The store keeps a unique index on code as well.
func NewVoucherCode(ownerID uuid.UUID, at time.Time) string {
	owner := strings.ToUpper(strings.ReplaceAll(ownerID.String(), "-", "")[:8])
	stamp := strings.ToUpper(strconv.FormatInt(at.UnixNano(), 36))
	return fmt.Sprintf("RV-%s-%s-%s", owner, stamp, randomSuffix())
}

// RegenerateCode replaces the code after a uniqueness collision
func (v *Voucher) RegenerateCode(at time.Time) {
	v.Code = NewVoucherCode(v.OwnerID, at)
}

// IsRedeemable reports whether the voucher can be used at t
func (v *Voucher) IsRedeemable(t time.Time) bool {
	return v.Status == VoucherStatusActive && t.Before(v.ExpiresAt)
}

func randomSuffix() string {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return strings.ToUpper(uuid.NewString()[:4])
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
