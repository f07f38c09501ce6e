package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const maxVoucherCodeAttempts = 3

// VoucherIssuer creates the reward voucher pair for a settled referral
type VoucherIssuer struct {
	voucherRepo rental.VoucherRepository
	policy      SettlementPolicy
	logger      *zap.Logger
}

// NewVoucherIssuer creates a new VoucherIssuer
func NewVoucherIssuer(voucherRepo rental.VoucherRepository, policy SettlementPolicy, logger *zap.Logger) *VoucherIssuer {
	return &VoucherIssuer{
		voucherRepo: voucherRepo,
		policy:      policy,
		logger:      logger,
	}
}

// IssueForReferral creates one voucher for the referrer and one for the
// referred tenant. Vouchers already persisted are returned alongside the
// error when a later one fails; they are not retracted.
func (i *VoucherIssuer) IssueForReferral(ctx context.Context, ref *rental.Referral, at time.Time) ([]*rental.Voucher, error) {
	issued := make([]*rental.Voucher, 0, 2)
	for _, owner := range ref.Beneficiaries() {
		v, err := i.issue(ctx, owner, ref.ID, at)
		if err != nil {
			i.logger.Error("failed to issue referral voucher",
				zap.String("referral_id", ref.ID.String()),
				zap.String("owner_id", owner.String()),
				zap.Int("issued", len(issued)),
				zap.Error(err),
			)
			return issued, newSettlementError(StageVoucher, err)
		}
		issued = append(issued, v)
	}
	return issued, nil
}

func (i *VoucherIssuer) issue(ctx context.Context, owner, referralID uuid.UUID, at time.Time) (*rental.Voucher, error) {
	v, err := rental.NewReferralVoucher(owner, referralID, i.policy.RewardAmount, at, i.policy.RewardValidity)
	if err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		err = i.voucherRepo.Create(ctx, v)
		if err == nil {
			i.logger.Info("voucher issued",
				zap.String("voucher_id", v.ID.String()),
				zap.String("voucher_code", v.Code),
				zap.String("owner_id", owner.String()),
			)
			return v, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt >= maxVoucherCodeAttempts {
			return nil, fmt.Errorf("failed to create voucher after %d attempt(s): %w", attempt, err)
		}
		i.logger.Warn("voucher code collision, regenerating",
			zap.String("voucher_code", v.Code),
			zap.Int("attempt", attempt),
		)
		v.RegenerateCode(at)
	}
}
