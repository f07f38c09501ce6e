package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SettlementOutcome describes what a settlement attempt did
type SettlementOutcome struct {
	Referral *rental.Referral
	// Settled is true only for the caller that won the completion
	Settled  bool
	Vouchers []*rental.Voucher
	Events   []shared.DomainEvent
}

// ReferralSettlementService completes the referral behind a tenant's signup
// code and triggers voucher issuance exactly once.
type ReferralSettlementService struct {
	referralRepo rental.ReferralRepository
	issuer       *VoucherIssuer
	logger       *zap.Logger
}

// NewReferralSettlementService creates a new ReferralSettlementService
func NewReferralSettlementService(referralRepo rental.ReferralRepository, issuer *VoucherIssuer, logger *zap.Logger) *ReferralSettlementService {
	return &ReferralSettlementService{
		referralRepo: referralRepo,
		issuer:       issuer,
		logger:       logger,
	}
}

// Settle processes the referral code the tenant signed up with. It returns a
// nil outcome when there is nothing to settle. Errors are *SettlementError.
func (s *ReferralSettlementService) Settle(ctx context.Context, tenant *rental.Tenant, at time.Time) (*SettlementOutcome, error) {
	code, ok := tenant.ReferralCode()
	if !ok {
		return nil, nil
	}

	ref, err := s.referralRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("referral code not found, skipping settlement",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("referral_code", code),
			)
			return nil, nil
		}
		return nil, newSettlementError(StageReferral, fmt.Errorf("failed to find referral: %w", err))
	}

	outcome := &SettlementOutcome{Referral: ref}
	if !ref.IsPending() {
		return outcome, nil
	}

	won, err := s.referralRepo.CompleteIfPending(ctx, ref.ID, at)
	if err != nil {
		return outcome, newSettlementError(StageReferral, fmt.Errorf("failed to complete referral: %w", err))
	}
	if !won {
		s.logger.Info("referral completed by a concurrent request",
			zap.String("referral_id", ref.ID.String()),
		)
		return outcome, nil
	}
	ref.MarkCompleted(at)
	outcome.Settled = true

	vouchers, issueErr := s.issuer.IssueForReferral(ctx, ref, at)
	outcome.Vouchers = vouchers
	for _, v := range vouchers {
		outcome.Events = append(outcome.Events, rental.NewVoucherIssuedEvent(v, at))
	}
	outcome.Events = append(outcome.Events, rental.NewReferralSettledEvent(ref, vouchers, at))

	s.logger.Info("referral settled",
		zap.String("referral_id", ref.ID.String()),
		zap.Int("vouchers", len(vouchers)),
	)
	return outcome, issueErr
}
