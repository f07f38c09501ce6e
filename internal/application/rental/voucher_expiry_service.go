package rental

import (
	"context"
	"fmt"
	"time"

	"github.com/rentals/backend/internal/domain/rental"
	"go.uber.org/zap"
)

// VoucherExpiryService moves vouchers past their expiry to EXPIRED
type VoucherExpiryService struct {
	voucherRepo rental.VoucherRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewVoucherExpiryService creates a new VoucherExpiryService
func NewVoucherExpiryService(voucherRepo rental.VoucherRepository, logger *zap.Logger) *VoucherExpiryService {
	return &VoucherExpiryService{
		voucherRepo: voucherRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// ExpireDue expires every active voucher whose expiry is before now
func (s *VoucherExpiryService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.voucherRepo.ExpireDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire vouchers: %w", err)
	}
	if n > 0 {
		s.logger.Info("vouchers expired", zap.Int64("count", n))
	}
	return n, nil
}

// Run is the scheduled entry point
func (s *VoucherExpiryService) Run(ctx context.Context) error {
	_, err := s.ExpireDue(ctx, s.now())
	return err
}
