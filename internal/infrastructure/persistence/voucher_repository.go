package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVoucherRepository implements rental.VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// Create inserts a new voucher
func (r *GormVoucherRepository) Create(ctx context.Context, voucher *rental.Voucher) error {
	return translateError(r.db.WithContext(ctx).Create(models.VoucherModelFromDomain(voucher)).Error)
}

// FindByReferral lists the vouchers issued for a referral, oldest first
func (r *GormVoucherRepository) FindByReferral(ctx context.Context, referralID uuid.UUID) ([]*rental.Voucher, error) {
	var rows []models.VoucherModel
	if err := r.db.WithContext(ctx).
		Where("referral_id = ?", referralID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	vouchers := make([]*rental.Voucher, 0, len(rows))
	for i := range rows {
		vouchers = append(vouchers, rows[i].ToDomain())
	}
	return vouchers, nil
}

// ExpireDue expires active vouchers past their expiry in one statement
func (r *GormVoucherRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VoucherModel{}).
		Where("status = ? AND expires_at < ?", rental.VoucherStatusActive, now).
		Updates(map[string]any{
			"status":     rental.VoucherStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

var _ rental.VoucherRepository = (*GormVoucherRepository)(nil)
