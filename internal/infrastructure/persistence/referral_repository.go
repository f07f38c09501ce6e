package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReferralRepository implements rental.ReferralRepository using GORM
type GormReferralRepository struct {
	db *gorm.DB
}

// NewGormReferralRepository creates a new GormReferralRepository
func NewGormReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// FindByCode finds a referral by its exact code
func (r *GormReferralRepository) FindByCode(ctx context.Context, code string) (*rental.Referral, error) {
	var model models.ReferralModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// CompleteIfPending flips is_completed in one statement conditioned on it
// still being false. Only the statement that changes the row returns true.
func (r *GormReferralRepository) CompleteIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReferralModel{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]any{
			"is_completed":      true,
			"completed_at":      at,
			"voucher_generated": true,
			"updated_at":        at,
		})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

var _ rental.ReferralRepository = (*GormReferralRepository)(nil)
