package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLeaseRepository implements rental.LeaseRepository using GORM.
// Overlap protection comes from the leases_no_overlap exclusion constraint.
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// FindActive finds the lease for the pair whose range covers at
func (r *GormLeaseRepository) FindActive(ctx context.Context, propertyID, tenantID uuid.UUID, at time.Time) (*rental.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND tenant_id = ? AND start_date <= ? AND end_date > ?", propertyID, tenantID, at, at).
		Order("start_date DESC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindOverlapping finds the lease for the pair whose range intersects [start, end)
func (r *GormLeaseRepository) FindOverlapping(ctx context.Context, propertyID, tenantID uuid.UUID, start, end time.Time) (*rental.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND tenant_id = ? AND start_date < ? AND end_date > ?", propertyID, tenantID, end, start).
		Order("start_date ASC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new lease
func (r *GormLeaseRepository) Create(ctx context.Context, lease *rental.Lease) error {
	return translateError(r.db.WithContext(ctx).Create(models.LeaseModelFromDomain(lease)).Error)
}

var _ rental.LeaseRepository = (*GormLeaseRepository)(nil)
