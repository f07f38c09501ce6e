package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormApplicationRepository implements rental.ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// FindByID finds an application by its ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// TransitionStatus issues a single conditional UPDATE guarded on the current status
func (r *GormApplicationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to rental.ApplicationStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ApplicationModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Save inserts or fully updates an application. Used by seeding and tests;
// status changes go through TransitionStatus.
func (r *GormApplicationRepository) Save(ctx context.Context, app *rental.Application) error {
	model := models.ApplicationModelFromDomain(app)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var _ rental.ApplicationRepository = (*GormApplicationRepository)(nil)
