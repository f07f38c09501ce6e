package rental

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
)

// Application is a tenant's request to rent a property or room
type Application struct {
	shared.BaseAggregateRoot
	PropertyID uuid.UUID
	RoomID     *uuid.UUID
	TenantID   *uuid.UUID
	Status     ApplicationStatus
	AppliedAt  time.Time
}

// HasTenant reports whether the application is linked to a tenant account
func (a *Application) HasTenant() bool {
	return a.TenantID != nil && *a.TenantID != uuid.Nil
}

// ChangeStatus validates and applies a transition in memory, recording a
// status-changed event. Persisting the change is the repository's job.
func (a *Application) ChangeStatus(next ApplicationStatus, at time.Time) (ApplicationStatus, error) {
	prev := a.Status
	if !prev.CanTransitionTo(next) {
		return prev, ErrInvalidTransition
	}
	a.Status = next
	a.Version++
	a.Touch(at)
	return prev, nil
}

// IsApproved reports whether the application is approved
func (a *Application) IsApproved() bool {
	return a.Status == ApplicationStatusApproved
}
