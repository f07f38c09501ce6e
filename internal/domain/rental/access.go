package rental

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/shared"
)

// Role is the authenticated principal's role
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleTenant  Role = "tenant"
)

// ParseRole maps a claim value onto a known role
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleTenant:
		return RoleTenant, nil
	default:
		return "", ErrUnknownRole
	}
}

// Principal is the caller on whose behalf an operation runs
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// AuthorizeStatusChange decides whether p may change the status of an
// application for property. Admins may act on any listing, managers only on
// listings they own. Everyone else is forbidden.
func AuthorizeStatusChange(p Principal, property *Property) error {
	if p.ID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	switch p.Role {
	case RoleAdmin:
		return nil
	case RoleManager:
		if property != nil && property.IsManagedBy(p.ID) {
			return nil
		}
	}
	return shared.ErrForbidden
}

// AuthorizeView decides whether p may read an application. The applicant
// tenant may read their own application on top of the status-change rules.
func AuthorizeView(p Principal, app *Application, property *Property) error {
	if p.Role == RoleTenant && app != nil && app.HasTenant() && *app.TenantID == p.ID {
		return nil
	}
	return AuthorizeStatusChange(p, property)
}
