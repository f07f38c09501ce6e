package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdateStatusRequest is the body of PATCH /applications/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ApplicationEnvelope is the data payload for application reads and
// status updates.
type ApplicationEnvelope struct {
	Application ApplicationView `json:"application"`
	Lease       *LeaseView      `json:"lease"`
}

type ApplicationView struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	AppliedAt time.Time    `json:"applied_at"`
	Property  PropertyView `json:"property"`
	Room      *RoomView    `json:"room"`
	Tenant    *TenantView  `json:"tenant"`
}

type PropertyView struct {
	ID           string           `json:"id"`
	ManagerID    string           `json:"manager_id"`
	Title        string           `json:"title"`
	Address      string           `json:"address"`
	MonthlyPrice *decimal.Decimal `json:"monthly_price"`
}

type RoomView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TenantView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LeaseView struct {
	ID            string          `json:"id"`
	PropertyID    string          `json:"property_id"`
	TenantID      string          `json:"tenant_id"`
	ApplicationID *string         `json:"application_id,omitempty"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	RentAmount    decimal.Decimal `json:"rent_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
}
