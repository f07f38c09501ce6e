package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/shopspring/decimal"
)

// ApplicationModel is the persistence model for the Application aggregate root
type ApplicationModel struct {
	AggregateModel
	PropertyID uuid.UUID                `gorm:"type:uuid;not null;index"`
	RoomID     *uuid.UUID               `gorm:"type:uuid"`
	TenantID   *uuid.UUID               `gorm:"type:uuid;index"`
	Status     rental.ApplicationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	AppliedAt  time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ApplicationModel) TableName() string {
	return "applications"
}

// ToDomain converts the persistence model to a domain Application
func (m *ApplicationModel) ToDomain() *rental.Application {
	return &rental.Application{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PropertyID:        m.PropertyID,
		RoomID:            m.RoomID,
		TenantID:          m.TenantID,
		Status:            m.Status,
		AppliedAt:         m.AppliedAt,
	}
}

// FromDomain populates the persistence model from a domain Application
func (m *ApplicationModel) FromDomain(a *rental.Application) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.PropertyID = a.PropertyID
	m.RoomID = a.RoomID
	m.TenantID = a.TenantID
	m.Status = a.Status
	m.AppliedAt = a.AppliedAt
}

// ApplicationModelFromDomain creates a new persistence model from a domain Application
func ApplicationModelFromDomain(a *rental.Application) *ApplicationModel {
	m := &ApplicationModel{}
	m.FromDomain(a)
	return m
}

// PropertyModel is the persistence model for Property
type PropertyModel struct {
	BaseModel
	ManagerID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Title        string           `gorm:"type:varchar(200);not null"`
	Address      string           `gorm:"type:varchar(500)"`
	MonthlyPrice *decimal.Decimal `gorm:"type:decimal(18,2)"`
	// LegacyPrice is the price column of listings imported from the old schema
	LegacyPrice *decimal.Decimal `gorm:"column:price;type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (PropertyModel) TableName() string {
	return "properties"
}

// ToDomain converts the persistence model to a domain Property
func (m *PropertyModel) ToDomain() *rental.Property {
	return &rental.Property{
		BaseEntity:   m.BaseModel.ToDomain(),
		ManagerID:    m.ManagerID,
		Title:        m.Title,
		Address:      m.Address,
		MonthlyPrice: m.MonthlyPrice,
		LegacyPrice:  m.LegacyPrice,
	}
}

// RoomModel is the persistence model for Room
type RoomModel struct {
	BaseModel
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts the persistence model to a domain Room
func (m *RoomModel) ToDomain() *rental.Room {
	return &rental.Room{
		BaseEntity: m.BaseModel.ToDomain(),
		PropertyID: m.PropertyID,
		Name:       m.Name,
	}
}

// TenantModel is the persistence model for Tenant
type TenantModel struct {
	BaseModel
	Name           string  `gorm:"type:varchar(200);not null"`
	Email          string  `gorm:"type:varchar(200);uniqueIndex"`
	ReferredByCode *string `gorm:"type:varchar(50);index"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *rental.Tenant {
	return &rental.Tenant{
		BaseEntity:     m.BaseModel.ToDomain(),
		Name:           m.Name,
		Email:          m.Email,
		ReferredByCode: m.ReferredByCode,
	}
}

// LeaseModel is the persistence model for Lease
type LeaseModel struct {
	BaseModel
	PropertyID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_lease_property_tenant,priority:1"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_lease_property_tenant,priority:2"`
	ApplicationID *uuid.UUID      `gorm:"type:uuid;index"`
	StartDate     time.Time       `gorm:"not null"`
	EndDate       time.Time       `gorm:"not null"`
	RentAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DepositAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease
func (m *LeaseModel) ToDomain() *rental.Lease {
	return &rental.Lease{
		BaseEntity:    m.BaseModel.ToDomain(),
		PropertyID:    m.PropertyID,
		TenantID:      m.TenantID,
		ApplicationID: m.ApplicationID,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		RentAmount:    m.RentAmount,
		DepositAmount: m.DepositAmount,
	}
}

// LeaseModelFromDomain creates a new persistence model from a domain Lease
func LeaseModelFromDomain(l *rental.Lease) *LeaseModel {
	m := &LeaseModel{
		PropertyID:    l.PropertyID,
		TenantID:      l.TenantID,
		ApplicationID: l.ApplicationID,
		StartDate:     l.StartDate,
		EndDate:       l.EndDate,
		RentAmount:    l.RentAmount,
		DepositAmount: l.DepositAmount,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// ReferralModel is the persistence model for Referral
type ReferralModel struct {
	BaseModel
	Code             string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	ReferrerID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ReferredID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	IsCompleted      bool       `gorm:"not null;default:false"`
	CompletedAt      *time.Time
	VoucherGenerated bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ReferralModel) TableName() string {
	return "referrals"
}

// ToDomain converts the persistence model to a domain Referral
func (m *ReferralModel) ToDomain() *rental.Referral {
	return &rental.Referral{
		BaseEntity:       m.BaseModel.ToDomain(),
		Code:             m.Code,
		ReferrerID:       m.ReferrerID,
		ReferredID:       m.ReferredID,
		IsCompleted:      m.IsCompleted,
		CompletedAt:      m.CompletedAt,
		VoucherGenerated: m.VoucherGenerated,
	}
}

// VoucherModel is the persistence model for Voucher
type VoucherModel struct {
	BaseModel
	Code            string               `gorm:"type:varchar(64);not null;uniqueIndex"`
	OwnerID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	DiscountAmount  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	DiscountPercent *decimal.Decimal     `gorm:"type:decimal(5,2)"`
	Status          rental.VoucherStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ExpiresAt       time.Time            `gorm:"not null;index"`
	ReferralID      *uuid.UUID           `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (VoucherModel) TableName() string {
	return "vouchers"
}

// ToDomain converts the persistence model to a domain Voucher
func (m *VoucherModel) ToDomain() *rental.Voucher {
	return &rental.Voucher{
		BaseEntity:      m.BaseModel.ToDomain(),
		Code:            m.Code,
		OwnerID:         m.OwnerID,
		DiscountAmount:  m.DiscountAmount,
		DiscountPercent: m.DiscountPercent,
		Status:          m.Status,
		ExpiresAt:       m.ExpiresAt,
		ReferralID:      m.ReferralID,
	}
}

// VoucherModelFromDomain creates a new persistence model from a domain Voucher
func VoucherModelFromDomain(v *rental.Voucher) *VoucherModel {
	m := &VoucherModel{
		Code:            v.Code,
		OwnerID:         v.OwnerID,
		DiscountAmount:  v.DiscountAmount,
		DiscountPercent: v.DiscountPercent,
		Status:          v.Status,
		ExpiresAt:       v.ExpiresAt,
		ReferralID:      v.ReferralID,
	}
	m.FromDomainBaseEntity(v.BaseEntity)
	return m
}

// AllModels lists every model for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&ApplicationModel{},
		&PropertyModel{},
		&RoomModel{},
		&TenantModel{},
		&LeaseModel{},
		&ReferralModel{},
		&VoucherModel{},
	}
}
