// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - rental.go: applications, properties, rooms, tenants, leases, referrals, vouchers
//
// Constraints that GORM cannot express (the lease exclusion constraint) live in
// the SQL migrations only.
package models
